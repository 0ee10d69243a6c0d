package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("no-op logger should not have triggered callback")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestDebugf(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetVerbose(false)
	}()

	var captured string
	SetLogger(func(format string, v ...interface{}) {
		captured = format
	})

	Debugf("quiet")
	if captured != "" {
		t.Error("Debugf should be silent when verbose is off")
	}

	SetVerbose(true)
	Debugf("loud")
	if captured != "loud" {
		t.Errorf("Debugf did not log in verbose mode, captured %q", captured)
	}
}
