package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
)

func TestMockClientQueuedResponses(t *testing.T) {
	m := NewMockClient().
		AddResponse(http.StatusOK, `{"ok":true}`).
		AddResponse(http.StatusNotFound, "missing")

	resp, err := m.Get(context.Background(), "http://archive.test/search")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != `{"ok":true}` {
		t.Errorf("first response = %d %q", resp.StatusCode, body)
	}

	resp, err = m.Get(context.Background(), "http://archive.test/missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second response = %d, want 404", resp.StatusCode)
	}

	// past the queue: empty 200
	resp, err = m.Get(context.Background(), "http://archive.test/extra")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("default response = %d, want 200", resp.StatusCode)
	}

	if m.RequestCount() != 3 {
		t.Errorf("request count = %d, want 3", m.RequestCount())
	}
	if req := m.Request(0); req == nil || req.URL.Path != "/search" {
		t.Errorf("recorded request 0 = %v", req)
	}
	if m.Request(10) != nil {
		t.Error("out-of-range request should be nil")
	}
}

func TestMockClientError(t *testing.T) {
	wantErr := errors.New("connection refused")
	m := NewMockClient().AddError(wantErr)

	if _, err := m.Get(context.Background(), "http://archive.test"); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestMockClientDoFunc(t *testing.T) {
	m := NewMockClient()
	m.DoFunc = func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("custom")
	}
	if _, err := m.Get(context.Background(), "http://archive.test"); err == nil {
		t.Error("expected DoFunc error")
	}
}

func TestStandardClientDefaults(t *testing.T) {
	c := NewStandardClient(nil)
	if c.Client != http.DefaultClient {
		t.Error("nil should fall back to http.DefaultClient")
	}
}
