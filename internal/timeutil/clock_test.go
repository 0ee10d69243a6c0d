package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	got := c.Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Errorf("RealClock.Now() = %v, outside [%v, %v]", got, before, after)
	}
}

func TestRealClockSince(t *testing.T) {
	c := RealClock{}
	start := time.Now().Add(-time.Second)
	if d := c.Since(start); d < time.Second {
		t.Errorf("expected at least 1s elapsed, got %v", d)
	}
}

func TestMockClockNowAndAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, expected %v", got, start)
	}

	c.Advance(90 * time.Second)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Errorf("Now() after Advance = %v", got)
	}
	if d := c.Since(start); d != 90*time.Second {
		t.Errorf("Since(start) = %v, expected 90s", d)
	}
}

func TestMockTickerFires(t *testing.T) {
	c := NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ticker := c.NewTicker(time.Minute)

	select {
	case <-ticker.C():
		t.Fatal("ticker fired before the period elapsed")
	default:
	}

	c.Advance(time.Minute)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after the period elapsed")
	}
}

func TestMockTickerStopped(t *testing.T) {
	c := NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ticker := c.NewTicker(time.Minute)
	ticker.Stop()

	c.Advance(5 * time.Minute)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker still fired")
	default:
	}
}
