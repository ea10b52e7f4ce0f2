package cache

import (
	"testing"
	"time"
)

func TestSweeperSweepOnce(t *testing.T) {
	c := New[int]()
	c.Set("stale", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	s := NewSweeper(nil, c)
	n := s.SweepOnce()
	if n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
}

func TestSweeperStartStop(t *testing.T) {
	c := New[int]()
	s := NewSweeper(nil, c)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.running {
		t.Error("expected running after Start")
	}
	// Starting twice is a no-op, not an error.
	if err := s.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	s.Stop()
	if s.running {
		t.Error("expected stopped after Stop")
	}
}

func TestSweeperAcrossMultipleCaches(t *testing.T) {
	a := New[int]()
	b := New[string]()
	a.Set("stale", 1, time.Millisecond)
	b.Set("stale", "x", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	s := NewSweeper(nil, a, b)
	n := s.SweepOnce()
	if n != 2 {
		t.Errorf("swept %d across two caches, want 2", n)
	}
}
