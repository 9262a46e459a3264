package sched

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestManualFiresInOrder(t *testing.T) {
	m := NewManual()
	var got []string
	m.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	m.AfterFunc(time.Second, func() { got = append(got, "a") })
	stopped := m.AfterFunc(time.Second, func() { got = append(got, "x") })
	if !stopped.Stop() {
		t.Fatalf("first Stop should report true")
	}
	if stopped.Stop() {
		t.Fatalf("second Stop should report false")
	}

	m.Advance(1500 * time.Millisecond)
	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Fatalf("after 1.5s (-want +got):\n%s", diff)
	}
	m.Advance(time.Second)
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatalf("after 2.5s (-want +got):\n%s", diff)
	}
	if m.Pending() != 0 {
		t.Fatalf("pending: %d", m.Pending())
	}
}

func TestManualRescheduleFromCallback(t *testing.T) {
	m := NewManual()
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		m.AfterFunc(time.Second, tick)
	}
	m.AfterFunc(time.Second, tick)
	m.Advance(5 * time.Second)
	if ticks != 5 {
		t.Fatalf("ticks: got %d want 5", ticks)
	}
}

func TestSystemScheduler(t *testing.T) {
	done := make(chan struct{})
	System().AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("system timer did not fire")
	}
}
