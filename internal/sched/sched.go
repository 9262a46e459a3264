// Package sched abstracts delayed callbacks so session timers can be driven
// by a manual clock in tests.
package sched

import (
	"sort"
	"sync"
	"time"
)

type Timer interface {
	// Stop prevents the callback from running. It reports false if the
	// callback already ran or was stopped.
	Stop() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

// System schedules with time.AfterFunc.
func System() Scheduler { return systemScheduler{} }

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manual is a Scheduler whose clock only moves on Advance. Callbacks run on
// the goroutine calling Advance, outside Manual's lock.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

func NewManual() *Manual { return &Manual{} }

type manualTimer struct {
	m       *Manual
	at      time.Duration
	seq     int
	f       func()
	stopped bool
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, firing due callbacks in deadline
// order. Timers scheduled by a callback fire within the same call when
// they fall due before the new time.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		next.stopped = true
		m.now = next.at
		m.mu.Unlock()
		next.f()
	}
}

func (m *Manual) nextDueLocked(limit time.Duration) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at == m.timers[j].at {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at < m.timers[j].at
	})
	if len(m.timers) == 0 || m.timers[0].at > limit {
		return nil
	}
	return m.timers[0]
}

// Pending counts timers that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}
