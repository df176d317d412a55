package sched

import (
	"sort"
	"time"
)

// Manual is a deterministic Scheduler for tests. Do runs the callback
// inline; After registers a timer fired by Advance. Time only moves when
// the test says so.
type Manual struct {
	now    time.Duration
	nextID int
	timers []*manualTimer
}

// NewManual returns a Manual scheduler at time zero.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Do(fn func()) {
	fn()
}

func (m *Manual) After(d time.Duration, fn func()) Timer {
	m.nextID++
	t := &manualTimer{
		owner: m,
		id:    m.nextID,
		due:   m.now + d,
		fn:    fn,
	}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d, firing due timers in deadline
// order. Callbacks may arm new timers; those fire too if they fall
// within the window.
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		m.now = t.due
		m.remove(t)
		t.fn()
	}
	m.now = target
}

// Pending reports how many timers are armed.
func (m *Manual) Pending() int {
	return len(m.timers)
}

func (m *Manual) nextDue(limit time.Duration) *manualTimer {
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].due != m.timers[j].due {
			return m.timers[i].due < m.timers[j].due
		}
		return m.timers[i].id < m.timers[j].id
	})
	for _, t := range m.timers {
		if t.due <= limit {
			return t
		}
	}
	return nil
}

func (m *Manual) remove(t *manualTimer) {
	for i, cand := range m.timers {
		if cand == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

type manualTimer struct {
	owner *Manual
	id    int
	due   time.Duration
	fn    func()
}

func (t *manualTimer) Stop() {
	t.owner.remove(t)
}
