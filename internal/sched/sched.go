// Package sched provides the scheduling seam the session and terminal
// layers run on. Everything that mutates session or widget state happens
// on a single cooperative loop; Do posts work to that loop and After arms
// a one-shot timer whose callback is itself delivered on the loop.
package sched

import (
	"sync"
	"time"
)

// Timer is a one-shot alarm. Stop cancels delivery if the callback has
// not run yet; stopping an already-fired or already-stopped timer is a
// no-op.
type Timer interface {
	Stop()
}

// Scheduler posts work to the application loop.
type Scheduler interface {
	// Do runs fn on the loop. Safe to call from any goroutine.
	Do(fn func())
	// After arms a one-shot timer that runs fn on the loop after d.
	After(d time.Duration, fn func()) Timer
}

// Loop is the production Scheduler. It delegates Do to an injected
// dispatch function (fyne.Do in the desktop app) and backs After with
// time.AfterFunc, re-dispatching the callback so it lands on the loop.
type Loop struct {
	dispatch func(func())
}

// NewLoop returns a Scheduler that runs callbacks through dispatch.
func NewLoop(dispatch func(func())) *Loop {
	return &Loop{dispatch: dispatch}
}

func (l *Loop) Do(fn func()) {
	l.dispatch(fn)
}

func (l *Loop) After(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.inner = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
		l.dispatch(fn)
	})
	return t
}

type loopTimer struct {
	mu      sync.Mutex
	inner   *time.Timer
	stopped bool
}

func (t *loopTimer) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	t.inner.Stop()
}
