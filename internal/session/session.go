// Package session implements the connect/close state machine that
// drives one terminal backend. Shutdown escalates through a polite exit
// request, SIGTERM after a grace period, and SIGKILL after a second
// timeout; every path ends in a single closed notification.
package session

import (
	"log"
	"time"

	"shelldeck/internal/sched"
	"shelldeck/internal/term"
)

// Session states, delivered to the state-change handler as string tags.
const (
	StateConnecting = "connecting"
	StateConnected  = "connected"
	StateClosing    = "closing"
	StateClosed     = "closed"
	StateError      = "error"
)

const (
	graceTimeout  = 800 * time.Millisecond
	killTimeout   = 700 * time.Millisecond
	finalizeDelay = 150 * time.Millisecond
)

// Controller owns exactly two named timers (grace, kill) plus the short
// force-kill finalize delay. All methods run on the application loop.
type Controller struct {
	scheduler sched.Scheduler
	logger    *log.Logger
	backend   term.Backend
	label     string

	state       string
	closeReason string

	graceTimer sched.Timer
	killTimer  sched.Timer

	onState  func(state string)
	onClosed func(reason string)
}

// NewController wires a controller to backend. The backend's exit
// notification is claimed by the controller.
func NewController(scheduler sched.Scheduler, logger *log.Logger, backend term.Backend, label string) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	c := &Controller{
		scheduler: scheduler,
		logger:    logger,
		backend:   backend,
		label:     label,
		state:     StateClosed,
	}
	backend.SetExitHandler(c.handleProcessExited)
	return c
}

// State returns the current state tag.
func (c *Controller) State() string { return c.state }

// OnStateChange registers the state-change notification handler.
func (c *Controller) OnStateChange(fn func(state string)) { c.onState = fn }

// OnClosed registers the closed notification handler. It may fire
// without a preceding connected notification on the spawn-failure path.
func (c *Controller) OnClosed(fn func(reason string)) { c.onClosed = fn }

// Start spawns the process. Returns false without side effects when the
// session is already active, and false after transitioning to the error
// state when the spawn fails.
func (c *Controller) Start(argv []string, env []string, dir string) bool {
	if c.state == StateConnecting || c.state == StateConnected {
		c.logger.Printf("session start ignored, already active host=%s state=%s", c.label, c.state)
		return false
	}
	c.setState(StateConnecting, "start")
	if c.backend.Spawn(argv, env, dir) {
		c.setState(StateConnected, "start_success")
		return true
	}
	c.setState(StateError, "start_failed")
	return false
}

// RequestClose begins the graceful shutdown ladder. Ignored when a
// close is already underway.
func (c *Controller) RequestClose(reason string) {
	if c.state == StateClosing || c.state == StateClosed {
		c.logger.Printf("session close ignored, already closing host=%s state=%s reason=%s", c.label, c.state, reason)
		return
	}
	c.closeReason = reason
	c.logger.Printf("session close requested host=%s reason=%s", c.label, reason)
	c.backend.DetachUI()
	c.backend.RequestExit()
	c.setState(StateClosing, reason)
	if c.backend.Alive() {
		c.stopGrace()
		c.graceTimer = c.scheduler.After(graceTimeout, c.onGraceTimeout)
	} else {
		c.finalizeClosed("no_process")
	}
}

// ForceKill skips the grace ladder entirely. Finalization happens after
// a short fixed delay; the kill is assumed authoritative rather than
// waiting for OS confirmation.
func (c *Controller) ForceKill(reason string) {
	if c.state == StateClosed {
		return
	}
	c.closeReason = reason
	c.logger.Printf("session force kill host=%s reason=%s", c.label, reason)
	c.backend.DetachUI()
	c.backend.Kill()
	c.setState(StateClosing, reason)
	c.scheduler.After(finalizeDelay, func() { c.finalizeClosed("force_kill") })
}

// SetError marks the session failed before or during spawn, e.g. a
// missing identity file detected ahead of Start.
func (c *Controller) SetError(reason string) {
	c.setState(StateError, reason)
}

// Alive reports whether the session should be treated as running.
func (c *Controller) Alive() bool {
	switch c.state {
	case StateClosing, StateClosed, StateError:
		return c.backend.Alive()
	}
	return true
}

func (c *Controller) onGraceTimeout() {
	c.graceTimer = nil
	if !c.backend.Alive() {
		c.finalizeClosed("grace_complete")
		return
	}
	c.logger.Printf("session terminate after grace host=%s", c.label)
	c.backend.Terminate()
	c.stopKill()
	c.killTimer = c.scheduler.After(killTimeout, c.onKillTimeout)
}

func (c *Controller) onKillTimeout() {
	c.killTimer = nil
	if !c.backend.Alive() {
		c.finalizeClosed("terminated")
		return
	}
	c.logger.Printf("session force kill after timeout host=%s", c.label)
	c.backend.Kill()
	c.scheduler.After(finalizeDelay, func() { c.finalizeClosed("force_timeout") })
}

func (c *Controller) handleProcessExited(exitCode int) {
	if c.state == StateClosed {
		return
	}
	reason := c.closeReason
	if reason == "" {
		reason = "process_exited"
	}
	if c.state != StateClosing {
		c.logger.Printf("session process exited unexpectedly host=%s exit_code=%d state=%s", c.label, exitCode, c.state)
	} else {
		c.logger.Printf("session process exited host=%s exit_code=%d", c.label, exitCode)
	}
	c.finalizeClosed(reason)
}

func (c *Controller) finalizeClosed(reason string) {
	if c.state == StateClosed {
		return
	}
	c.stopGrace()
	c.stopKill()
	c.setState(StateClosed, reason)
	if c.onClosed != nil {
		c.onClosed(reason)
	}
}

func (c *Controller) stopGrace() {
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
}

func (c *Controller) stopKill() {
	if c.killTimer != nil {
		c.killTimer.Stop()
		c.killTimer = nil
	}
}

func (c *Controller) setState(state, reason string) {
	if c.state == state {
		return
	}
	previous := c.state
	c.state = state
	c.logger.Printf("session state transition host=%s from=%s to=%s reason=%s", c.label, previous, state, reason)
	if c.onState != nil {
		c.onState(state)
	}
}
