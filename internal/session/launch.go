package session

import (
	"fmt"
	"log"
	"os"

	"shelldeck/internal/sched"
	"shelldeck/internal/term"
)

// Launch carries one resolved connect attempt.
type Launch struct {
	Argv         []string
	Display      string
	IdentityFile string
	Label        string
	Dir          string
	Env          []string
}

// Connect runs the preconditions for l and starts a session.
//
// The identity check happens before the interactive backend exists:
// when the referenced file is missing, newFallback supplies the backend
// and the controller enters the error state without a spawn attempt. A
// spawn failure detaches the interactive backend again and swaps in the
// fallback while the controller keeps the error state. The returned
// bool reports a live interactive session.
func Connect(scheduler sched.Scheduler, logger *log.Logger, l Launch,
	newBackend func() term.Backend, newFallback func(msg string) term.Backend,
	onState, onClosed func(string)) (term.Backend, *Controller, bool) {
	if logger == nil {
		logger = log.Default()
	}

	if l.IdentityFile != "" {
		if _, err := os.Stat(l.IdentityFile); err != nil {
			logger.Printf("identity file missing host=%s path=%s", l.Label, l.IdentityFile)
			fb := newFallback(fmt.Sprintf(
				"Identity file not found:\n  %s\n\nFix the host entry or your ssh config, then reconnect.",
				l.IdentityFile))
			ctrl := NewController(scheduler, logger, fb, l.Label)
			ctrl.OnStateChange(onState)
			ctrl.OnClosed(onClosed)
			ctrl.SetError("identity_missing")
			return fb, ctrl, false
		}
	}

	backend := newBackend()
	ctrl := NewController(scheduler, logger, backend, l.Label)
	ctrl.OnStateChange(onState)
	ctrl.OnClosed(onClosed)

	logger.Printf("session connect host=%s cmd=%s", l.Label, l.Display)
	if ctrl.Start(l.Argv, l.Env, l.Dir) {
		return backend, ctrl, true
	}
	backend.DetachUI()
	return newFallback("Failed to start ssh:\n  " + l.Display), ctrl, false
}
