// terminal_tab.go - One terminal tab: surface, backend and session
// controller for a single host. Reconnects re-resolve the ssh command
// so config edits take effect without restarting the app.
package main

import (
	"log"
	"os"

	"github.com/google/uuid"

	"fyne.io/fyne/v2/container"

	"shelldeck/internal/model"
	"shelldeck/internal/sched"
	"shelldeck/internal/session"
	"shelldeck/internal/sshcmd"
	"shelldeck/internal/term"
)

// TerminalTab owns the per-tab widget stack. All methods run on the
// application loop.
type TerminalTab struct {
	ID      string
	Host    model.Host
	TabItem *container.TabItem

	loop    sched.Scheduler
	surface *TerminalSurface
	backend term.Backend
	ctrl    *session.Controller

	reconnectPending bool

	OnStateChange func(state string)
	OnClosed      func(reason string)
}

// NewTerminalTab builds the tab UI without connecting
func NewTerminalTab(loop sched.Scheduler, host model.Host) *TerminalTab {
	settings := GetSettings().Get()

	t := &TerminalTab{
		ID:   uuid.New().String(),
		Host: host,
		loop: loop,
	}
	t.surface = NewTerminalSurface(80, 24, settings.ScrollbackSize, settings.DarkMode, settings.FontSize)
	t.TabItem = container.NewTabItem(host.DisplayLabel(), t.surface)
	return t
}

// Surface exposes the terminal widget for focus management
func (t *TerminalTab) Surface() *TerminalSurface { return t.surface }

// State returns the session state tag, "closed" before the first connect
func (t *TerminalTab) State() string {
	if t.ctrl == nil {
		return session.StateClosed
	}
	return t.ctrl.State()
}

// Alive reports whether this tab holds a running session
func (t *TerminalTab) Alive() bool {
	return t.ctrl != nil && t.ctrl.Alive()
}

// Connect starts a session, or schedules a reconnect when one is
// already running
func (t *TerminalTab) Connect() {
	if t.ctrl != nil && t.ctrl.Alive() {
		log.Printf("Reconnect requested for %s, closing current session first", t.Host.DisplayLabel())
		t.reconnectPending = true
		t.ctrl.RequestClose("reconnect")
		return
	}
	t.doConnect()
}

// Disconnect begins the graceful shutdown ladder
func (t *TerminalTab) Disconnect(reason string) {
	if t.ctrl != nil {
		t.ctrl.RequestClose(reason)
	}
}

// ForceClose kills the session without the grace ladder, used on app exit
func (t *TerminalTab) ForceClose(reason string) {
	if t.ctrl != nil {
		t.ctrl.ForceKill(reason)
	}
}

// SetVisible suspends geometry syncs for hidden tabs and replays them
// when the tab is shown again
func (t *TerminalTab) SetVisible(visible bool) {
	if t.backend == nil {
		return
	}
	t.backend.SetResizeSuspended(!visible)
	if visible {
		t.backend.RequestSync(term.SyncRequest{Trigger: term.TriggerFocus})
	}
}

// RequestWindowStateSync asks for a geometry pass after the window
// changes state (fullscreen toggle)
func (t *TerminalTab) RequestWindowStateSync() {
	if t.backend != nil {
		t.backend.RequestSync(term.SyncRequest{Trigger: term.TriggerWindowState})
	}
}

// ApplyTheme pushes presentation changes through the backend
func (t *TerminalTab) ApplyTheme(theme term.Theme) {
	if t.backend != nil {
		t.backend.ApplyTheme(theme)
	} else {
		t.surface.ApplyTheme(theme)
	}
}

func (t *TerminalTab) doConnect() {
	settings := GetSettings().Get()
	resolver := sshcmd.Resolver{
		ConfigPath: settings.SSHConfigPath,
		Debug:      settings.SSHDebug,
	}
	cmd := resolver.Resolve(t.Host)

	// Sever the previous backend before replacing it
	if t.backend != nil {
		t.backend.DetachUI()
	}
	t.surface.ClearMessage()

	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	backend, ctrl, ok := session.Connect(t.loop, nil,
		session.Launch{
			Argv:         cmd.Argv,
			Display:      cmd.Display,
			IdentityFile: cmd.IdentityFile,
			Label:        t.Host.DisplayLabel(),
			Dir:          home,
		},
		func() term.Backend {
			b := term.NewPtyBackend(t.loop, nil, t.surface, nil)
			t.surface.SetInput(b.Write)
			t.surface.SetOnResize(func() {
				b.RequestSync(term.SyncRequest{Trigger: term.TriggerResize})
			})
			return b
		},
		func(msg string) term.Backend {
			return term.NewFallback(nil, t.surface, msg)
		},
		t.handleStateChange, t.handleClosed)

	t.backend = backend
	t.ctrl = ctrl
	if !ok {
		t.surface.SetInput(nil)
		t.surface.SetOnResize(nil)
	}
}

func (t *TerminalTab) handleStateChange(state string) {
	if t.OnStateChange != nil {
		t.OnStateChange(state)
	}
}

func (t *TerminalTab) handleClosed(reason string) {
	if t.OnClosed != nil {
		t.OnClosed(reason)
	}
	if t.reconnectPending {
		t.reconnectPending = false
		t.doConnect()
	}
}
