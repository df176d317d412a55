// Package term hosts the terminal backends and the geometry sync engine.
// A backend owns at most one child process and one terminal surface; the
// session layer drives it only through the Backend interface.
package term

// Theme carries the presentation knobs a surface understands.
type Theme struct {
	Dark     bool
	FontSize float32
}

// Surface is the visual terminal the backend relays into. The desktop
// widget implements it; tests use a recording fake. All methods are
// invoked on the application loop.
type Surface interface {
	// FeedOutput applies raw process output to the emulator.
	FeedOutput(p []byte)
	// Repaint redraws the surface from the emulator state.
	Repaint()
	// SyncLayout forces the surface's container to recompute layout.
	SyncLayout()
	// RefreshSize recomputes the character grid from the current pixel size.
	RefreshSize()
	// ClampScroll pulls any scrollback offset back inside the buffer.
	ClampScroll()
	// GridSize reports the current character grid.
	GridSize() (cols, rows int)
	Clear()
	ApplyTheme(Theme)
	// ShowMessage replaces the surface content with a static notice.
	ShowMessage(msg string)
}

// Backend is the capability interface over one terminal slot. Two
// variants exist: PtyBackend runs a real child process, Fallback shows
// a static message when no process can be run.
type Backend interface {
	// Spawn starts the child process. Returns false on any failure,
	// never an error; failures are logged with the attempted command.
	Spawn(argv []string, env []string, dir string) bool
	// Write sends input to the process. No-op without a live process.
	Write(p []byte)
	// RequestExit asks the shell to leave politely. Non-blocking.
	RequestExit()
	// Terminate requests cooperative termination of the process.
	Terminate()
	// Kill requests immediate termination.
	Kill()
	// Alive is a best-effort liveness probe.
	Alive() bool
	// DetachUI severs every callback into the surface before the
	// surface is torn down. Idempotent. Exit notification survives.
	DetachUI()
	Clear()
	ApplyTheme(Theme)
	// SetResizeSuspended captures geometry triggers while true and
	// replays them when lifted.
	SetResizeSuspended(bool)
	// RequestSync asks the geometry engine for a synchronization pass.
	RequestSync(SyncRequest)
	// SetExitHandler registers the process-exit notification. Delivered
	// on the application loop, at most once per spawned process.
	SetExitHandler(func(code int))
}
