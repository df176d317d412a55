package term

import "log"

// Fallback fills a terminal slot when no interactive backend can run:
// capability absent, construction failure, or a failed precondition
// like a missing identity file. It never reports alive and its Spawn
// always fails; the visual slot keeps showing an explanatory message.
type Fallback struct {
	logger   *log.Logger
	surface  Surface
	message  string
	detached bool
}

// NewFallback shows message on surface and returns the backend.
func NewFallback(logger *log.Logger, surface Surface, message string) *Fallback {
	if logger == nil {
		logger = log.Default()
	}
	f := &Fallback{logger: logger, surface: surface, message: message}
	surface.ShowMessage(message)
	return f
}

func (f *Fallback) Spawn(argv []string, env []string, dir string) bool {
	f.logger.Printf("fallback backend cannot spawn (requested: %v)", argv)
	return false
}

func (f *Fallback) Write(p []byte) {}
func (f *Fallback) RequestExit()   {}
func (f *Fallback) Terminate()     {}
func (f *Fallback) Kill()          {}
func (f *Fallback) Alive() bool    { return false }

func (f *Fallback) DetachUI() {
	f.detached = true
}

// Clear resets the slot back to the static message.
func (f *Fallback) Clear() {
	if f.detached {
		return
	}
	f.surface.ShowMessage(f.message)
}

func (f *Fallback) ApplyTheme(theme Theme) {
	if f.detached {
		return
	}
	f.surface.ApplyTheme(theme)
}

func (f *Fallback) SetResizeSuspended(bool) {}
func (f *Fallback) RequestSync(SyncRequest) {}

// SetExitHandler is a no-op: there is never a process to exit.
func (f *Fallback) SetExitHandler(func(int)) {}
