package term

// Proc is the narrow process/pty runtime the backend depends on. The
// real implementations live in proc_unix.go and proc_windows.go; tests
// inject a fake through StartProc.
type Proc interface {
	// Write sends bytes to the process input.
	Write(p []byte) (int, error)
	// CloseStdin closes the input stream when the transport exposes
	// one separately from the pty. May be a no-op.
	CloseStdin() error
	// Resize changes the pty's advertised size.
	Resize(cols, rows int) error
	// Terminate requests cooperative termination.
	Terminate() error
	// Kill requests immediate termination.
	Kill() error
	// Alive reports whether the process has not exited yet.
	Alive() bool
	// Close releases the pty handle.
	Close() error
}

// StartProc spawns a child attached to a pty of the given size. onData
// is invoked from a reader goroutine with each output chunk; onExit is
// invoked once, from a watcher goroutine, with the exit code.
type StartProc func(argv []string, env []string, dir string, cols, rows int, onData func([]byte), onExit func(code int)) (Proc, error)
