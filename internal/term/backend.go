package term

import (
	"bytes"
	"log"
	"sync"

	"github.com/kballard/go-shellquote"

	"shelldeck/internal/sched"
)

// clear-screen sequences that make remote applications redraw assuming
// a freshly synced size
var clearSequences = [][]byte{[]byte("\x1b[2J"), []byte("\x1b[H")}

// PtyBackend runs one child process on a pty and relays its output into
// a Surface. All state changes happen on the application loop; only the
// pending output buffer is touched from the reader goroutine.
type PtyBackend struct {
	scheduler sched.Scheduler
	logger    *log.Logger
	surface   Surface
	geo       *GeometrySync
	start     StartProc

	proc        Proc
	live        bool
	detached    bool
	exitHandler func(code int)

	mu          sync.Mutex
	pendingOut  []byte
	flushQueued bool
}

// NewPtyBackend builds a backend over surface. start may be nil, in
// which case the platform default is used.
func NewPtyBackend(scheduler sched.Scheduler, logger *log.Logger, surface Surface, start StartProc) *PtyBackend {
	if logger == nil {
		logger = log.Default()
	}
	if start == nil {
		start = StartDefaultProc
	}
	b := &PtyBackend{
		scheduler: scheduler,
		logger:    logger,
		surface:   surface,
		start:     start,
	}
	b.geo = NewGeometrySync(scheduler, logger, surface, nil)
	return b
}

// Geometry exposes the sync engine for trigger wiring.
func (b *PtyBackend) Geometry() *GeometrySync { return b.geo }

func (b *PtyBackend) SetExitHandler(fn func(code int)) { b.exitHandler = fn }

func (b *PtyBackend) Spawn(argv []string, env []string, dir string) bool {
	if b.live {
		b.logger.Printf("spawn rejected, process already live")
		return false
	}
	if len(argv) == 0 {
		b.logger.Printf("spawn rejected, empty command")
		return false
	}

	cols, rows := b.surface.GridSize()
	if cols <= 0 || rows <= 0 {
		cols, rows = 80, 24
	}

	proc, err := b.start(argv, env, dir, cols, rows, b.enqueueOutput, func(code int) {
		b.scheduler.Do(func() { b.handleExit(code) })
	})
	if err != nil {
		b.logger.Printf("spawn failed for %s: %v", shellquote.Join(argv...), err)
		return false
	}

	b.proc = proc
	b.live = true
	b.geo.SetResizePty(proc.Resize)
	b.geo.Request(SyncRequest{Trigger: TriggerExplicit})
	b.logger.Printf("spawned %s at %dx%d", shellquote.Join(argv...), cols, rows)
	return true
}

// enqueueOutput is called from the reader goroutine. Chunks accumulate
// until the loop runs the flush, so a burst of reads produces one feed
// and one repaint.
func (b *PtyBackend) enqueueOutput(chunk []byte) {
	b.mu.Lock()
	b.pendingOut = append(b.pendingOut, chunk...)
	queue := !b.flushQueued
	if queue {
		b.flushQueued = true
	}
	b.mu.Unlock()

	if queue {
		b.scheduler.Do(b.flushOutput)
	}
}

func (b *PtyBackend) flushOutput() {
	b.mu.Lock()
	data := b.pendingOut
	b.pendingOut = nil
	b.flushQueued = false
	b.mu.Unlock()

	if b.detached || len(data) == 0 {
		return
	}

	b.surface.FeedOutput(data)
	b.surface.Repaint()

	for _, seq := range clearSequences {
		if bytes.Contains(data, seq) {
			b.geo.Request(SyncRequest{Trigger: TriggerOutput})
			break
		}
	}
}

func (b *PtyBackend) handleExit(code int) {
	b.live = false
	if b.proc != nil {
		b.proc.Close()
		b.proc = nil
	}
	b.geo.SetResizePty(nil)
	if b.exitHandler != nil {
		b.exitHandler(code)
	}
}

func (b *PtyBackend) Write(p []byte) {
	if !b.live || b.proc == nil {
		return
	}
	if _, err := b.proc.Write(p); err != nil {
		b.logger.Printf("pty write error: %v", err)
	}
}

func (b *PtyBackend) RequestExit() {
	if b.proc == nil {
		return
	}
	if _, err := b.proc.Write([]byte("exit\n")); err != nil {
		b.logger.Printf("exit request write error: %v", err)
	}
	if err := b.proc.CloseStdin(); err != nil {
		b.logger.Printf("stdin close error: %v", err)
	}
}

func (b *PtyBackend) Terminate() {
	if b.proc == nil {
		return
	}
	if err := b.proc.Terminate(); err != nil {
		b.logger.Printf("terminate error: %v", err)
	}
}

func (b *PtyBackend) Kill() {
	if b.proc == nil {
		return
	}
	if err := b.proc.Kill(); err != nil {
		b.logger.Printf("kill error: %v", err)
	}
}

func (b *PtyBackend) Alive() bool {
	return b.live && b.proc != nil && b.proc.Alive()
}

// DetachUI stops output relay and geometry timers so nothing can fire
// against a surface that is about to be destroyed. The exit handler
// stays attached; the session layer still needs it.
func (b *PtyBackend) DetachUI() {
	if b.detached {
		return
	}
	b.detached = true
	b.geo.Stop()
	b.mu.Lock()
	b.pendingOut = nil
	b.mu.Unlock()
}

func (b *PtyBackend) Clear() {
	if b.detached {
		return
	}
	b.surface.Clear()
}

func (b *PtyBackend) ApplyTheme(theme Theme) {
	if b.detached {
		return
	}
	b.surface.ApplyTheme(theme)
}

func (b *PtyBackend) SetResizeSuspended(suspended bool) {
	b.geo.SetSuspended(suspended)
}

func (b *PtyBackend) RequestSync(req SyncRequest) {
	if b.detached {
		return
	}
	b.geo.Request(req)
}
