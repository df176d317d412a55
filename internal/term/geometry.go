package term

import (
	"log"
	"time"

	"shelldeck/internal/sched"
)

// Trigger classifies what asked for a geometry sync. Resize events get
// a longer debounce to absorb drag storms; everything else settles
// faster.
type Trigger int

const (
	TriggerResize Trigger = iota
	TriggerFocus
	TriggerWindowState
	TriggerExplicit
	TriggerOutput
)

const (
	resizeDebounce  = 120 * time.Millisecond
	genericDebounce = 50 * time.Millisecond
)

// SyncRequest asks for one geometry synchronization. Immediate bypasses
// debouncing but still honors the re-entrancy guard.
type SyncRequest struct {
	Trigger   Trigger
	Immediate bool
}

// GeometrySync keeps the pty's row/column count consistent with the
// surface's pixel size. It owns exactly one debounce timer; arming it
// cancels whatever was pending.
type GeometrySync struct {
	scheduler sched.Scheduler
	logger    *log.Logger
	surface   Surface
	resizePty func(cols, rows int) error

	timer     sched.Timer
	syncing   bool
	rerun     bool
	suspended bool
	pending   bool

	lastCols int
	lastRows int
}

// NewGeometrySync wires the engine to a surface and a pty resize call.
// resizePty may be nil while no process exists.
func NewGeometrySync(scheduler sched.Scheduler, logger *log.Logger, surface Surface, resizePty func(cols, rows int) error) *GeometrySync {
	if logger == nil {
		logger = log.Default()
	}
	return &GeometrySync{
		scheduler: scheduler,
		logger:    logger,
		surface:   surface,
		resizePty: resizePty,
	}
}

// SetResizePty swaps the pty resize call, e.g. after a (re)spawn.
func (g *GeometrySync) SetResizePty(fn func(cols, rows int) error) {
	g.resizePty = fn
	g.lastCols = 0
	g.lastRows = 0
}

// Request schedules a synchronization pass for req.
func (g *GeometrySync) Request(req SyncRequest) {
	if g.suspended {
		g.pending = true
		return
	}
	if req.Immediate {
		g.stopTimer()
		g.runPass()
		return
	}
	delay := genericDebounce
	if req.Trigger == TriggerResize {
		delay = resizeDebounce
	}
	g.stopTimer()
	g.timer = g.scheduler.After(delay, func() {
		g.timer = nil
		g.runPass()
	})
}

// SetSuspended toggles suspension. Triggers arriving while suspended
// are captured as pending and replayed once suspension lifts.
func (g *GeometrySync) SetSuspended(suspended bool) {
	if g.suspended == suspended {
		return
	}
	g.suspended = suspended
	if !suspended && g.pending {
		g.pending = false
		g.runPass()
	}
}

// Stop cancels any pending debounce. Called on teardown so a stale
// timer cannot fire against a destroyed surface.
func (g *GeometrySync) Stop() {
	g.stopTimer()
	g.pending = false
}

func (g *GeometrySync) stopTimer() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// runPass executes one synchronization. A request arriving while a pass
// is in flight is deferred and re-run afterwards, never run
// concurrently.
func (g *GeometrySync) runPass() {
	if g.syncing {
		g.rerun = true
		return
	}
	g.syncing = true

	g.guard("layout sync", g.surface.SyncLayout)
	g.guard("size refresh", g.surface.RefreshSize)
	g.guard("scroll clamp", g.surface.ClampScroll)
	g.guard("repaint", g.surface.Repaint)
	g.syncPty()

	g.syncing = false
	if g.rerun {
		g.rerun = false
		g.runPass()
	}
}

func (g *GeometrySync) syncPty() {
	cols, rows := g.surface.GridSize()
	if cols <= 0 || rows <= 0 {
		g.logger.Printf("geometry: rejecting invalid grid %dx%d", cols, rows)
		return
	}
	if g.resizePty == nil {
		return
	}
	if cols == g.lastCols && rows == g.lastRows {
		return
	}
	if err := g.resizePty(cols, rows); err != nil {
		g.logger.Printf("geometry: pty resize to %dx%d failed: %v", cols, rows, err)
		return
	}
	g.lastCols = cols
	g.lastRows = rows
}

func (g *GeometrySync) guard(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Printf("geometry: %s failed: %v", step, r)
		}
	}()
	fn()
}
