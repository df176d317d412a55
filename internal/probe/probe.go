// Package probe checks host reachability in the background so the
// sidebar can show status dots. Probes run on worker goroutines; every
// result is handed back through the application loop, never by touching
// shared state from a worker.
package probe

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"shelldeck/internal/sched"
)

// Result is the outcome of one reachability check.
type Result struct {
	HostID    int64
	Reachable bool
	Latency   time.Duration
	Err       string
}

// Target identifies one probe subject.
type Target struct {
	HostID   int64
	Hostname string
	Port     int
}

const (
	defaultPort    = 22
	defaultTimeout = 3 * time.Second
	workerCount    = 4
)

// Dial is the probe's network seam, swapped in tests.
type Dial func(network, address string, timeout time.Duration) (net.Conn, error)

// Prober fans probe batches out over a small worker pool.
type Prober struct {
	scheduler sched.Scheduler
	logger    *log.Logger
	dial      Dial
	timeout   time.Duration

	mu         sync.Mutex
	generation int
}

// NewProber builds a prober. dial may be nil to use net.DialTimeout.
func NewProber(scheduler sched.Scheduler, logger *log.Logger, dial Dial) *Prober {
	if logger == nil {
		logger = log.Default()
	}
	if dial == nil {
		dial = net.DialTimeout
	}
	return &Prober{
		scheduler: scheduler,
		logger:    logger,
		dial:      dial,
		timeout:   defaultTimeout,
	}
}

// Run probes targets and delivers each result through onResult on the
// application loop. A newer Run supersedes older ones: their leftover
// results are dropped.
func (p *Prober) Run(targets []Target, onResult func(Result)) {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	jobs := make(chan Target, len(targets))
	for _, t := range targets {
		jobs <- t
	}
	close(jobs)

	workers := workerCount
	if len(targets) < workers {
		workers = len(targets)
	}
	for i := 0; i < workers; i++ {
		go func() {
			for t := range jobs {
				res := p.probeOne(t)
				p.scheduler.Do(func() {
					p.mu.Lock()
					stale := gen != p.generation
					p.mu.Unlock()
					if stale {
						return
					}
					onResult(res)
				})
			}
		}()
	}
}

// Cancel drops results from any in-flight batch.
func (p *Prober) Cancel() {
	p.mu.Lock()
	p.generation++
	p.mu.Unlock()
}

func (p *Prober) probeOne(t Target) Result {
	port := t.Port
	if port == 0 {
		port = defaultPort
	}
	addr := net.JoinHostPort(t.Hostname, strconv.Itoa(port))

	start := time.Now()
	conn, err := p.dial("tcp", addr, p.timeout)
	if err != nil {
		return Result{HostID: t.HostID, Err: fmt.Sprintf("dial %s: %v", addr, err)}
	}
	conn.Close()
	return Result{HostID: t.HostID, Reachable: true, Latency: time.Since(start)}
}
