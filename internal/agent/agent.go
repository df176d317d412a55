// Package agent provides a read-only diagnostic of the user's ssh-agent:
// whether SSH_AUTH_SOCK points at a live agent and which keys it holds.
// It never adds, removes or uses keys.
package agent

import (
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	sshagent "golang.org/x/crypto/ssh/agent"

	"shelldeck/internal/sched"
)

// State summarizes the agent diagnostic.
type State string

const (
	StateOff      State = "off"
	StateOKKeys   State = "ok_keys"
	StateOKNoKeys State = "ok_no_keys"
	StateError    State = "error"
)

// KeyInfo describes one loaded key.
type KeyInfo struct {
	Fingerprint string
	Comment     string
}

// Snapshot is one observation of the agent.
type Snapshot struct {
	Enabled          bool
	AuthSock         string
	SocketExists     bool
	SocketIsSocket   bool
	Reachable        bool
	Keys             []KeyInfo
	LastChecked      time.Time
	LastError        string
	State            State
	DetectedWhileOff bool
}

const dialTimeout = 2 * time.Second

// Probe inspects the agent behind sock. It blocks for up to the dial
// timeout, so callers run it off the loop.
func Probe(sock string) Snapshot {
	snap := Snapshot{
		Enabled:     true,
		AuthSock:    sock,
		LastChecked: time.Now(),
	}

	if sock == "" {
		snap.State = StateOff
		snap.LastError = "SSH_AUTH_SOCK not set"
		return snap
	}

	info, err := os.Stat(sock)
	if err != nil {
		snap.State = StateOff
		snap.LastError = "SSH_AUTH_SOCK path missing"
		return snap
	}
	snap.SocketExists = true
	if info.Mode()&os.ModeSocket == 0 {
		snap.State = StateOff
		snap.LastError = "SSH_AUTH_SOCK is not a socket"
		return snap
	}
	snap.SocketIsSocket = true

	conn, err := net.DialTimeout("unix", sock, dialTimeout)
	if err != nil {
		snap.State = StateError
		snap.LastError = fmt.Sprintf("agent dial failed: %v", err)
		return snap
	}
	defer conn.Close()

	keys, err := sshagent.NewClient(conn).List()
	if err != nil {
		snap.State = StateError
		snap.LastError = fmt.Sprintf("agent list failed: %v", err)
		return snap
	}

	snap.Reachable = true
	for _, k := range keys {
		snap.Keys = append(snap.Keys, KeyInfo{
			Fingerprint: ssh.FingerprintSHA256(k),
			Comment:     k.Comment,
		})
	}
	if len(snap.Keys) > 0 {
		snap.State = StateOKKeys
	} else {
		snap.State = StateOKNoKeys
	}
	return snap
}

// Monitor refreshes the diagnostic on a worker goroutine and hands
// snapshots back on the application loop.
type Monitor struct {
	scheduler sched.Scheduler
	logger    *log.Logger
	probe     func(sock string) Snapshot
	sockFn    func() string

	enabled   bool
	requestID int
	onChange  func(Snapshot)
	last      *Snapshot
}

// NewMonitor builds a monitor. probe may be nil to use the real one.
func NewMonitor(scheduler sched.Scheduler, logger *log.Logger, probe func(string) Snapshot) *Monitor {
	if logger == nil {
		logger = log.Default()
	}
	if probe == nil {
		probe = Probe
	}
	return &Monitor{
		scheduler: scheduler,
		logger:    logger,
		probe:     probe,
		sockFn:    func() string { return os.Getenv("SSH_AUTH_SOCK") },
		enabled:   true,
	}
}

// SetEnabled records the user's use-agent preference. A disabled
// monitor still probes so it can report an agent detected while off.
func (m *Monitor) SetEnabled(enabled bool) { m.enabled = enabled }

// OnChange registers the snapshot consumer. Delivered on the loop.
func (m *Monitor) OnChange(fn func(Snapshot)) { m.onChange = fn }

// Last returns the most recent snapshot, or nil before the first
// refresh completes.
func (m *Monitor) Last() *Snapshot { return m.last }

// Refresh runs one probe. A refresh started while an older one is in
// flight supersedes it; the stale result is dropped.
func (m *Monitor) Refresh() {
	m.requestID++
	id := m.requestID
	sock := m.sockFn()
	enabled := m.enabled

	go func() {
		snap := m.probe(sock)
		snap.Enabled = enabled
		if !enabled {
			snap.DetectedWhileOff = snap.Reachable
			snap.State = StateOff
		}
		m.scheduler.Do(func() {
			if id != m.requestID {
				return
			}
			m.last = &snap
			if snap.LastError != "" {
				m.logger.Printf("ssh-agent check: state=%s err=%s", snap.State, snap.LastError)
			}
			if m.onChange != nil {
				m.onChange(snap)
			}
		})
	}()
}
