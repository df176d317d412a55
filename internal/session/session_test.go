package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelldeck/internal/sched"
	"shelldeck/internal/term"
)

// scriptBackend records the actions the controller takes.
type scriptBackend struct {
	alive   bool
	spawnOK bool
	spawns  int
	actions []string
	exitFn  func(int)
	onTerm  func()
	onKill  func()
}

func (b *scriptBackend) Spawn(argv, env []string, dir string) bool {
	b.spawns++
	b.actions = append(b.actions, "spawn")
	if b.spawnOK {
		b.alive = true
	}
	return b.spawnOK
}
func (b *scriptBackend) Write(p []byte) { b.actions = append(b.actions, "write") }
func (b *scriptBackend) RequestExit()   { b.actions = append(b.actions, "request_exit") }
func (b *scriptBackend) Terminate() {
	b.actions = append(b.actions, "terminate")
	if b.onTerm != nil {
		b.onTerm()
	}
}
func (b *scriptBackend) Kill() {
	b.actions = append(b.actions, "kill")
	if b.onKill != nil {
		b.onKill()
	}
}
func (b *scriptBackend) Alive() bool                  { return b.alive }
func (b *scriptBackend) DetachUI()                    { b.actions = append(b.actions, "detach_ui") }
func (b *scriptBackend) Clear()                       {}
func (b *scriptBackend) ApplyTheme(term.Theme)        {}
func (b *scriptBackend) SetResizeSuspended(bool)      {}
func (b *scriptBackend) RequestSync(term.SyncRequest) {}
func (b *scriptBackend) SetExitHandler(fn func(int))  { b.exitFn = fn }

type fixture struct {
	clock   *sched.Manual
	backend *scriptBackend
	ctl     *Controller
	states  []string
	reasons []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:   sched.NewManual(),
		backend: &scriptBackend{spawnOK: true},
	}
	f.ctl = NewController(f.clock, nil, f.backend, "test-host")
	f.ctl.OnStateChange(func(s string) { f.states = append(f.states, s) })
	f.ctl.OnClosed(func(r string) { f.reasons = append(f.reasons, r) })
	return f
}

func TestStartSuccessTransitionsToConnected(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))
	assert.Equal(t, []string{StateConnecting, StateConnected}, f.states)
	assert.Equal(t, StateConnected, f.ctl.State())
}

func TestStartTwiceSpawnsOnce(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))
	assert.False(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))
	assert.Equal(t, 1, f.backend.spawns)
}

func TestStartFailureEntersErrorState(t *testing.T) {
	f := newFixture(t)
	f.backend.spawnOK = false
	assert.False(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))
	assert.Equal(t, []string{StateConnecting, StateError}, f.states)
}

func TestRequestCloseWhileDeadFinalizesImmediately(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))
	f.backend.alive = false

	f.ctl.RequestClose("user_disconnect")
	assert.Equal(t, StateClosed, f.ctl.State())
	assert.Equal(t, []string{"no_process"}, f.reasons)
	assert.Zero(t, f.clock.Pending())
}

func TestGracefulCloseAfterExitDuringGrace(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))

	f.ctl.RequestClose("user_disconnect")
	assert.Equal(t, StateClosing, f.ctl.State())
	assert.Contains(t, f.backend.actions, "detach_ui")
	assert.Contains(t, f.backend.actions, "request_exit")

	// shell obeys the exit request before the grace timer fires
	f.backend.alive = false
	f.backend.exitFn(0)

	assert.Equal(t, StateClosed, f.ctl.State())
	assert.Equal(t, []string{"user_disconnect"}, f.reasons)
	assert.NotContains(t, f.backend.actions, "terminate")
}

func TestEscalationLadderOrderWhenProcessIgnoresEverything(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))

	f.ctl.RequestClose("user_disconnect")
	f.clock.Advance(800 * time.Millisecond)
	f.clock.Advance(700 * time.Millisecond)
	f.clock.Advance(150 * time.Millisecond)

	assert.Equal(t, []string{"spawn", "detach_ui", "request_exit", "terminate", "kill"}, f.backend.actions)
	assert.Equal(t, []string{"force_timeout"}, f.reasons)
	assert.Equal(t, StateClosed, f.ctl.State())
}

func TestGraceTimerSkipsTerminateWhenProcessDied(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))

	f.ctl.RequestClose("user_disconnect")
	f.backend.alive = false
	f.clock.Advance(time.Second)

	assert.NotContains(t, f.backend.actions, "terminate")
	assert.Equal(t, []string{"grace_complete"}, f.reasons)
}

func TestTerminateSettlesBeforeKillTimer(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))
	f.backend.onTerm = func() { f.backend.alive = false }

	f.ctl.RequestClose("user_disconnect")
	f.clock.Advance(800 * time.Millisecond)
	f.clock.Advance(700 * time.Millisecond)

	assert.NotContains(t, f.backend.actions, "kill")
	assert.Equal(t, []string{"terminated"}, f.reasons)
}

func TestRequestCloseTwiceRunsOneLadder(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))

	f.ctl.RequestClose("user_disconnect")
	f.ctl.RequestClose("user_disconnect")

	count := 0
	for _, a := range f.backend.actions {
		if a == "request_exit" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	f.clock.Advance(2 * time.Second)
	assert.Len(t, f.reasons, 1)
}

func TestUnsolicitedExitFinalizesWithSyntheticReason(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))

	f.backend.alive = false
	f.backend.exitFn(255)

	assert.Equal(t, StateClosed, f.ctl.State())
	assert.Equal(t, []string{"process_exited"}, f.reasons)
	assert.Equal(t, []string{StateConnecting, StateConnected, StateClosed}, f.states)
}

func TestForceKillSkipsGraceLadder(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))

	f.ctl.ForceKill("terminal_destroyed")
	assert.Contains(t, f.backend.actions, "kill")
	assert.NotContains(t, f.backend.actions, "terminate")
	assert.NotContains(t, f.backend.actions, "request_exit")

	f.clock.Advance(150 * time.Millisecond)
	assert.Equal(t, []string{"force_kill"}, f.reasons)
	assert.Equal(t, StateClosed, f.ctl.State())
}

func TestSetErrorBeforeStart(t *testing.T) {
	f := newFixture(t)
	f.ctl.SetError("identity_missing")
	assert.Equal(t, StateError, f.ctl.State())
	assert.Equal(t, []string{StateError}, f.states)
	assert.Zero(t, f.backend.spawns)
}

func TestClosedHandlerWithoutConnectedOnExitBeforeClose(t *testing.T) {
	f := newFixture(t)
	f.backend.spawnOK = false
	f.ctl.Start([]string{"ssh", "host"}, nil, "")

	// a later exit notification against the error state still closes
	f.backend.exitFn(1)
	assert.Equal(t, []string{"process_exited"}, f.reasons)
	assert.NotContains(t, f.states, StateConnected)
}

func TestStaleTimersNeverFireAfterFinalize(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Start([]string{"ssh", "host"}, nil, ""))

	f.ctl.RequestClose("user_disconnect")
	f.backend.alive = false
	f.backend.exitFn(0)
	require.Equal(t, StateClosed, f.ctl.State())

	f.clock.Advance(5 * time.Second)
	assert.Len(t, f.reasons, 1)
	assert.NotContains(t, f.backend.actions, "terminate")
	assert.NotContains(t, f.backend.actions, "kill")
}
