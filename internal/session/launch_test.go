package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelldeck/internal/sched"
	"shelldeck/internal/term"
)

type launchFixture struct {
	clock        *sched.Manual
	interactive  *scriptBackend
	fallback     *scriptBackend
	factoryCalls int
	fallbackMsg  string
	states       []string
	reasons      []string
}

func newLaunchFixture() *launchFixture {
	return &launchFixture{
		clock:       sched.NewManual(),
		interactive: &scriptBackend{spawnOK: true},
		fallback:    &scriptBackend{},
	}
}

func (f *launchFixture) connect(l Launch) (term.Backend, *Controller, bool) {
	return Connect(f.clock, nil, l,
		func() term.Backend {
			f.factoryCalls++
			return f.interactive
		},
		func(msg string) term.Backend {
			f.fallbackMsg = msg
			return f.fallback
		},
		func(s string) { f.states = append(f.states, s) },
		func(r string) { f.reasons = append(f.reasons, r) })
}

func TestConnectMissingIdentitySkipsSpawn(t *testing.T) {
	f := newLaunchFixture()

	missing := filepath.Join(t.TempDir(), "id_absent")
	backend, ctrl, ok := f.connect(Launch{
		Argv:         []string{"ssh", "-tt", "-i", missing, "host"},
		IdentityFile: missing,
		Label:        "test-host",
	})

	assert.False(t, ok)
	assert.Same(t, f.fallback, backend)
	assert.Zero(t, f.factoryCalls)
	assert.Zero(t, f.interactive.spawns)
	assert.Equal(t, StateError, ctrl.State())
	assert.Equal(t, []string{StateError}, f.states)
	assert.Contains(t, f.fallbackMsg, missing)
}

func TestConnectExistingIdentitySpawns(t *testing.T) {
	f := newLaunchFixture()

	ident := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(ident, []byte("key"), 0o600))

	backend, ctrl, ok := f.connect(Launch{
		Argv:         []string{"ssh", "-tt", "-i", ident, "host"},
		IdentityFile: ident,
		Label:        "test-host",
	})

	assert.True(t, ok)
	assert.Same(t, f.interactive, backend)
	assert.Equal(t, 1, f.interactive.spawns)
	assert.Equal(t, StateConnected, ctrl.State())
	assert.Equal(t, []string{StateConnecting, StateConnected}, f.states)
}

func TestConnectSpawnFailureSwapsToFallback(t *testing.T) {
	f := newLaunchFixture()
	f.interactive.spawnOK = false

	backend, ctrl, ok := f.connect(Launch{
		Argv:    []string{"ssh", "-tt", "host"},
		Display: "ssh -tt host",
		Label:   "test-host",
	})

	assert.False(t, ok)
	assert.Same(t, f.fallback, backend)
	assert.Equal(t, []string{"spawn", "detach_ui"}, f.interactive.actions)
	assert.Equal(t, StateError, ctrl.State())
	assert.Equal(t, []string{StateConnecting, StateError}, f.states)
	assert.Contains(t, f.fallbackMsg, "ssh -tt host")
}
