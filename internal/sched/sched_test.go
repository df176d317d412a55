package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualAdvanceFiresInDeadlineOrder(t *testing.T) {
	m := NewManual()
	var order []string

	m.After(50*time.Millisecond, func() { order = append(order, "b") })
	m.After(20*time.Millisecond, func() { order = append(order, "a") })
	m.After(120*time.Millisecond, func() { order = append(order, "c") })

	m.Advance(60 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, m.Pending())

	m.Advance(60 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, m.Pending())
}

func TestManualStopCancelsDelivery(t *testing.T) {
	m := NewManual()
	fired := false
	timer := m.After(30*time.Millisecond, func() { fired = true })
	timer.Stop()
	timer.Stop() // second stop is a no-op

	m.Advance(100 * time.Millisecond)
	assert.False(t, fired)
}

func TestManualCallbackCanArmFollowup(t *testing.T) {
	m := NewManual()
	var order []string
	m.After(10*time.Millisecond, func() {
		order = append(order, "first")
		m.After(10*time.Millisecond, func() { order = append(order, "second") })
	})

	m.Advance(25 * time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestLoopDispatchesThroughCallback(t *testing.T) {
	ran := make(chan struct{}, 1)
	loop := NewLoop(func(fn func()) { fn() })

	loop.Do(func() { ran <- struct{}{} })
	require.Len(t, ran, 1)
	<-ran

	timer := loop.After(time.Millisecond, func() { ran <- struct{}{} })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("timer callback not delivered")
	}
	timer.Stop()
}

func TestLoopStopBeforeFireSuppressesCallback(t *testing.T) {
	loop := NewLoop(func(fn func()) { fn() })
	fired := make(chan struct{}, 1)
	timer := loop.After(50*time.Millisecond, func() { fired <- struct{}{} })
	timer.Stop()

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(120 * time.Millisecond):
	}
}
