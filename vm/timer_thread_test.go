package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerExpired(t *testing.T) {
	assert.False(t, timerExpired(1005, 1000, 1010))
	assert.False(t, timerExpired(1010, 1000, 1010))
	assert.True(t, timerExpired(1011, 1000, 1010))
	assert.True(t, timerExpired(999, 1000, 1010))
	assert.True(t, timerExpired(1000, 1000, 1000))

	// Window wrapping past the top of the tick counter.
	start := uint32(0xFFFFFFF0)
	end := start + 0x20
	assert.False(t, timerExpired(0xFFFFFFF8, start, end))
	assert.False(t, timerExpired(0x8, start, end))
	assert.True(t, timerExpired(0x11, start, end))

	assert.Equal(t, uint32(8), durationElapsed(0xFFFFFFF8, start, end))
	assert.Equal(t, uint32(0x20), durationElapsed(0x50, start, end))
	assert.Equal(t, uint32(0), remaining(5, 9))
}

func TestTimerTerminatesAndNotifies(t *testing.T) {
	f := newFixture(t, "")
	caller := f.startHookThread(0x20001, 0)
	caller.Suspend()
	timer := f.engine.StartTimerThread(30, caller.ID())

	require.NoError(t, f.engine.RunFrame())
	assert.False(t, timer.Terminated())

	f.clock.Advance(31)
	require.NoError(t, f.engine.RunFrame())
	assert.True(t, timer.Terminated())
	assert.Equal(t, 0, caller.SuspendCount())
}

func TestTimerZeroDurationExpiresAtOnce(t *testing.T) {
	f := newFixture(t, "")
	timer := f.engine.StartTimerThread(0, 0)

	require.NoError(t, f.engine.RunFrame())
	assert.True(t, timer.Terminated())
}

func TestTimerInheritsCallerScene(t *testing.T) {
	f := newFixture(t, "")
	caller := f.startHookThread(0x20001, 0)
	caller.SetSceneID(0x10004)

	timer := f.engine.StartTimerThread(10, caller.ID())
	assert.Equal(t, uint32(0x10004), timer.SceneID())
}

func TestTimerPauseKeepsRemainingTime(t *testing.T) {
	f := newFixture(t, "")
	timer := f.engine.StartTimerThread(100, 0)

	f.clock.Advance(30)
	timer.Pause()
	f.clock.Advance(500)
	assert.Equal(t, uint32(70), timer.Remaining())
	timer.Unpause()
	assert.Equal(t, uint32(70), timer.Remaining())

	f.clock.Advance(70)
	require.NoError(t, f.engine.RunFrame())
	assert.False(t, timer.Terminated())

	f.clock.Advance(1)
	require.NoError(t, f.engine.RunFrame())
	assert.True(t, timer.Terminated())
}

func TestTimerPauseAndSuspendFreezeOnce(t *testing.T) {
	f := newFixture(t, "")
	timer := f.engine.StartTimerThread(100, 0)

	f.clock.Advance(30)
	timer.Pause()
	f.clock.Advance(10)
	timer.Suspend()
	f.clock.Advance(100)
	timer.Unpause()
	f.clock.Advance(100)
	assert.Equal(t, uint32(70), timer.Remaining())

	timer.Notify()
	assert.Equal(t, uint32(70), timer.Remaining())
}

func TestAbortableTimerEndsOnAbort(t *testing.T) {
	f := newFixture(t, "")
	plain := f.engine.StartTimerThread(100, 0)
	abortable := f.engine.StartAbortableTimerThread(100, 0)

	f.input.press(EventAbort)
	require.NoError(t, f.engine.RunFrame())

	assert.False(t, plain.Terminated())
	assert.True(t, abortable.Terminated())
}

func TestTimerInfo(t *testing.T) {
	f := newFixture(t, "")
	timer := f.engine.StartTimerThread(40, 0)
	f.clock.Advance(15)

	info := timer.Info()
	assert.Equal(t, KindTimer, info.Kind)
	assert.Equal(t, uint32(25), info.Remaining)
}
