package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKillThreadKillsDescendantsFirst(t *testing.T) {
	f := newFixture(t, "")
	a := f.startHookThread(0x20001, 0)
	b := f.startHookThread(0x20002, a.ID())
	other := f.startHookThread(0x20009, 0)
	c := f.startHookThread(0x20003, b.ID())

	f.engine.threads.KillThread(a.ID())

	assert.Equal(t, []ThreadID{c.ID(), b.ID(), a.ID()}, f.log.ids(EventThreadKilled))
	assert.Equal(t, []ThreadID{c.ID(), b.ID(), a.ID()}, f.objects.dead)
	assert.False(t, other.Terminated())
}

func TestKillThreadSiblingSubtreesInOrder(t *testing.T) {
	f := newFixture(t, "")
	root := f.startHookThread(0x20001, 0)
	left := f.startHookThread(0x20002, root.ID())
	right := f.startHookThread(0x20003, root.ID())
	leftChild := f.startHookThread(0x20004, left.ID())

	f.engine.threads.KillThread(root.ID())

	assert.Equal(t,
		[]ThreadID{leftChild.ID(), left.ID(), right.ID(), root.ID()},
		f.log.ids(EventThreadKilled))
}

func TestKillThreadSurvivesCallerCycle(t *testing.T) {
	f := newFixture(t, "")
	a := f.startHookThread(0x20001, 0x20002)
	b := f.startHookThread(0x20002, 0x20001)

	f.engine.threads.KillThread(a.ID())

	assert.True(t, a.Terminated())
	assert.True(t, b.Terminated())
	assert.Len(t, f.log.ids(EventThreadKilled), 2)
}

func TestKillThreadUnknownIsNoop(t *testing.T) {
	f := newFixture(t, "")
	f.engine.threads.KillThread(0x20042)
	f.engine.threads.KillThread(0)
	assert.Empty(t, f.log.ids(EventThreadKilled))
}

func TestUpdateThreadsDropsTerminated(t *testing.T) {
	f := newFixture(t, "")
	a := f.startHookThread(0x20001, 0, StatusTerminate)
	b := f.startHookThread(0x20002, 0, StatusRun, StatusRun, StatusYield)

	require.NoError(t, f.engine.threads.UpdateThreads())

	assert.True(t, a.Terminated())
	assert.Equal(t, 3, b.updates)
	assert.Equal(t, 1, f.engine.threads.Len())
	assert.Nil(t, f.engine.threads.FindThread(a.ID()))
}

func TestThreadStartedMidWalkIsVisited(t *testing.T) {
	f := newFixture(t, "")
	var late *hookThread
	first := f.startHookThread(0x20001, 0)
	first.step = func() {
		if late == nil {
			late = f.startHookThread(0x20002, 0)
		}
	}

	require.NoError(t, f.engine.threads.UpdateThreads())

	require.NotNil(t, late)
	assert.Equal(t, 1, late.updates)
}

func TestThreadKilledBeforeVisitIsSkipped(t *testing.T) {
	f := newFixture(t, "")
	var victim *hookThread
	first := f.startHookThread(0x20001, 0)
	first.step = func() {
		if victim == nil {
			victim = f.startHookThread(0x20002, 0)
			f.engine.threads.KillThread(victim.ID())
		}
	}

	require.NoError(t, f.engine.threads.UpdateThreads())

	assert.Equal(t, 0, victim.updates)
	assert.Equal(t, 1, f.engine.threads.Len())
}

func TestTargetedWakeUpdatesOnlyTarget(t *testing.T) {
	f := newFixture(t, "")
	a := f.startHookThread(0x20001, 0)
	b := f.startHookThread(0x20002, 0)
	f.engine.Wake(a.ID(), b.ID())

	require.NoError(t, f.engine.threads.UpdateThreads())

	assert.Equal(t, 1, a.updates)
	assert.Equal(t, 2, b.updates)
	assert.Equal(t, 1, f.log.count(EventWalk))
	assert.Equal(t, []ThreadID{b.ID()}, f.log.ids(EventWake))
}

func TestFullWakeRepeatsWalk(t *testing.T) {
	f := newFixture(t, "")
	a := f.startHookThread(0x20001, 0)
	a.step = func() {
		if a.updates == 1 {
			f.engine.RequestRerun(a.ID())
		}
	}

	require.NoError(t, f.engine.threads.UpdateThreads())

	assert.Equal(t, 2, a.updates)
	assert.Equal(t, 2, f.log.count(EventWalk))
}

func TestTerminateThreadChain(t *testing.T) {
	f := newFixture(t, "")
	a := f.startHookThread(0x20001, 0)
	b := f.startHookThread(0x20002, a.ID())
	other := f.startHookThread(0x20003, 0)

	f.engine.threads.TerminateThreadChain(b.ID())

	assert.True(t, a.Terminated())
	assert.True(t, b.Terminated())
	assert.False(t, other.Terminated())
}

func TestSceneBulkOperations(t *testing.T) {
	f := newFixture(t, "")
	tl := f.engine.threads
	a := f.startHookThread(0x20001, 0)
	b := f.startHookThread(0x20002, 0)
	c := f.startHookThread(0x20003, 0)
	a.SetSceneID(0x10001)
	b.SetSceneID(0x10001)
	c.SetSceneID(0x10002)

	tl.SuspendThreadsBySceneID(0x10001, a.ID())
	assert.Equal(t, 0, a.SuspendCount())
	assert.Equal(t, 1, b.SuspendCount())
	assert.Equal(t, 0, c.SuspendCount())

	tl.NotifyThreadsBySceneID(0x10001, 0)
	assert.Equal(t, 0, b.SuspendCount())

	tl.SetThreadSceneID(c.ID(), 0x10001)
	assert.Equal(t, uint32(0x10001), tl.ThreadSceneID(c.ID()))
	assert.Equal(t, uint32(0), tl.ThreadSceneID(0x20042))

	tl.TerminateThreadsBySceneID(0x10001, b.ID())
	assert.True(t, a.Terminated())
	assert.False(t, b.Terminated())
	assert.True(t, c.Terminated())
}

func TestExclusionBulkOperations(t *testing.T) {
	f := newFixture(t, "")
	tl := f.engine.threads
	a := f.startHookThread(0x20001, 0)
	b := f.startHookThread(0x20002, 0)

	tl.PauseThreads(a.ID())
	assert.Equal(t, 0, a.PauseCount())
	assert.Equal(t, 1, b.PauseCount())
	tl.UnpauseThreads(a.ID())
	assert.Equal(t, 0, b.PauseCount())

	tl.SuspendThreads(0)
	assert.Equal(t, 1, a.SuspendCount())
	assert.Equal(t, 1, b.SuspendCount())
	tl.NotifyThreads(b.ID())
	assert.Equal(t, 0, a.SuspendCount())
	assert.Equal(t, 1, b.SuspendCount())

	tl.PauseID(a.ID())
	assert.Equal(t, 1, a.PauseCount())
	tl.UnpauseID(a.ID())
	tl.SuspendID(a.ID())
	tl.NotifyID(a.ID())
	assert.False(t, a.Blocked())

	// b is suspended, so only a counts as active.
	tl.TerminateActiveThreads(0)
	assert.True(t, a.Terminated())
	assert.False(t, b.Terminated())

	tl.TerminateThreads(0)
	assert.True(t, b.Terminated())
}

func TestTimerBulkOperations(t *testing.T) {
	f := newFixture(t, "")
	tl := f.engine.threads
	mine := f.engine.StartTimerThread(100, 0x20001)
	theirs := f.engine.StartTimerThread(100, 0x20002)

	tl.SuspendTimerThreads(0x20001)
	assert.Equal(t, 1, mine.SuspendCount())
	assert.Equal(t, 0, theirs.SuspendCount())

	tl.NotifyTimerThreads(0x20001)
	assert.Equal(t, 0, mine.SuspendCount())
}

func TestEndTalkThreads(t *testing.T) {
	f := newFixture(t, "")
	tl := f.engine.threads
	caller := f.startHookThread(0x20001, 0)
	caller.Suspend()

	quiet := f.engine.StartTalkThread(0, 0, 1, 0, 0, caller.ID())
	tl.EndTalkThreadsNoNotify()
	assert.True(t, quiet.Terminated())
	assert.Equal(t, 1, caller.SuspendCount())

	loud := f.engine.StartTalkThread(0, 0, 1, 0, 0, caller.ID())
	tl.EndTalkThreads()
	assert.True(t, loud.Terminated())
	assert.Equal(t, 0, caller.SuspendCount())
	assert.False(t, caller.Terminated())
}

func TestIsActiveThread(t *testing.T) {
	f := newFixture(t, "")
	tl := f.engine.threads
	talk := f.engine.StartTalkThread(100, 0, 1, 0, 0, 0)

	assert.False(t, tl.IsActiveThread(MsgQueryTalkThreadActive))

	talk.status = talkPlaying
	assert.True(t, tl.IsActiveThread(MsgQueryTalkThreadActive))

	talk.Pause()
	assert.False(t, tl.IsActiveThread(MsgQueryTalkThreadActive))
}

func TestThreadsReturnsCopy(t *testing.T) {
	f := newFixture(t, "")
	f.startHookThread(0x20001, 0)

	threads := f.engine.threads.Threads()
	threads[0] = nil

	assert.NotNil(t, f.engine.threads.Threads()[0])
}
