package vm

import (
	"testing"

	"github.com/chazu/illusions/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	talkObject = 0x40020
	talkLine   = 0x70001
	talkSeq1   = 0x60011
	talkSeq2   = 0x60012
)

func newTalkFixture(t *testing.T) *fixture {
	t.Helper()
	opts := DefaultOptions()
	opts.MinTextDuration = 0
	opts.MaxTextDuration = 0
	f := newFixtureWith(t, script.MustAssemble("yield", script.DialectPacked), opts)
	f.sound.active = true
	f.sound.cueOK = true
	f.sound.cued = true
	f.talk[talkLine] = TalkEntry{Text: "hello world", VoiceName: "v1", Table: 7}
	return f
}

func TestTalkZeroDurationLoadsEntryOnSecondUpdate(t *testing.T) {
	f := newTalkFixture(t)
	f.sound.cued = false
	tt := f.engine.StartTalkThread(0, talkObject, talkLine, 0, 0, 0)
	require.Equal(t, talkWaitVoiceDelay, tt.Status())

	status, err := tt.Update()
	require.NoError(t, err)

	assert.Equal(t, StatusYield, status)
	assert.Equal(t, talkLoadEntry, tt.Status())
	assert.Empty(t, f.sound.calls)

	_, err = tt.Update()
	require.NoError(t, err)
	assert.Equal(t, talkWaitVoiceCue, tt.Status())
	assert.Equal(t, []string{"cue v1"}, f.sound.calls)
	assert.Equal(t, talkFlagNoSequence|talkFlagSequenceCleared, tt.Flags())
}

func TestTalkVoiceDelayGoesPendingBehindOtherTalk(t *testing.T) {
	f := newTalkFixture(t)
	first := f.engine.StartTalkThread(0, 0, talkLine, 0, 0, 0)
	first.status = talkPlaying
	tt := f.engine.StartTalkThread(0, 0, talkLine, 0, 0, 0)

	status, err := tt.Update()
	require.NoError(t, err)
	assert.Equal(t, StatusYield, status)
	assert.Equal(t, talkStartPending, tt.Status())
	assert.Empty(t, f.sound.calls)
}

// leaveVoiceDelay steps a zero-delay talk thread out of its first state.
func leaveVoiceDelay(t *testing.T, tt *TalkThread) {
	t.Helper()
	_, err := tt.Update()
	require.NoError(t, err)
	require.Equal(t, talkLoadEntry, tt.Status())
}

func TestTalkPlaysTextChunksAndSequences(t *testing.T) {
	f := newTalkFixture(t)
	f.text.chunk = 5
	ctl := f.objects.add(talkObject)
	caller := f.startHookThread(0x20001, 0)
	caller.Suspend()
	tt := f.engine.StartTalkThread(0, talkObject, talkLine, talkSeq1, talkSeq2, caller.ID())

	require.NoError(t, f.engine.RunFrame())
	assert.Equal(t, talkLoadEntry, tt.Status())
	assert.Empty(t, f.text.shown)
	require.NoError(t, f.engine.RunFrame())
	assert.Equal(t, talkPlaying, tt.Status())
	assert.Equal(t, []string{"hello"}, f.text.shown)
	assert.True(t, f.sound.playing)

	f.sound.playing = false
	for i := 0; i < 10 && !tt.Terminated(); i++ {
		f.clock.Advance(5)
		require.NoError(t, f.engine.RunFrame())
	}

	require.True(t, tt.Terminated())
	assert.Equal(t, []string{"hello", " worl", "d"}, f.text.shown)
	assert.Equal(t, []string{
		"talk 60011 7 " + tt.ID().String(),
		"seq 60012 2 00000000",
		"clear2",
	}, ctl.calls)
	assert.Equal(t, 0, caller.SuspendCount())
	assert.Equal(t, 1, f.engine.threads.Len())
}

func TestTalkWaitsForOtherTalk(t *testing.T) {
	f := newTalkFixture(t)
	first := f.engine.StartTalkThread(0, talkObject, talkLine, 0, 0, 0)
	require.NoError(t, f.engine.RunFrame())
	require.NoError(t, f.engine.RunFrame())
	require.Equal(t, talkPlaying, first.Status())

	second := f.engine.StartTalkThread(0, talkObject, talkLine, 0, 0, 0)
	require.NoError(t, f.engine.RunFrame())
	assert.Equal(t, talkStartPending, second.Status())
}

func TestTalkSkipAdvancesTextThenCutsVoice(t *testing.T) {
	f := newTalkFixture(t)
	f.text.chunk = 5
	tt := f.engine.StartTalkThread(0, talkObject, talkLine, 0, 0, 0)
	leaveVoiceDelay(t, tt)
	_, err := tt.Update()
	require.NoError(t, err)
	require.Equal(t, talkPlaying, tt.Status())

	f.input.press(EventSkip)
	_, err = tt.Update()
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", " worl"}, f.text.shown)
	assert.True(t, f.sound.playing)

	f.input.press(EventSkip)
	_, err = tt.Update()
	require.NoError(t, err)
	f.input.press(EventSkip)
	_, err = tt.Update()
	require.NoError(t, err)

	assert.Equal(t, []string{"hello", " worl", "d"}, f.text.shown)
	assert.False(t, f.sound.playing)
	assert.NotZero(t, tt.Flags()&talkFlagVoiceDone)
	assert.NotZero(t, tt.Flags()&talkFlagTextDone)

	for i := 0; i < 3 && !tt.Terminated(); i++ {
		_, err = tt.Update()
		require.NoError(t, err)
	}
	assert.True(t, tt.Terminated())
}

func TestTalkKillDetachesSequences(t *testing.T) {
	f := newTalkFixture(t)
	ctl := f.objects.add(talkObject)
	caller := f.startHookThread(0x20001, 0)
	caller.Suspend()
	tt := f.engine.StartTalkThread(0, talkObject, talkLine, talkSeq1, talkSeq2, caller.ID())
	require.NoError(t, f.engine.RunFrame())
	require.NoError(t, f.engine.RunFrame())
	require.Equal(t, talkPlaying, tt.Status())

	f.engine.threads.KillThread(tt.ID())

	assert.True(t, tt.Terminated())
	assert.Equal(t, 1, caller.SuspendCount())
	assert.Equal(t, []ThreadID{tt.ID()}, f.objects.dead)
	assert.Equal(t, []string{"talk 60011 7 " + tt.ID().String()}, ctl.calls)
	assert.Equal(t, 1, f.text.removed)
	assert.False(t, f.sound.playing)
}

func TestTalkTerminatedExternallyCleansUp(t *testing.T) {
	f := newTalkFixture(t)
	ctl := f.objects.add(talkObject)
	caller := f.startHookThread(0x20001, 0)
	caller.Suspend()
	tt := f.engine.StartTalkThread(0, talkObject, talkLine, talkSeq1, talkSeq2, caller.ID())
	require.NoError(t, f.engine.RunFrame())
	require.NoError(t, f.engine.RunFrame())

	f.engine.threads.EndTalkThreads()
	tt.Terminate()

	assert.Equal(t, 0, caller.SuspendCount())
	assert.Equal(t, 1, f.text.removed)
	assert.Contains(t, ctl.calls, "seq 60012 2 00000000")
	assert.Equal(t, 1, countOf(f.sound.calls, "stop"))
}

func TestTalkWithoutControlDropsSequences(t *testing.T) {
	f := newTalkFixture(t)
	tt := f.engine.StartTalkThread(0, talkObject, talkLine, talkSeq1, talkSeq2, 0x20001)
	leaveVoiceDelay(t, tt)
	_, err := tt.Update()
	require.NoError(t, err)

	assert.Equal(t, talkPlaying, tt.Status())
	assert.NotZero(t, tt.Flags()&talkFlagSequenceCleared)
}

func TestTalkWithoutCallerDropsFollowUpSequence(t *testing.T) {
	f := newTalkFixture(t)
	ctl := f.objects.add(talkObject)
	f.talk[talkLine] = TalkEntry{VoiceName: "v1", Table: 7}
	tt := f.engine.StartTalkThread(0, talkObject, talkLine, talkSeq1, talkSeq2, 0)

	f.sound.playing = false
	for i := 0; i < 6 && !tt.Terminated(); i++ {
		require.NoError(t, f.engine.RunFrame())
		f.sound.playing = false
	}

	require.True(t, tt.Terminated())
	assert.Equal(t, []string{"talk 60011 7 " + tt.ID().String(), "clear2"}, ctl.calls)
}

func TestTalkPauseDuringVoiceDelay(t *testing.T) {
	f := newTalkFixture(t)
	tt := f.engine.StartTalkThread(100, 0, talkLine, 0, 0, 0)

	f.clock.Advance(30)
	tt.Pause()
	f.clock.Advance(1000)
	tt.Unpause()

	f.clock.Advance(70)
	_, err := tt.Update()
	require.NoError(t, err)
	assert.Equal(t, talkWaitVoiceDelay, tt.Status())

	f.clock.Advance(1)
	_, err = tt.Update()
	require.NoError(t, err)
	assert.Greater(t, tt.Status(), talkWaitVoiceDelay)
}

func TestTalkPauseWhileCueingRecues(t *testing.T) {
	f := newTalkFixture(t)
	f.sound.cued = false
	tt := f.engine.StartTalkThread(0, 0, talkLine, 0, 0, 0)
	leaveVoiceDelay(t, tt)
	_, err := tt.Update()
	require.NoError(t, err)
	require.Equal(t, talkWaitVoiceCue, tt.Status())

	tt.Pause()
	tt.Unpause()

	assert.Equal(t, []string{"cue v1", "stop", "cue v1"}, f.sound.calls)
}

func TestTalkPauseWhilePlayingRebasesText(t *testing.T) {
	f := newTalkFixture(t)
	f.talk[talkLine] = TalkEntry{Text: "abcdefghijklmnopqrst", VoiceName: "v1"}
	tt := f.engine.StartTalkThread(0, 0, talkLine, 0, 0, 0)
	leaveVoiceDelay(t, tt)
	_, err := tt.Update()
	require.NoError(t, err)
	require.Equal(t, uint32(16), tt.textDuration)

	f.clock.Advance(6)
	tt.Suspend()
	f.clock.Advance(100)
	tt.Notify()

	assert.Equal(t, uint32(10), tt.textEndTime-tt.textStartTime)
	assert.Equal(t, f.clock.Now, tt.textStartTime)
	assert.Equal(t, []string{"cue v1", "start", "pause", "resume"}, f.sound.calls)
}

func TestTalkTextDurationIsClipped(t *testing.T) {
	f := newTalkFixture(t)
	f.engine.opts.MinTextDuration = 60
	f.engine.opts.MaxTextDuration = 100
	tt := f.engine.StartTalkThread(0, 0, talkLine, 0, 0, 0)
	leaveVoiceDelay(t, tt)
	_, err := tt.Update()
	require.NoError(t, err)

	assert.Equal(t, uint32(60), tt.textDuration)
}

func TestTalkMessages(t *testing.T) {
	f := newTalkFixture(t)
	f.objects.add(talkObject)
	tt := f.engine.StartTalkThread(10, talkObject, talkLine, talkSeq1, talkSeq2, 0x20001)

	assert.Equal(t, uint32(0), tt.SendMessage(MsgQueryTalkThreadActive, 0))
	tt.status = talkWaitVoiceCue
	assert.Equal(t, uint32(1), tt.SendMessage(MsgQueryTalkThreadActive, 0))

	tt.SendMessage(MsgClearSequenceID1, 0)
	assert.Equal(t, uint32(0), tt.sequenceID1)
	assert.Equal(t, talkFlagNoSequence|talkFlagSequenceCleared, tt.Flags()&3)

	tt.SendMessage(MsgClearSequenceID2, 0)
	assert.Equal(t, uint32(0), tt.sequenceID2)
}

func countOf(items []string, want string) int {
	n := 0
	for _, s := range items {
		if s == want {
			n++
		}
	}
	return n
}
