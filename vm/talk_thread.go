package vm

// Messages answered by talk threads through SendMessage.
const (
	MsgQueryTalkThreadActive = 0
	MsgClearSequenceID1      = 1
	MsgClearSequenceID2      = 2
)

// Talk thread states.
const (
	talkWaitVoiceDelay = 1 // initial delay before the line starts
	talkStartPending   = 2 // waiting for other talk threads to finish
	talkLoadEntry      = 3
	talkWaitVoiceCue   = 4
	talkStart          = 5
	talkPlaying        = 6
	talkDone           = 7
)

// Talk flag bits. Bit 1 is only ever set together with
// talkFlagSequenceCleared, when there is no actor sequence at all.
const (
	talkFlagNoSequence      = 1
	talkFlagSequenceCleared = 2
	talkFlagVoiceDone       = 4
	talkFlagTextDone        = 8
)

// textCharsPerUnit divides charCount*durationMult into ticks.
const textCharsPerUnit = 20

// TalkThread plays one line of dialogue: voice, subtitle text and the
// speaking actor's talk sequence.
type TalkThread struct {
	Thread
	status int
	flags  int

	objectID    uint32
	talkID      uint32
	sequenceID1 uint32
	sequenceID2 uint32

	durationMult uint32

	entryText  string
	entryTable uint32
	voiceName  string

	textDuration        uint32
	textStartTime       uint32
	textEndTime         uint32
	textDurationElapsed uint32

	voiceDuration        uint32
	voiceStartTime       uint32
	voiceEndTime         uint32
	voiceDurationElapsed uint32
}

func newTalkThread(e *Engine, id, callingID ThreadID, notifyFlags uint32, duration int16, objectID, talkID, sequenceID1, sequenceID2 uint32) *TalkThread {
	tt := &TalkThread{objectID: objectID, talkID: talkID}
	tt.init(e, tt, KindTalk, id, callingID, notifyFlags)

	if _, ok := e.svc.Objects.ObjectControl(objectID); ok {
		tt.sequenceID1 = sequenceID1
		tt.sequenceID2 = sequenceID2
	}
	if callingID == 0 {
		tt.sequenceID2 = 0
	}

	// A zero delay is an empty window, expired on the first update.
	tt.status = talkWaitVoiceDelay
	if duration < 0 {
		duration = 0
	}
	tt.durationMult = e.opts.SubtitleDuration
	tt.voiceDuration = uint32(duration)
	tt.voiceStartTime = e.ticks()
	tt.voiceEndTime = tt.voiceStartTime + tt.voiceDuration

	if caller := e.threads.FindThread(callingID); caller != nil {
		tt.sceneID = caller.sceneID
	} else {
		tt.sceneID = e.CurrentScene()
	}
	return tt
}

// Status returns the current state, 1 to 7.
func (tt *TalkThread) Status() int {
	return tt.status
}

// Flags returns the completion bits.
func (tt *TalkThread) Flags() int {
	return tt.flags
}

func (tt *TalkThread) onUpdate() (Status, error) {
	e := tt.engine
	svc := e.svc

	switch tt.status {
	case talkWaitVoiceDelay:
		if !timerExpired(e.ticks(), tt.voiceStartTime, tt.voiceEndTime) {
			return StatusYield, nil
		}
		if e.threads.IsActiveThread(MsgQueryTalkThreadActive) {
			tt.status = talkStartPending
		} else {
			tt.status = talkLoadEntry
		}
		return StatusYield, nil

	case talkStartPending:
		if e.threads.IsActiveThread(MsgQueryTalkThreadActive) {
			return StatusYield, nil
		}
		tt.status = talkLoadEntry
		fallthrough

	case talkLoadEntry:
		tt.loadEntry()
		tt.status = talkWaitVoiceCue
		fallthrough

	case talkWaitVoiceCue:
		if tt.flags&talkFlagVoiceDone == 0 && !svc.Sound.VoiceCued() {
			return StatusYield, nil
		}
		tt.status = talkStart
		fallthrough

	case talkStart:
		if tt.flags&talkFlagTextDone == 0 {
			tt.refreshText()
		}
		if tt.flags&talkFlagSequenceCleared == 0 {
			if ctl, ok := svc.Objects.ObjectControl(tt.objectID); ok {
				ctl.StartTalkActor(tt.sequenceID1, tt.entryTable, tt.id)
			} else {
				tt.flags |= talkFlagSequenceCleared
			}
		}
		if tt.flags&talkFlagVoiceDone == 0 {
			svc.Sound.StartVoice(255, 0)
		}
		svc.Input.DiscardEvent(EventSkip)
		tt.status = talkPlaying
		return StatusYield, nil

	case talkPlaying:
		tt.updatePlaying()
		if tt.flags&talkFlagVoiceDone == 0 || tt.flags&talkFlagTextDone == 0 || tt.flags&talkFlagSequenceCleared == 0 {
			return StatusYield, nil
		}
		tt.status = talkDone
		fallthrough

	case talkDone:
		tt.cleanup()
		return StatusTerminate, nil
	}
	return StatusTerminate, nil
}

func (tt *TalkThread) loadEntry() {
	svc := tt.engine.svc
	entry, ok := svc.Talk.TalkEntry(tt.talkID)
	if !ok {
		logger().Warningf("talk thread %s: no talk entry %08X", tt.id, tt.talkID)
	}
	tt.entryText = entry.Text
	tt.entryTable = entry.Table
	tt.voiceName = entry.VoiceName

	tt.flags = 0
	if tt.sequenceID1 == 0 {
		tt.flags = talkFlagNoSequence | talkFlagSequenceCleared
	}
	tt.textDurationElapsed = 0
	tt.voiceDurationElapsed = 0

	if !svc.Sound.Active() || !svc.Sound.CueVoice(tt.voiceName) {
		tt.flags |= talkFlagVoiceDone
		if tt.durationMult == 0 {
			tt.durationMult = tt.engine.opts.SubtitleDuration
		}
	}
	if tt.durationMult == 0 || tt.entryText == "" {
		tt.flags |= talkFlagTextDone
	}
}

func (tt *TalkThread) updatePlaying() {
	e := tt.engine
	svc := e.svc

	if tt.flags&talkFlagTextDone == 0 && timerExpired(e.ticks(), tt.textStartTime, tt.textEndTime) {
		svc.Text.RemoveText()
		if tt.entryText != "" {
			tt.refreshText()
			svc.Input.DiscardEvent(EventSkip)
		} else {
			tt.flags |= talkFlagTextDone
		}
	}

	if tt.flags&talkFlagVoiceDone == 0 && !svc.Sound.VoicePlaying() {
		tt.flags |= talkFlagVoiceDone
	}

	if tt.flags&talkFlagVoiceDone != 0 && tt.flags&talkFlagTextDone != 0 {
		tt.clearSequence()
	}

	if svc.Input.PollEvent(EventSkip) {
		if tt.flags&talkFlagTextDone == 0 {
			svc.Text.RemoveText()
			if tt.entryText != "" {
				tt.refreshText()
			} else {
				tt.flags |= talkFlagTextDone
			}
		}
		if tt.flags&talkFlagTextDone != 0 && tt.flags&talkFlagVoiceDone == 0 {
			svc.Sound.StopVoice()
			tt.flags |= talkFlagVoiceDone
		}
	}
}

// refreshText shows the next chunk of the entry text.
func (tt *TalkThread) refreshText() {
	e := tt.engine
	chars, rest := e.svc.Text.InsertText(tt.entryText)
	if chars <= 0 && rest == tt.entryText {
		rest = ""
	}
	tt.entryText = rest
	tt.textDuration = e.clipTextDuration(uint32(chars) * tt.durationMult / textCharsPerUnit)
	tt.textStartTime = e.ticks()
	tt.textEndTime = tt.textStartTime + tt.textDuration
}

// clearSequence stops the talk animation and starts the follow-up
// sequence. It runs at most once.
func (tt *TalkThread) clearSequence() {
	if tt.flags&talkFlagSequenceCleared != 0 {
		return
	}
	if ctl, ok := tt.engine.svc.Objects.ObjectControl(tt.objectID); ok {
		if tt.sequenceID2 != 0 {
			ctl.StartSequenceActor(tt.sequenceID2, 2, 0)
		}
		if tt.sequenceID1 != 0 {
			ctl.ClearNotifyThreadID2()
		}
	}
	tt.flags |= talkFlagSequenceCleared
}

func (tt *TalkThread) cleanup() {
	svc := tt.engine.svc
	tt.clearSequence()
	if tt.flags&talkFlagTextDone == 0 {
		svc.Text.RemoveText()
		tt.flags |= talkFlagTextDone
	}
	if tt.flags&talkFlagVoiceDone == 0 {
		svc.Sound.StopVoice()
		tt.flags |= talkFlagVoiceDone
	}
}

func (tt *TalkThread) onTerminated() {
	if tt.status >= talkStart {
		tt.cleanup()
	}
}

func (tt *TalkThread) onKill() {
	tt.callingID = 0
	tt.sendMessage(MsgClearSequenceID1, 0)
	tt.sendMessage(MsgClearSequenceID2, 0)
	tt.defaultKill()
}

func (tt *TalkThread) sendMessage(msg int, value uint32) uint32 {
	switch msg {
	case MsgQueryTalkThreadActive:
		if tt.status != talkWaitVoiceDelay && tt.status != talkStartPending {
			return 1
		}
	case MsgClearSequenceID1:
		tt.sequenceID1 = 0
		tt.flags |= talkFlagNoSequence | talkFlagSequenceCleared
	case MsgClearSequenceID2:
		tt.sequenceID2 = 0
	}
	return 0
}

// ---------------------------------------------------------------------------
// Pause and suspend
// ---------------------------------------------------------------------------

func (tt *TalkThread) onPause() {
	if tt.suspendCtr == 0 {
		tt.freeze()
	}
}

func (tt *TalkThread) onResume() {
	if tt.suspendCtr == 0 {
		tt.thaw()
	}
}

func (tt *TalkThread) onSuspend() {
	if tt.pauseCtr == 0 {
		tt.freeze()
	}
}

func (tt *TalkThread) onNotify() {
	if tt.pauseCtr == 0 {
		tt.thaw()
	}
}

func (tt *TalkThread) freeze() {
	e := tt.engine
	now := e.ticks()
	switch tt.status {
	case talkWaitVoiceDelay:
		tt.voiceDurationElapsed = durationElapsed(now, tt.voiceStartTime, tt.voiceEndTime)
	case talkWaitVoiceCue:
		if tt.flags&talkFlagVoiceDone == 0 {
			e.svc.Sound.StopVoice()
		}
	case talkStart, talkPlaying, talkDone:
		if tt.flags&talkFlagVoiceDone == 0 {
			e.svc.Sound.PauseVoice()
		}
		if tt.flags&talkFlagTextDone == 0 {
			tt.textDurationElapsed = durationElapsed(now, tt.textStartTime, tt.textEndTime)
		}
	}
}

func (tt *TalkThread) thaw() {
	e := tt.engine
	now := e.ticks()
	switch tt.status {
	case talkWaitVoiceDelay:
		tt.voiceStartTime = now
		tt.voiceEndTime = now + remaining(tt.voiceDuration, tt.voiceDurationElapsed)
		tt.voiceDurationElapsed = 0
	case talkWaitVoiceCue:
		if tt.flags&talkFlagVoiceDone == 0 && !e.svc.Sound.CueVoice(tt.voiceName) {
			tt.flags |= talkFlagVoiceDone
		}
	case talkStart, talkPlaying, talkDone:
		if tt.flags&talkFlagVoiceDone == 0 {
			e.svc.Sound.ResumeVoice()
		}
		if tt.flags&talkFlagTextDone == 0 {
			tt.textStartTime = now
			tt.textEndTime = now + remaining(tt.textDuration, tt.textDurationElapsed)
			tt.textDurationElapsed = 0
		}
	}
}

func (tt *TalkThread) fillInfo(info *ThreadInfo) {
	info.Status = tt.status
	info.Flags = tt.flags
}
