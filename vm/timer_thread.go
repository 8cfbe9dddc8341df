package vm

// TimerThread terminates once its duration has passed. Abortable timers
// also end on the abort input event.
type TimerThread struct {
	Thread
	duration        uint32
	durationElapsed uint32
	startTime       uint32
	endTime         uint32
	abortable       bool
}

func newTimerThread(e *Engine, id, callingID ThreadID, notifyFlags uint32, duration uint32, abortable bool) *TimerThread {
	tt := &TimerThread{duration: duration, abortable: abortable}
	tt.init(e, tt, KindTimer, id, callingID, notifyFlags)
	tt.startTime = e.ticks()
	tt.endTime = tt.startTime + duration
	if caller := e.threads.FindThread(callingID); caller != nil {
		tt.sceneID = caller.sceneID
	} else {
		tt.sceneID = e.CurrentScene()
	}
	return tt
}

// Abortable reports whether the abort event ends the timer.
func (tt *TimerThread) Abortable() bool {
	return tt.abortable
}

// Remaining returns the ticks left before the timer expires.
func (tt *TimerThread) Remaining() uint32 {
	now := tt.engine.ticks()
	if tt.Blocked() {
		return remaining(tt.duration, tt.durationElapsed)
	}
	if timerExpired(now, tt.startTime, tt.endTime) {
		return 0
	}
	return tt.endTime - now
}

func (tt *TimerThread) onUpdate() (Status, error) {
	e := tt.engine
	if timerExpired(e.ticks(), tt.startTime, tt.endTime) {
		return StatusTerminate, nil
	}
	if tt.abortable && e.svc.Input.PollEvent(EventAbort) {
		return StatusTerminate, nil
	}
	return StatusYield, nil
}

// Pause and suspend freeze the clock once, on whichever edge blocks the
// thread first; the last unblocking edge restarts it.

func (tt *TimerThread) onPause() {
	if tt.suspendCtr == 0 {
		tt.freeze()
	}
}

func (tt *TimerThread) onResume() {
	if tt.suspendCtr == 0 {
		tt.thaw()
	}
}

func (tt *TimerThread) onSuspend() {
	if tt.pauseCtr == 0 {
		tt.freeze()
	}
}

func (tt *TimerThread) onNotify() {
	if tt.pauseCtr == 0 {
		tt.thaw()
	}
}

func (tt *TimerThread) freeze() {
	tt.durationElapsed = durationElapsed(tt.engine.ticks(), tt.startTime, tt.endTime)
}

func (tt *TimerThread) thaw() {
	now := tt.engine.ticks()
	tt.startTime = now
	tt.endTime = now + remaining(tt.duration, tt.durationElapsed)
	tt.durationElapsed = 0
}

func (tt *TimerThread) fillInfo(info *ThreadInfo) {
	info.Remaining = tt.Remaining()
}
