package vm

const (
	abortableWatching = 1
	abortableAborted  = 2
)

// AbortableThread watches a script thread. On the abort input event it
// kills the script thread and runs a handler in its place.
type AbortableThread struct {
	Thread
	status         int
	scriptThreadID ThreadID
	handlerIP      int
}

func newAbortableThread(e *Engine, id, callingID ThreadID, notifyFlags uint32, scriptThreadID ThreadID, handlerIP int) *AbortableThread {
	at := &AbortableThread{
		status:         abortableWatching,
		scriptThreadID: scriptThreadID,
		handlerIP:      handlerIP,
	}
	at.init(e, at, KindAbortable, id, callingID, notifyFlags)
	at.sceneID = e.CurrentScene()
	// A stale abort must not cancel the new script immediately.
	e.svc.Input.DiscardEvent(EventAbort)
	return at
}

// ScriptThreadID returns the supervised thread.
func (at *AbortableThread) ScriptThreadID() ThreadID {
	return at.scriptThreadID
}

// Aborted reports whether the handler has been started.
func (at *AbortableThread) Aborted() bool {
	return at.status == abortableAborted
}

func (at *AbortableThread) onUpdate() (Status, error) {
	if at.status != abortableWatching {
		return StatusTerminate, nil
	}
	e := at.engine
	if e.svc.Input.PollEvent(EventAbort) {
		// One suspension is released by the script's kill notify, the
		// returned one by the handler's terminate notify.
		if e.threads.FindThread(at.scriptThreadID) != nil {
			at.Suspend()
			e.threads.KillThread(at.scriptThreadID)
		}
		// The handler must not run before the returned suspension holds.
		e.newScriptThread(e.NewTempThreadID(), at.id, 0, at.handlerIP, Args{}, false)
		at.status = abortableAborted
		return StatusSuspend, nil
	}
	if e.threads.FindThread(at.scriptThreadID) == nil {
		return StatusTerminate, nil
	}
	return StatusYield, nil
}

func (at *AbortableThread) fillInfo(info *ThreadInfo) {
	info.Status = at.status
	info.Target = at.scriptThreadID
}
