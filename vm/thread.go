package vm

import "fmt"

// ThreadID identifies a thread. Zero means "no thread".
type ThreadID uint32

const (
	// ScriptThreadIDBase tags ids bound to compiled script slots.
	ScriptThreadIDBase ThreadID = 0x00020000
	// TempThreadIDBase tags ids minted at runtime.
	TempThreadIDBase ThreadID = 0x00040000

	threadIDRangeMask ThreadID = 0xFFFF0000
	threadIDIndexMask ThreadID = 0x0000FFFF
)

// ScriptThreadID returns the id of compiled script slot index.
func ScriptThreadID(index int) ThreadID {
	return ScriptThreadIDBase | ThreadID(index)&threadIDIndexMask
}

// IsTempThreadID reports whether id lies in the runtime-minted range.
func IsTempThreadID(id ThreadID) bool {
	return id&threadIDRangeMask == TempThreadIDBase && id&threadIDIndexMask != 0
}

// String formats the id the way disassembly listings print it.
func (id ThreadID) String() string {
	return fmt.Sprintf("%08X", uint32(id))
}

// Status is the outcome of one Update step.
type Status int

const (
	StatusTerminate Status = 1
	StatusYield     Status = 2
	StatusSuspend   Status = 3
	StatusRun       Status = 4
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusTerminate:
		return "terminate"
	case StatusYield:
		return "yield"
	case StatusSuspend:
		return "suspend"
	case StatusRun:
		return "run"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ThreadKind tags the concrete thread variant.
type ThreadKind int

const (
	KindScript ThreadKind = iota + 1
	KindTimer
	KindTalk
	KindAbortable
)

// String returns the kind name.
func (k ThreadKind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindTimer:
		return "timer"
	case KindTalk:
		return "talk"
	case KindAbortable:
		return "abortable"
	default:
		return fmt.Sprintf("ThreadKind(%d)", int(k))
	}
}

// NotifySuppress in a thread's notify flags stops it from notifying its
// caller on termination.
const NotifySuppress uint32 = 1

// ---------------------------------------------------------------------------
// Hooks
// ---------------------------------------------------------------------------

// threadHooks is implemented by every concrete thread kind. The optional
// interfaces below are checked per call.
type threadHooks interface {
	onUpdate() (Status, error)
}

type pauseHooks interface {
	onPause()
	onResume()
}

type suspendHooks interface {
	onSuspend()
	onNotify()
}

type terminateHook interface {
	onTerminated()
}

type killHook interface {
	onKill()
}

type messageHook interface {
	sendMessage(msg int, value uint32) uint32
}

type infoHook interface {
	fillInfo(info *ThreadInfo)
}

// ---------------------------------------------------------------------------
// Thread
// ---------------------------------------------------------------------------

// Thread is the state shared by every thread kind. Concrete kinds embed it
// and supply their behaviour through hooks.
type Thread struct {
	engine      *Engine
	hooks       threadHooks
	kind        ThreadKind
	id          ThreadID
	callingID   ThreadID
	notifyFlags uint32
	pauseCtr    int
	suspendCtr  int
	sceneID     uint32
	terminated  bool
}

func (t *Thread) init(e *Engine, hooks threadHooks, kind ThreadKind, id, callingID ThreadID, notifyFlags uint32) {
	t.engine = e
	t.hooks = hooks
	t.kind = kind
	t.id = id
	t.callingID = callingID
	t.notifyFlags = notifyFlags
}

func (t *Thread) ID() ThreadID          { return t.id }
func (t *Thread) CallingID() ThreadID   { return t.callingID }
func (t *Thread) Kind() ThreadKind      { return t.kind }
func (t *Thread) NotifyFlags() uint32   { return t.notifyFlags }
func (t *Thread) SceneID() uint32       { return t.sceneID }
func (t *Thread) SetSceneID(id uint32)  { t.sceneID = id }
func (t *Thread) PauseCount() int       { return t.pauseCtr }
func (t *Thread) SuspendCount() int     { return t.suspendCtr }
func (t *Thread) Terminated() bool      { return t.terminated }
func (t *Thread) Blocked() bool         { return t.pauseCtr > 0 || t.suspendCtr > 0 }
func (t *Thread) Impl() any             { return t.hooks }

// Pause increments the pause count. onPause fires on the 0 to 1 edge.
func (t *Thread) Pause() {
	if t.terminated {
		return
	}
	t.pauseCtr++
	if t.pauseCtr == 1 {
		if h, ok := t.hooks.(pauseHooks); ok {
			h.onPause()
		}
	}
}

// Unpause decrements the pause count. onResume fires on the 1 to 0 edge.
func (t *Thread) Unpause() {
	if t.terminated || t.pauseCtr == 0 {
		return
	}
	t.pauseCtr--
	if t.pauseCtr == 0 {
		if h, ok := t.hooks.(pauseHooks); ok {
			h.onResume()
		}
	}
}

// Suspend increments the suspend count. onSuspend fires on the 0 to 1 edge.
func (t *Thread) Suspend() {
	if t.terminated {
		return
	}
	t.suspendCtr++
	if t.suspendCtr == 1 {
		if h, ok := t.hooks.(suspendHooks); ok {
			h.onSuspend()
		}
	}
}

// Notify decrements the suspend count. onNotify fires on the 1 to 0 edge.
func (t *Thread) Notify() {
	if t.terminated || t.suspendCtr == 0 {
		return
	}
	t.suspendCtr--
	if t.suspendCtr == 0 {
		if h, ok := t.hooks.(suspendHooks); ok {
			h.onNotify()
		}
	}
}

// Update runs one step of the thread body. Blocked or terminated threads
// yield without running.
func (t *Thread) Update() (Status, error) {
	if t.terminated || t.Blocked() {
		return StatusYield, nil
	}
	status, err := t.hooks.onUpdate()
	if err != nil {
		return status, err
	}
	switch status {
	case StatusTerminate:
		t.Terminate()
	case StatusSuspend:
		t.Suspend()
	}
	return status, nil
}

// Terminate ends the thread. It notifies the caller unless suppressed and
// is a no-op on an already terminated thread.
func (t *Thread) Terminate() {
	if t.terminated {
		return
	}
	callingID := t.callingID
	if t.notifyFlags&NotifySuppress == 0 {
		t.engine.NotifyThreadID(callingID)
	}
	t.callingID = 0
	if h, ok := t.hooks.(terminateHook); ok {
		h.onTerminated()
	}
	t.terminated = true
	logger().Debugf("thread %s (%s) terminated", t.id, t.kind)
	t.engine.observe(Event{Kind: EventThreadTerminated, ThreadID: t.id, CallingID: callingID, ThreadKind: t.kind})
}

// Kill terminates the thread on behalf of a cascade kill.
func (t *Thread) Kill() {
	if t.terminated {
		return
	}
	t.engine.observe(Event{Kind: EventThreadKilled, ThreadID: t.id, CallingID: t.callingID, ThreadKind: t.kind})
	if h, ok := t.hooks.(killHook); ok {
		h.onKill()
		return
	}
	t.defaultKill()
}

func (t *Thread) defaultKill() {
	t.engine.svc.Objects.ThreadIsDead(t.id)
	t.Terminate()
}

// SendMessage delivers a narrow query to the thread. Kinds that do not
// answer messages return 0.
func (t *Thread) SendMessage(msg int, value uint32) uint32 {
	if h, ok := t.hooks.(messageHook); ok {
		return h.sendMessage(msg, value)
	}
	return 0
}

// ThreadInfo is a flat view of a thread used by snapshots and tooling.
type ThreadInfo struct {
	ID           ThreadID
	CallingID    ThreadID
	Kind         ThreadKind
	SceneID      uint32
	NotifyFlags  uint32
	PauseCount   int
	SuspendCount int
	Terminated   bool

	IP        int      // script
	Status    int      // talk, abortable
	Flags     int      // talk
	Target    ThreadID // abortable: supervised thread
	Remaining uint32   // timer: ticks left
}

// Info returns the thread's current state.
func (t *Thread) Info() ThreadInfo {
	info := ThreadInfo{
		ID:           t.id,
		CallingID:    t.callingID,
		Kind:         t.kind,
		SceneID:      t.sceneID,
		NotifyFlags:  t.notifyFlags,
		PauseCount:   t.pauseCtr,
		SuspendCount: t.suspendCtr,
		Terminated:   t.terminated,
	}
	if h, ok := t.hooks.(infoHook); ok {
		h.fillInfo(&info)
	}
	return info
}
