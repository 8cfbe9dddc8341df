package vm

import (
	"github.com/chazu/illusions/pkg/script"
)

// OpcodeFunc executes one instruction for thread t.
type OpcodeFunc func(t *ScriptThread, c *OpCall)

// Opcodes is the 256-slot dispatch table. Empty slots are fatal when
// executed.
type Opcodes struct {
	handlers [256]OpcodeFunc
}

// NewOpcodes returns a table with the built-in handlers registered.
func NewOpcodes() *Opcodes {
	o := &Opcodes{}
	o.registerBuiltins()
	return o
}

// Register installs fn for op, replacing any previous handler. A nil fn
// clears the slot.
func (o *Opcodes) Register(op script.Opcode, fn OpcodeFunc) {
	o.handlers[op] = fn
}

// Lookup returns the handler for op.
func (o *Opcodes) Lookup(op script.Opcode) (OpcodeFunc, bool) {
	fn := o.handlers[op]
	return fn, fn != nil
}

// Execute dispatches c to its handler.
func (o *Opcodes) Execute(t *ScriptThread, c *OpCall) error {
	fn := o.handlers[c.Op]
	if fn == nil {
		return ErrUnknownOpcode
	}
	fn(t, c)
	return nil
}

func (o *Opcodes) registerBuiltins() {
	// Control flow
	o.Register(script.OpSuspend, opSuspend)
	o.Register(script.OpYield, opYield)
	o.Register(script.OpTerminate, opTerminate)
	o.Register(script.OpJump, opJump)
	o.Register(script.OpRerun, opRerun)
	o.Register(script.OpIfLte, opIfLte)
	o.Register(script.OpJz, opJz)

	// Threads
	o.Register(script.OpStartThread, opStartThread)
	o.Register(script.OpStartTemp, opStartTempThread)
	o.Register(script.OpStartTimer, opStartTimer)
	o.Register(script.OpNotifyTimers, opNotifyTimers)
	o.Register(script.OpSuspendTimers, opSuspendTimers)
	o.Register(script.OpNotify, opNotify)
	o.Register(script.OpSuspendID, opSuspendID)
	o.Register(script.OpSetScene, opSetThreadScene)
	o.Register(script.OpEndTalk, opEndTalkThreads)
	o.Register(script.OpStartTalk, opStartTalk)
	o.Register(script.OpStartAbortable, opStartAbortable)
	o.Register(script.OpKill, opKill)

	// Scenes and resources
	o.Register(script.OpLoadRes, opLoadResource)
	o.Register(script.OpUnloadRes, opUnloadResource)
	o.Register(script.OpEnterScene, opEnterScene)
	o.Register(script.OpChangeScene, opChangeScene)
	o.Register(script.OpStartModal, opStartModalScene)
	o.Register(script.OpExitModal, opExitModalScene)
	o.Register(script.OpEnterCloseUp, opEnterCloseUpScene)
	o.Register(script.OpExitCloseUp, opExitCloseUpScene)
	o.Register(script.OpIsPrevScene, opIsPrevScene)
	o.Register(script.OpIsCurScene, opIsCurrentScene)
	o.Register(script.OpIsActiveScene, opIsActiveScene)

	// Objects, camera and sound
	o.Register(script.OpPanCenter, opPanCenterObject)
	o.Register(script.OpStartSeq, opStartSequenceActor)
	o.Register(script.OpStartSound, opStartSound)
	o.Register(script.OpStopSound, opStopSound)

	// Properties, counters and the value stack
	o.Register(script.OpSetProp, opSetProperty)
	o.Register(script.OpGetProp, opGetProperty)
	o.Register(script.OpSetCounter, opSetBlockCounter)
	o.Register(script.OpCmpCounter, opCompareBlockCounter)
	o.Register(script.OpPush0, opPush0)
	o.Register(script.OpPushRand, opPushRandom)
	o.Register(script.OpPushVal, opPushValue)
	o.Register(script.OpNot, opNot)
	o.Register(script.OpAnd, opAnd)
	o.Register(script.OpOr, opOr)
	o.Register(script.OpPop, opPop)
	o.Register(script.OpDup, opDup)
}

func boolValue(b bool) int16 {
	if b {
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func opSuspend(t *ScriptThread, c *OpCall)   { c.Result = StatusSuspend }
func opYield(t *ScriptThread, c *OpCall)     { c.Result = StatusYield }
func opTerminate(t *ScriptThread, c *OpCall) { c.Result = StatusTerminate }

func opJump(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	c.DeltaOfs += int(c.Int16())
}

func opRerun(t *ScriptThread, c *OpCall) {
	t.engine.RequestRerun(t.id)
	c.Result = StatusYield
}

func opIfLte(t *ScriptThread, c *OpCall) {
	c.Skip(4)
	rvalue := c.Int16()
	elseOfs := c.Int16()
	lvalue := t.engine.stack.Pop()
	if !(lvalue <= rvalue) {
		c.DeltaOfs += int(elseOfs)
	}
}

func opJz(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	jumpOfs := c.Int16()
	if t.engine.stack.Pop() == 0 {
		c.DeltaOfs += int(jumpOfs)
	}
}

// ---------------------------------------------------------------------------
// Threads
// ---------------------------------------------------------------------------

func opStartThread(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	id := c.ThreadIDOperand()
	t.engine.StartScriptThread(id, c.ThreadID, t.args)
}

func opStartTempThread(t *ScriptThread, c *OpCall) {
	codeOfs := c.Int16()
	t.engine.StartTempScriptThread(c.CodeOffset(codeOfs), c.ThreadID, t.args)
}

func opStartTimer(t *ScriptThread, c *OpCall) {
	abortable := c.Int16()
	duration := int(c.Int16())
	maxDuration := int(c.Int16())
	if maxDuration > 0 {
		duration += t.engine.svc.Random.IntN(maxDuration)
	}
	if duration < 0 {
		duration = 0
	}
	if abortable != 0 {
		t.engine.StartAbortableTimerThread(uint32(duration), c.ThreadID)
	} else {
		t.engine.StartTimerThread(uint32(duration), c.ThreadID)
	}
}

func opNotifyTimers(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	t.engine.threads.NotifyTimerThreads(c.ThreadIDOperand())
}

func opSuspendTimers(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	t.engine.threads.SuspendTimerThreads(c.ThreadIDOperand())
}

func opNotify(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	id := c.ThreadIDOperand()
	if t.notifyFlags&NotifySuppress == 0 {
		t.engine.NotifyThreadID(id)
	}
}

func opSuspendID(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	t.engine.threads.SuspendID(c.ThreadIDOperand())
}

func opSetThreadScene(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	sceneID := c.Uint32()
	t.engine.threads.SetThreadSceneID(c.CallerThreadID, sceneID)
}

func opEndTalkThreads(t *ScriptThread, c *OpCall) {
	t.engine.threads.EndTalkThreads()
}

func opStartTalk(t *ScriptThread, c *OpCall) {
	duration := c.Int16()
	objectID := c.Uint32()
	talkID := c.Uint32()
	sequenceID1 := c.Uint32()
	sequenceID2 := c.Uint32()
	t.engine.StartTalkThread(duration, objectID, talkID, sequenceID1, sequenceID2, c.ThreadID)
}

func opStartAbortable(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	codeOfs := c.Int16()
	skipOfs := c.Int16()
	t.engine.StartAbortableThread(c.CodeOffset(codeOfs), c.CodeOffset(skipOfs), c.ThreadID)
}

func opKill(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	t.engine.threads.KillThread(c.ThreadIDOperand())
}

// ---------------------------------------------------------------------------
// Scenes and resources
// ---------------------------------------------------------------------------

func opLoadResource(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	resourceID := c.Uint32()
	t.engine.svc.Scenes.LoadResource(resourceID, t.engine.CurrentScene())
}

func opUnloadResource(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	t.engine.svc.Scenes.UnloadResource(c.Uint32())
}

func opEnterScene(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	sceneID := c.Uint32()
	e := t.engine
	if e.CurrentScene() != 0 {
		e.ExitScene(c.CallerThreadID)
	}
	e.EnterScene(sceneID, c.CallerThreadID)
}

func opChangeScene(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	sceneID := c.Uint32()
	threadID := c.ThreadIDOperand()
	e := t.engine
	e.svc.Input.DiscardAllEvents()
	if e.CurrentScene() != 0 {
		e.ExitScene(c.CallerThreadID)
	}
	if e.EnterScene(sceneID, c.CallerThreadID) {
		e.StartAnonScriptThread(threadID, 0)
	}
}

func opStartModalScene(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	sceneID := c.Uint32()
	e := t.engine
	e.svc.Input.DiscardAllEvents()
	if cur := e.CurrentScene(); cur != 0 {
		e.EnterPause(cur, c.CallerThreadID)
	}
	e.EnterScene(sceneID, c.CallerThreadID)
	c.Result = StatusSuspend
}

func opExitModalScene(t *ScriptThread, c *OpCall) {
	e := t.engine
	e.svc.Input.DiscardAllEvents()
	e.ExitScene(c.CallerThreadID)
	if cur := e.CurrentScene(); cur != 0 {
		e.LeavePause(cur, c.CallerThreadID)
	}
}

func opEnterCloseUpScene(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	sceneID := c.Uint32()
	e := t.engine
	e.svc.Input.DiscardAllEvents()
	if cur := e.CurrentScene(); cur != 0 {
		e.EnterPause(cur, c.CallerThreadID)
	}
	e.EnterScene(sceneID, c.CallerThreadID)
}

func opExitCloseUpScene(t *ScriptThread, c *OpCall) {
	e := t.engine
	e.ExitScene(c.CallerThreadID)
	if cur := e.CurrentScene(); cur != 0 {
		e.LeavePause(cur, c.CallerThreadID)
	}
	c.Result = StatusYield
}

func opIsPrevScene(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	sceneID := c.Uint32()
	t.engine.stack.Push(boolValue(t.engine.PrevScene() == sceneID))
}

func opIsCurrentScene(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	sceneID := c.Uint32()
	t.engine.stack.Push(boolValue(t.engine.CurrentScene() == sceneID))
}

func opIsActiveScene(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	sceneID := c.Uint32()
	t.engine.stack.Push(boolValue(t.engine.IsActiveScene(sceneID)))
}

// ---------------------------------------------------------------------------
// Objects, camera and sound
// ---------------------------------------------------------------------------

func opPanCenterObject(t *ScriptThread, c *OpCall) {
	speed := c.Int16()
	objectID := c.Uint32()
	t.engine.svc.Camera.PanCenterObject(objectID, speed)
}

func opStartSequenceActor(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	objectID := c.Uint32()
	sequenceID := c.Uint32()
	ctl, ok := t.engine.svc.Objects.ObjectControl(objectID)
	if !ok {
		logger().Warningf("thread %s: startseq on missing object %08X", t.id, objectID)
		return
	}
	ctl.StartSequenceActor(sequenceID, 2, c.ThreadID)
}

func opStartSound(t *ScriptThread, c *OpCall) {
	volume := c.Int16()
	pan := c.Int16()
	soundID := c.Uint32()
	t.engine.svc.Sound.StartSound(soundID, int(volume), int(pan))
}

func opStopSound(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	t.engine.svc.Sound.StopSound(c.Uint32())
}

// ---------------------------------------------------------------------------
// Properties, counters and the value stack
// ---------------------------------------------------------------------------

func opSetProperty(t *ScriptThread, c *OpCall) {
	value := c.Int16()
	propertyID := c.Uint32()
	t.engine.SetProperty(propertyID, value != 0)
}

func opGetProperty(t *ScriptThread, c *OpCall) {
	c.Skip(2)
	propertyID := c.Uint32()
	t.engine.stack.Push(boolValue(t.engine.Property(propertyID)))
}

func opSetBlockCounter(t *ScriptThread, c *OpCall) {
	index := c.Int16()
	value := c.Int16()
	t.engine.SetBlockCounter(index, value)
}

// Comparison operators of cmpcounter.
const (
	cmpEqual        = 1
	cmpNotEqual     = 2
	cmpLess         = 3
	cmpGreater      = 4
	cmpGreaterEqual = 5
	cmpLessEqual    = 6
)

func opCompareBlockCounter(t *ScriptThread, c *OpCall) {
	index := c.Int16()
	compareOp := c.Int16()
	rvalue := c.Int16()
	lvalue := t.engine.BlockCounter(index)
	var result bool
	switch compareOp {
	case cmpEqual:
		result = lvalue == rvalue
	case cmpNotEqual:
		result = lvalue != rvalue
	case cmpLess:
		result = lvalue < rvalue
	case cmpGreater:
		result = lvalue > rvalue
	case cmpGreaterEqual:
		result = lvalue >= rvalue
	case cmpLessEqual:
		result = lvalue <= rvalue
	default:
		logger().Warningf("thread %s: cmpcounter with unknown operator %d", t.id, compareOp)
	}
	t.engine.stack.Push(boolValue(result))
}

func opPush0(t *ScriptThread, c *OpCall) {
	t.engine.stack.Push(0)
}

func opPushRandom(t *ScriptThread, c *OpCall) {
	maxValue := int(c.Int16())
	if maxValue <= 0 {
		t.engine.stack.Push(0)
		return
	}
	t.engine.stack.Push(int16(t.engine.svc.Random.IntN(maxValue)))
}

func opPushValue(t *ScriptThread, c *OpCall) {
	t.engine.stack.Push(c.Int16())
}

func opNot(t *ScriptThread, c *OpCall) {
	s := t.engine.stack
	s.Push(boolValue(s.Pop() == 0))
}

func opAnd(t *ScriptThread, c *OpCall) {
	s := t.engine.stack
	s.Push(s.Pop() & s.Pop())
}

func opOr(t *ScriptThread, c *OpCall) {
	s := t.engine.stack
	s.Push(s.Pop() | s.Pop())
}

func opPop(t *ScriptThread, c *OpCall) {
	t.engine.stack.Pop()
}

func opDup(t *ScriptThread, c *OpCall) {
	s := t.engine.stack
	s.Push(s.Peek())
}
