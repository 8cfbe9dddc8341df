package vm

import (
	"slices"

	"github.com/chazu/illusions/pkg/script"
)

// Options tunes an Engine.
type Options struct {
	// Dialect selects the instruction header encoding.
	Dialect script.Dialect
	// SubtitleDuration is the default talk duration multiplier, used when a
	// talk thread is started with duration 0 and no voice can be cued.
	SubtitleDuration uint32
	// MinTextDuration and MaxTextDuration clip the duration of a text
	// chunk in ticks. Zero disables the bound.
	MinTextDuration uint32
	MaxTextDuration uint32
	// Opcodes overrides the dispatch table.
	Opcodes *Opcodes
	// Observer receives scheduler events.
	Observer Observer
	// Trace logs every dispatched instruction at debug level.
	Trace bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Dialect:          script.DialectPacked,
		SubtitleDuration: 16,
		MinTextDuration:  60,
		MaxTextDuration:  600,
	}
}

// Engine drives the script threads of one game session. It is not safe for
// concurrent use.
type Engine struct {
	opts     Options
	program  *script.Program
	decoder  script.HeaderDecoder
	opcodes  *Opcodes
	stack    *script.Stack
	threads  *ThreadList
	svc      Services
	observer Observer
	wakes    wakeQueue

	frame      uint64
	nextTempID ThreadID
	pauseCtr   int
	threadInit bool
	fault      error

	activeScenes []uint32
	prevScene    uint32
	properties   map[uint32]bool
	counters     map[int16]int16
}

// NewEngine creates an engine for program.
func NewEngine(program *script.Program, svc Services, opts Options) *Engine {
	e := &Engine{
		opts:       opts,
		program:    program,
		decoder:    script.NewHeaderDecoder(opts.Dialect),
		opcodes:    opts.Opcodes,
		stack:      script.NewStack(),
		svc:        svc.withDefaults(),
		observer:   opts.Observer,
		properties: make(map[uint32]bool),
		counters:   make(map[int16]int16),
	}
	if e.opcodes == nil {
		e.opcodes = NewOpcodes()
	}
	e.threads = newThreadList(e)
	return e
}

func (e *Engine) Threads() *ThreadList      { return e.threads }
func (e *Engine) Stack() *script.Stack      { return e.stack }
func (e *Engine) Program() *script.Program  { return e.program }
func (e *Engine) Services() Services        { return e.svc }
func (e *Engine) Options() Options          { return e.opts }
func (e *Engine) Frame() uint64             { return e.frame }
func (e *Engine) Err() error                { return e.fault }
func (e *Engine) ThreadInitMode() bool      { return e.threadInit }
func (e *Engine) PauseCount() int           { return e.pauseCtr }

func (e *Engine) observe(ev Event) {
	if e.observer == nil {
		return
	}
	ev.Frame = e.frame
	e.observer.ObserveEvent(ev)
}

func (e *Engine) ticks() uint32 {
	return e.svc.Clock.Ticks()
}

// RunFrame performs one scheduler walk. Once a fatal error has occurred
// the engine is faulted and every later call returns the same error.
func (e *Engine) RunFrame() error {
	if e.fault != nil {
		return e.fault
	}
	e.frame++
	if err := e.threads.UpdateThreads(); err != nil {
		e.setFault(err)
		return err
	}
	e.observe(Event{Kind: EventFrame})
	return nil
}

func (e *Engine) setFault(err error) {
	if e.fault != nil {
		return
	}
	e.fault = err
	logger().Errorf("engine faulted: %s", err)
}

// NotifyThreadID notifies the thread with the id, if it exists.
func (e *Engine) NotifyThreadID(id ThreadID) {
	if id != 0 {
		e.threads.NotifyID(id)
	}
}

// RequestRerun asks for a full re-walk before the frame ends.
func (e *Engine) RequestRerun(source ThreadID) {
	e.Wake(source, 0)
}

// Wake asks for target to be looked at again before the frame ends.
// Opcodes only request full re-walks; a non-zero target comes from the
// host, for example after feeding input to a specific thread.
func (e *Engine) Wake(source, target ThreadID) {
	e.wakes.push(WakeRequest{Source: source, Target: target})
	e.observe(Event{Kind: EventRerun, ThreadID: source, CallingID: target})
}

// WithThreadInit runs fn with thread-init mode on: every script thread
// created during fn is driven immediately until it first stops. It returns
// the engine fault, if any.
func (e *Engine) WithThreadInit(fn func()) error {
	prev := e.threadInit
	e.threadInit = true
	defer func() { e.threadInit = prev }()
	fn()
	return e.fault
}

// Pause pauses every thread except callerID. Nested calls count.
func (e *Engine) Pause(callerID ThreadID) {
	e.pauseCtr++
	if e.pauseCtr == 1 {
		e.threads.PauseThreads(callerID)
	}
}

// Unpause reverses Pause.
func (e *Engine) Unpause(callerID ThreadID) {
	if e.pauseCtr == 0 {
		return
	}
	e.pauseCtr--
	if e.pauseCtr == 0 {
		e.threads.UnpauseThreads(callerID)
	}
}

// NewTempThreadID mints the next runtime thread id.
func (e *Engine) NewTempThreadID() ThreadID {
	e.nextTempID++
	if e.nextTempID > threadIDIndexMask {
		e.nextTempID = 1
	}
	return TempThreadIDBase | e.nextTempID
}

// ============================================================================
// Thread factories
// ============================================================================

// Args are the caller-supplied words handed to a new script thread.
type Args [3]uint32

// StartScriptThread starts compiled script slot id. It returns nil if the
// program has no code for the slot.
func (e *Engine) StartScriptThread(id, callingID ThreadID, args Args) *ScriptThread {
	ip, ok := e.program.ThreadCode(uint32(id))
	if !ok {
		logger().Warningf("no code for script thread %s", id)
		return nil
	}
	return e.newScriptThread(id, callingID, 0, ip, args, true)
}

// StartAnonScriptThread starts script slot id with no caller and no
// arguments.
func (e *Engine) StartAnonScriptThread(id, callingID ThreadID) *ScriptThread {
	return e.StartScriptThread(id, callingID, Args{})
}

// StartTempScriptThread starts a script thread with a fresh temp id at
// code offset ip.
func (e *Engine) StartTempScriptThread(ip int, callingID ThreadID, args Args) *ScriptThread {
	return e.newScriptThread(e.NewTempThreadID(), callingID, 0, ip, args, true)
}

func (e *Engine) newScriptThread(id, callingID ThreadID, notifyFlags uint32, ip int, args Args, drive bool) *ScriptThread {
	st := newScriptThread(e, id, callingID, notifyFlags, ip, args)
	e.threads.StartThread(&st.Thread)
	if e.pauseCtr > 0 {
		st.Pause()
	}
	if drive && e.threadInit {
		if err := e.threads.runThread(&st.Thread); err != nil {
			e.setFault(err)
		}
	}
	return st
}

// StartTimerThread starts a timer that terminates after duration ticks.
func (e *Engine) StartTimerThread(duration uint32, callingID ThreadID) *TimerThread {
	return e.startTimer(duration, callingID, false)
}

// StartAbortableTimerThread starts a timer that also ends on the abort
// input event.
func (e *Engine) StartAbortableTimerThread(duration uint32, callingID ThreadID) *TimerThread {
	return e.startTimer(duration, callingID, true)
}

func (e *Engine) startTimer(duration uint32, callingID ThreadID, abortable bool) *TimerThread {
	tt := newTimerThread(e, e.NewTempThreadID(), callingID, 0, duration, abortable)
	e.threads.StartThread(&tt.Thread)
	if e.pauseCtr > 0 {
		tt.Pause()
	}
	return tt
}

// StartTalkThread starts a line of dialogue.
func (e *Engine) StartTalkThread(duration int16, objectID, talkID, sequenceID1, sequenceID2 uint32, callingID ThreadID) *TalkThread {
	tt := newTalkThread(e, e.NewTempThreadID(), callingID, 0, duration, objectID, talkID, sequenceID1, sequenceID2)
	e.threads.StartThread(&tt.Thread)
	if e.pauseCtr > 0 {
		tt.Pause()
	}
	return tt
}

// StartAbortableThread starts a script thread at codeIP supervised by an
// abortable thread that runs the handler at handlerIP on the abort event.
func (e *Engine) StartAbortableThread(codeIP, handlerIP int, callingID ThreadID) (*ScriptThread, *AbortableThread) {
	id := e.NewTempThreadID()
	st := e.StartTempScriptThread(codeIP, id, Args{})
	at := newAbortableThread(e, id, callingID, 0, st.id, handlerIP)
	e.threads.StartThread(&at.Thread)
	if e.pauseCtr > 0 {
		at.Pause()
	}
	return st, at
}

// ============================================================================
// Scenes and script state
// ============================================================================

// CurrentScene returns the top of the active scene stack, or 0.
func (e *Engine) CurrentScene() uint32 {
	if n := len(e.activeScenes); n > 0 {
		return e.activeScenes[n-1]
	}
	return 0
}

// PrevScene returns the scene most recently exited.
func (e *Engine) PrevScene() uint32 {
	return e.prevScene
}

// ActiveScenes returns the scene stack, bottom first.
func (e *Engine) ActiveScenes() []uint32 {
	return slices.Clone(e.activeScenes)
}

// IsActiveScene reports whether the scene is on the stack.
func (e *Engine) IsActiveScene(sceneID uint32) bool {
	return slices.Contains(e.activeScenes, sceneID)
}

// EnterScene pushes a scene. It returns false if the scene cannot be
// loaded.
func (e *Engine) EnterScene(sceneID uint32, threadID ThreadID) bool {
	if !e.svc.Scenes.EnterScene(sceneID) {
		logger().Warningf("thread %s: cannot enter scene %08X", threadID, sceneID)
		return false
	}
	e.activeScenes = append(e.activeScenes, sceneID)
	return true
}

// ExitScene pops the current scene and terminates its threads other than
// threadID.
func (e *Engine) ExitScene(threadID ThreadID) {
	sceneID := e.CurrentScene()
	if sceneID == 0 {
		return
	}
	e.threads.TerminateThreadsBySceneID(sceneID, threadID)
	e.svc.Scenes.ExitScene(sceneID)
	e.activeScenes = e.activeScenes[:len(e.activeScenes)-1]
	e.prevScene = sceneID
}

// EnterPause suspends the threads of a scene other than threadID.
func (e *Engine) EnterPause(sceneID uint32, threadID ThreadID) {
	e.threads.SuspendThreadsBySceneID(sceneID, threadID)
	e.svc.Scenes.PauseScene(sceneID)
}

// LeavePause resumes what EnterPause suspended.
func (e *Engine) LeavePause(sceneID uint32, threadID ThreadID) {
	e.svc.Scenes.UnpauseScene(sceneID)
	e.threads.NotifyThreadsBySceneID(sceneID, threadID)
}

// Property returns a global boolean script property.
func (e *Engine) Property(id uint32) bool {
	return e.properties[id]
}

// SetProperty sets a global boolean script property.
func (e *Engine) SetProperty(id uint32, value bool) {
	e.properties[id] = value
}

// BlockCounter returns a script block counter.
func (e *Engine) BlockCounter(index int16) int16 {
	return e.counters[index]
}

// SetBlockCounter sets a script block counter.
func (e *Engine) SetBlockCounter(index, value int16) {
	e.counters[index] = value
}

func (e *Engine) clipTextDuration(d uint32) uint32 {
	if e.opts.MinTextDuration != 0 && d < e.opts.MinTextDuration {
		return e.opts.MinTextDuration
	}
	if e.opts.MaxTextDuration != 0 && d > e.opts.MaxTextDuration {
		return e.opts.MaxTextDuration
	}
	return d
}
