package vm

// ThreadList owns every live thread in insertion order. It is driven once
// per frame by UpdateThreads.
type ThreadList struct {
	engine  *Engine
	threads []*Thread
}

func newThreadList(e *Engine) *ThreadList {
	return &ThreadList{engine: e}
}

// StartThread appends a thread. Threads started during a walk are visited
// later in the same walk.
func (tl *ThreadList) StartThread(t *Thread) {
	tl.threads = append(tl.threads, t)
	logger().Debugf("thread %s (%s) started by %s", t.id, t.kind, t.callingID)
	tl.engine.observe(Event{Kind: EventThreadStarted, ThreadID: t.id, CallingID: t.callingID, ThreadKind: t.kind})
}

// Len returns the number of threads held, terminated ones included until
// the end of the current walk.
func (tl *ThreadList) Len() int {
	return len(tl.threads)
}

// Threads returns a copy of the thread list.
func (tl *ThreadList) Threads() []*Thread {
	out := make([]*Thread, len(tl.threads))
	copy(out, tl.threads)
	return out
}

// FindThread returns the first live thread with the id, or nil.
func (tl *ThreadList) FindThread(id ThreadID) *Thread {
	if id == 0 {
		return nil
	}
	for _, t := range tl.threads {
		if t.id == id && !t.terminated {
			return t
		}
	}
	return nil
}

// ============================================================================
// Frame walk
// ============================================================================

// UpdateThreads walks every thread once, drops terminated threads, then
// services queued wake requests. A full wake request repeats the walk; a
// targeted one re-examines only its thread. The first fatal dispatch error
// stops the walk and is returned.
func (tl *ThreadList) UpdateThreads() error {
	e := tl.engine
	full := true
	var targets []ThreadID
	for pass := 1; ; pass++ {
		var err error
		if full {
			e.observe(Event{Kind: EventWalk, Pass: pass})
			err = tl.walk()
		} else {
			err = tl.wakeTargets(targets, pass)
		}
		tl.compact()
		if err != nil {
			return err
		}

		reqs := e.wakes.drain()
		if len(reqs) == 0 {
			return nil
		}
		full, targets = planWakes(reqs)
	}
}

func (tl *ThreadList) walk() error {
	// Indexed loop: threads appended mid-walk must be visited.
	for i := 0; i < len(tl.threads); i++ {
		if err := tl.runThread(tl.threads[i]); err != nil {
			return err
		}
	}
	return nil
}

func (tl *ThreadList) wakeTargets(targets []ThreadID, pass int) error {
	for _, id := range targets {
		t := tl.FindThread(id)
		if t == nil {
			continue
		}
		tl.engine.observe(Event{Kind: EventWake, ThreadID: id, ThreadKind: t.kind, Pass: pass})
		if err := tl.runThread(t); err != nil {
			return err
		}
	}
	return nil
}

// runThread updates t until it yields, suspends into a blocked state or
// terminates.
func (tl *ThreadList) runThread(t *Thread) error {
	status := StatusRun
	for !t.terminated && status != StatusTerminate && status != StatusYield {
		s, err := t.Update()
		if err != nil {
			return err
		}
		status = s
	}
	return nil
}

func (tl *ThreadList) compact() {
	live := tl.threads[:0]
	for _, t := range tl.threads {
		if !t.terminated {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(tl.threads); i++ {
		tl.threads[i] = nil
	}
	tl.threads = live
}

// ============================================================================
// Kill cascade
// ============================================================================

// KillThread kills the thread with the id and, first, every live thread
// that names it as caller, transitively. Descendants die before their
// ancestors; a visited set guards against caller cycles.
func (tl *ThreadList) KillThread(id ThreadID) {
	root := tl.FindThread(id)
	if root == nil {
		return
	}

	type frame struct {
		t        *Thread
		expanded bool
	}
	visited := map[*Thread]bool{root: true}
	stack := []frame{{t: root}}
	for len(stack) > 0 {
		top := len(stack) - 1
		if stack[top].expanded {
			t := stack[top].t
			stack = stack[:top]
			t.Kill()
			continue
		}
		stack[top].expanded = true
		parent := stack[top].t.id
		var children []*Thread
		for _, c := range tl.threads {
			if !c.terminated && c.callingID == parent && !visited[c] {
				visited[c] = true
				children = append(children, c)
			}
		}
		// Reverse push keeps the first child's subtree first.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{t: children[i]})
		}
	}
}

// TerminateThreadChain terminates the thread and then each caller up the
// chain.
func (tl *ThreadList) TerminateThreadChain(id ThreadID) {
	seen := map[ThreadID]bool{}
	for id != 0 && !seen[id] {
		seen[id] = true
		t := tl.FindThread(id)
		if t == nil {
			return
		}
		next := t.callingID
		t.Terminate()
		id = next
	}
}

// IsActiveThread reports whether any live, unblocked thread answers msg
// with a non-zero value.
func (tl *ThreadList) IsActiveThread(msg int) bool {
	for _, t := range tl.threads {
		if !t.terminated && !t.Blocked() && t.SendMessage(msg, 0) != 0 {
			return true
		}
	}
	return false
}

// ============================================================================
// Bulk operations
// ============================================================================

// each calls fn for every live thread matching keep. The slice is re-read
// on every step since fn may start threads.
func (tl *ThreadList) each(keep func(t *Thread) bool, fn func(t *Thread)) {
	for i := 0; i < len(tl.threads); i++ {
		t := tl.threads[i]
		if !t.terminated && keep(t) {
			fn(t)
		}
	}
}

func except(id ThreadID) func(t *Thread) bool {
	return func(t *Thread) bool { return t.id != id }
}

func withID(id ThreadID) func(t *Thread) bool {
	return func(t *Thread) bool { return t.id == id }
}

func timersOf(callingID ThreadID) func(t *Thread) bool {
	return func(t *Thread) bool { return t.kind == KindTimer && t.callingID == callingID }
}

func inScene(sceneID uint32, excl ThreadID) func(t *Thread) bool {
	return func(t *Thread) bool { return t.sceneID == sceneID && t.id != excl }
}

func (tl *ThreadList) SuspendID(id ThreadID) { tl.each(withID(id), (*Thread).Suspend) }
func (tl *ThreadList) NotifyID(id ThreadID)  { tl.each(withID(id), (*Thread).Notify) }
func (tl *ThreadList) PauseID(id ThreadID)   { tl.each(withID(id), (*Thread).Pause) }
func (tl *ThreadList) UnpauseID(id ThreadID) { tl.each(withID(id), (*Thread).Unpause) }

// NotifyTimerThreads notifies every timer started by callingID.
func (tl *ThreadList) NotifyTimerThreads(callingID ThreadID) {
	tl.each(timersOf(callingID), (*Thread).Notify)
}

// SuspendTimerThreads suspends every timer started by callingID.
func (tl *ThreadList) SuspendTimerThreads(callingID ThreadID) {
	tl.each(timersOf(callingID), (*Thread).Suspend)
}

func (tl *ThreadList) PauseThreads(excl ThreadID)     { tl.each(except(excl), (*Thread).Pause) }
func (tl *ThreadList) UnpauseThreads(excl ThreadID)   { tl.each(except(excl), (*Thread).Unpause) }
func (tl *ThreadList) SuspendThreads(excl ThreadID)   { tl.each(except(excl), (*Thread).Suspend) }
func (tl *ThreadList) NotifyThreads(excl ThreadID)    { tl.each(except(excl), (*Thread).Notify) }
func (tl *ThreadList) TerminateThreads(excl ThreadID) { tl.each(except(excl), (*Thread).Terminate) }

// TerminateActiveThreads terminates every unblocked thread except excl.
func (tl *ThreadList) TerminateActiveThreads(excl ThreadID) {
	tl.each(func(t *Thread) bool { return t.id != excl && !t.Blocked() }, (*Thread).Terminate)
}

func (tl *ThreadList) TerminateThreadsBySceneID(sceneID uint32, excl ThreadID) {
	tl.each(inScene(sceneID, excl), (*Thread).Terminate)
}

func (tl *ThreadList) SuspendThreadsBySceneID(sceneID uint32, excl ThreadID) {
	tl.each(inScene(sceneID, excl), (*Thread).Suspend)
}

func (tl *ThreadList) NotifyThreadsBySceneID(sceneID uint32, excl ThreadID) {
	tl.each(inScene(sceneID, excl), (*Thread).Notify)
}

func isTalk(t *Thread) bool { return t.kind == KindTalk }

// EndTalkThreads terminates every talk thread.
func (tl *ThreadList) EndTalkThreads() {
	tl.each(isTalk, (*Thread).Terminate)
}

// EndTalkThreadsNoNotify terminates every talk thread without notifying
// the threads that started them.
func (tl *ThreadList) EndTalkThreadsNoNotify() {
	tl.each(isTalk, func(t *Thread) {
		t.callingID = 0
		t.Terminate()
	})
}

// SetThreadSceneID moves the thread to a scene.
func (tl *ThreadList) SetThreadSceneID(id ThreadID, sceneID uint32) {
	if t := tl.FindThread(id); t != nil {
		t.sceneID = sceneID
	}
}

// ThreadSceneID returns the thread's scene, or 0 if absent.
func (tl *ThreadList) ThreadSceneID(id ThreadID) uint32 {
	if t := tl.FindThread(id); t != nil {
		return t.sceneID
	}
	return 0
}
