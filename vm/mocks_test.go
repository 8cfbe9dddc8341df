package vm

import (
	"fmt"
	"testing"

	"github.com/chazu/illusions/pkg/script"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Recording collaborators
// ---------------------------------------------------------------------------

type mockControl struct {
	calls []string
}

func (c *mockControl) StartTalkActor(sequenceID, table uint32, notifyThreadID ThreadID) {
	c.calls = append(c.calls, fmt.Sprintf("talk %X %X %s", sequenceID, table, notifyThreadID))
}

func (c *mockControl) StartSequenceActor(sequenceID uint32, value int, notifyThreadID ThreadID) {
	c.calls = append(c.calls, fmt.Sprintf("seq %X %d %s", sequenceID, value, notifyThreadID))
}

func (c *mockControl) ClearNotifyThreadID1() { c.calls = append(c.calls, "clear1") }
func (c *mockControl) ClearNotifyThreadID2() { c.calls = append(c.calls, "clear2") }

type mockObjects struct {
	controls map[uint32]*mockControl
	dead     []ThreadID
}

func newMockObjects() *mockObjects {
	return &mockObjects{controls: make(map[uint32]*mockControl)}
}

func (o *mockObjects) add(objectID uint32) *mockControl {
	c := &mockControl{}
	o.controls[objectID] = c
	return c
}

func (o *mockObjects) ObjectControl(objectID uint32) (Control, bool) {
	c, ok := o.controls[objectID]
	if !ok {
		return nil, false
	}
	return c, true
}

func (o *mockObjects) ThreadIsDead(id ThreadID) {
	o.dead = append(o.dead, id)
}

type mockSound struct {
	active  bool
	cueOK   bool
	cued    bool
	playing bool
	calls   []string
}

func (s *mockSound) Active() bool { return s.active }
func (s *mockSound) CueVoice(name string) bool {
	s.calls = append(s.calls, "cue "+name)
	return s.cueOK
}
func (s *mockSound) VoiceCued() bool { return s.cued }
func (s *mockSound) StartVoice(volume, pan int) {
	s.calls = append(s.calls, "start")
	s.playing = true
}
func (s *mockSound) StopVoice() {
	s.calls = append(s.calls, "stop")
	s.playing = false
}
func (s *mockSound) VoicePlaying() bool { return s.playing }
func (s *mockSound) PauseVoice()        { s.calls = append(s.calls, "pause") }
func (s *mockSound) ResumeVoice()       { s.calls = append(s.calls, "resume") }
func (s *mockSound) StartSound(soundID uint32, volume, pan int) {
	s.calls = append(s.calls, fmt.Sprintf("sound %X %d %d", soundID, volume, pan))
}
func (s *mockSound) StopSound(soundID uint32) {
	s.calls = append(s.calls, fmt.Sprintf("stopsound %X", soundID))
}

// mockText shows at most chunk characters at a time.
type mockText struct {
	chunk   int
	shown   []string
	removed int
}

func (t *mockText) InsertText(text string) (int, string) {
	n := len(text)
	if t.chunk > 0 && n > t.chunk {
		n = t.chunk
	}
	t.shown = append(t.shown, text[:n])
	return n, text[n:]
}

func (t *mockText) RemoveText() { t.removed++ }

type mockTalk map[uint32]TalkEntry

func (m mockTalk) TalkEntry(talkID uint32) (TalkEntry, bool) {
	e, ok := m[talkID]
	return e, ok
}

type mockInput struct {
	pending   map[InputEvent]bool
	discarded []InputEvent
}

func newMockInput() *mockInput {
	return &mockInput{pending: make(map[InputEvent]bool)}
}

func (in *mockInput) press(ev InputEvent) { in.pending[ev] = true }

func (in *mockInput) PollEvent(ev InputEvent) bool {
	if in.pending[ev] {
		delete(in.pending, ev)
		return true
	}
	return false
}

func (in *mockInput) DiscardEvent(ev InputEvent) {
	in.discarded = append(in.discarded, ev)
	delete(in.pending, ev)
}

func (in *mockInput) DiscardAllEvents() {
	clear(in.pending)
}

type mockScenes struct {
	missing map[uint32]bool
	calls   []string
}

func (s *mockScenes) LoadResource(resourceID, sceneID uint32) {
	s.calls = append(s.calls, fmt.Sprintf("load %X %X", resourceID, sceneID))
}
func (s *mockScenes) UnloadResource(resourceID uint32) {
	s.calls = append(s.calls, fmt.Sprintf("unload %X", resourceID))
}
func (s *mockScenes) EnterScene(sceneID uint32) bool {
	if s.missing[sceneID] {
		return false
	}
	s.calls = append(s.calls, fmt.Sprintf("enter %X", sceneID))
	return true
}
func (s *mockScenes) ExitScene(sceneID uint32) {
	s.calls = append(s.calls, fmt.Sprintf("exit %X", sceneID))
}
func (s *mockScenes) PauseScene(sceneID uint32) {
	s.calls = append(s.calls, fmt.Sprintf("pause %X", sceneID))
}
func (s *mockScenes) UnpauseScene(sceneID uint32) {
	s.calls = append(s.calls, fmt.Sprintf("unpause %X", sceneID))
}

type mockCamera struct {
	pans []uint32
}

func (c *mockCamera) PanCenterObject(objectID uint32, speed int16) {
	c.pans = append(c.pans, objectID)
}

// seqRandom returns its values in order, then zeros.
type seqRandom struct {
	values []int
	asked  []int
}

func (r *seqRandom) IntN(n int) int {
	r.asked = append(r.asked, n)
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[0]
	r.values = r.values[1:]
	return v % n
}

// eventLog records observer events.
type eventLog struct {
	events []Event
}

func (l *eventLog) ObserveEvent(ev Event) {
	l.events = append(l.events, ev)
}

func (l *eventLog) ids(kind EventKind) []ThreadID {
	var ids []ThreadID
	for _, ev := range l.events {
		if ev.Kind == kind {
			ids = append(ids, ev.ThreadID)
		}
	}
	return ids
}

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	engine  *Engine
	clock   *ManualClock
	objects *mockObjects
	sound   *mockSound
	text    *mockText
	talk    mockTalk
	input   *mockInput
	scenes  *mockScenes
	camera  *mockCamera
	random  *seqRandom
	log     *eventLog
}

func newFixture(t *testing.T, src string) *fixture {
	t.Helper()
	var prog *script.Program
	if src == "" {
		var err error
		prog, err = script.NewProgram([]byte{byte(script.OpTerminate), 2}, []int{0})
		require.NoError(t, err)
	} else {
		var err error
		prog, err = script.Assemble(src, script.DialectPacked)
		require.NoError(t, err)
	}
	return newFixtureWith(t, prog, DefaultOptions())
}

func newFixtureWith(t *testing.T, prog *script.Program, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		clock:   &ManualClock{Now: 1000},
		objects: newMockObjects(),
		sound:   &mockSound{},
		text:    &mockText{},
		talk:    mockTalk{},
		input:   newMockInput(),
		scenes:  &mockScenes{missing: map[uint32]bool{}},
		camera:  &mockCamera{},
		random:  &seqRandom{},
		log:     &eventLog{},
	}
	opts.Observer = f.log
	f.engine = NewEngine(prog, Services{
		Objects: f.objects,
		Sound:   f.sound,
		Text:    f.text,
		Talk:    f.talk,
		Input:   f.input,
		Camera:  f.camera,
		Scenes:  f.scenes,
		Clock:   f.clock,
		Random:  f.random,
	}, opts)
	return f
}

// hookThread is a scripted thread kind that records hook calls.
type hookThread struct {
	Thread
	results []Status
	hooks   []string
	updates int
	step    func()
}

func (f *fixture) startHookThread(id, callingID ThreadID, results ...Status) *hookThread {
	h := &hookThread{results: results}
	h.init(f.engine, h, KindScript, id, callingID, 0)
	f.engine.threads.StartThread(&h.Thread)
	return h
}

func (h *hookThread) onUpdate() (Status, error) {
	h.updates++
	if h.step != nil {
		h.step()
	}
	if len(h.results) == 0 {
		return StatusYield, nil
	}
	s := h.results[0]
	h.results = h.results[1:]
	return s, nil
}

func (h *hookThread) onPause()      { h.hooks = append(h.hooks, "pause") }
func (h *hookThread) onResume()     { h.hooks = append(h.hooks, "resume") }
func (h *hookThread) onSuspend()    { h.hooks = append(h.hooks, "suspend") }
func (h *hookThread) onNotify()     { h.hooks = append(h.hooks, "notify") }
func (h *hookThread) onTerminated() { h.hooks = append(h.hooks, "terminated") }
