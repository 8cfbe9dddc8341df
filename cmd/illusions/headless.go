package main

import (
	"fmt"
	"io"

	"github.com/chazu/illusions/vm"
)

// textWidth is the number of characters the headless text box shows at
// once.
const textWidth = 40

// voiceTicks is how long a headless voice line plays.
const voiceTicks = 90

// headless provides collaborators that print what a real game would show.
type headless struct {
	out     io.Writer
	clock   *vm.ManualClock
	input   *scriptedInput
	objects *printedObjects
	sound   *printedSound
	text    *printedText
}

func newHeadless(out io.Writer) *headless {
	clock := &vm.ManualClock{}
	return &headless{
		out:     out,
		clock:   clock,
		input:   &scriptedInput{events: make(map[int][]vm.InputEvent), pending: make(map[vm.InputEvent]bool)},
		objects: &printedObjects{out: out},
		sound:   &printedSound{out: out, clock: clock},
		text:    &printedText{out: out},
	}
}

func (h *headless) services() vm.Services {
	return vm.Services{
		Objects: h.objects,
		Sound:   h.sound,
		Text:    h.text,
		Input:   h.input,
		Camera:  printedCamera{out: h.out},
		Scenes:  printedScenes{out: h.out},
		Clock:   h.clock,
	}
}

// ---------------------------------------------------------------------------
// Input
// ---------------------------------------------------------------------------

// scriptedInput raises events at fixed frames.
type scriptedInput struct {
	frame   int
	events  map[int][]vm.InputEvent
	pending map[vm.InputEvent]bool
}

func (in *scriptedInput) at(frame int, ev vm.InputEvent) {
	if frame > 0 {
		in.events[frame] = append(in.events[frame], ev)
	}
}

func (in *scriptedInput) raise() {
	for _, ev := range in.events[in.frame] {
		in.pending[ev] = true
	}
	delete(in.events, in.frame)
}

func (in *scriptedInput) PollEvent(ev vm.InputEvent) bool {
	in.raise()
	if in.pending[ev] {
		delete(in.pending, ev)
		return true
	}
	return false
}

func (in *scriptedInput) DiscardEvent(ev vm.InputEvent) {
	in.raise()
	delete(in.pending, ev)
}

func (in *scriptedInput) DiscardAllEvents() {
	in.raise()
	clear(in.pending)
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

type printedObjects struct {
	out io.Writer
}

func (o *printedObjects) ObjectControl(objectID uint32) (vm.Control, bool) {
	return printedControl{out: o.out, objectID: objectID}, true
}

func (o *printedObjects) ThreadIsDead(id vm.ThreadID) {
	fmt.Fprintf(o.out, "[thread] %s killed\n", id)
}

type printedControl struct {
	out      io.Writer
	objectID uint32
}

func (c printedControl) StartTalkActor(sequenceID, table uint32, notifyThreadID vm.ThreadID) {
	fmt.Fprintf(c.out, "[actor %08X] talk %08X\n", c.objectID, sequenceID)
}

func (c printedControl) StartSequenceActor(sequenceID uint32, value int, notifyThreadID vm.ThreadID) {
	fmt.Fprintf(c.out, "[actor %08X] sequence %08X\n", c.objectID, sequenceID)
}

func (c printedControl) ClearNotifyThreadID1() {}
func (c printedControl) ClearNotifyThreadID2() {}

// ---------------------------------------------------------------------------
// Sound and text
// ---------------------------------------------------------------------------

// printedSound plays every voice for voiceTicks.
type printedSound struct {
	out     io.Writer
	clock   *vm.ManualClock
	voice   string
	endTick uint32
	playing bool
}

func (s *printedSound) Active() bool { return true }

func (s *printedSound) CueVoice(name string) bool {
	s.voice = name
	return name != ""
}

func (s *printedSound) VoiceCued() bool { return s.voice != "" }

func (s *printedSound) StartVoice(volume, pan int) {
	fmt.Fprintf(s.out, "[voice] %s\n", s.voice)
	s.playing = true
	s.endTick = s.clock.Ticks() + voiceTicks
}

func (s *printedSound) StopVoice() {
	s.playing = false
	s.voice = ""
}

func (s *printedSound) VoicePlaying() bool {
	return s.playing && s.clock.Ticks() < s.endTick
}

func (s *printedSound) PauseVoice()  {}
func (s *printedSound) ResumeVoice() {}

func (s *printedSound) StartSound(soundID uint32, volume, pan int) {
	fmt.Fprintf(s.out, "[sound] %08X\n", soundID)
}

func (s *printedSound) StopSound(soundID uint32) {}

type printedText struct {
	out io.Writer
}

func (t *printedText) InsertText(text string) (int, string) {
	n := min(len(text), textWidth)
	fmt.Fprintf(t.out, "[text] %s\n", text[:n])
	return n, text[n:]
}

func (t *printedText) RemoveText() {}

// ---------------------------------------------------------------------------
// Camera and scenes
// ---------------------------------------------------------------------------

type printedCamera struct {
	out io.Writer
}

func (c printedCamera) PanCenterObject(objectID uint32, speed int16) {
	fmt.Fprintf(c.out, "[camera] center on %08X\n", objectID)
}

type printedScenes struct {
	out io.Writer
}

func (s printedScenes) LoadResource(resourceID, sceneID uint32) {
	fmt.Fprintf(s.out, "[scene] load resource %08X\n", resourceID)
}

func (s printedScenes) UnloadResource(resourceID uint32) {
	fmt.Fprintf(s.out, "[scene] unload resource %08X\n", resourceID)
}

func (s printedScenes) EnterScene(sceneID uint32) bool {
	fmt.Fprintf(s.out, "[scene] enter %08X\n", sceneID)
	return true
}

func (s printedScenes) ExitScene(sceneID uint32) {
	fmt.Fprintf(s.out, "[scene] exit %08X\n", sceneID)
}

func (s printedScenes) PauseScene(sceneID uint32) {
	fmt.Fprintf(s.out, "[scene] pause %08X\n", sceneID)
}

func (s printedScenes) UnpauseScene(sceneID uint32) {
	fmt.Fprintf(s.out, "[scene] unpause %08X\n", sceneID)
}
