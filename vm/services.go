package vm

import (
	"math/rand/v2"
	"time"
)

// ---------------------------------------------------------------------------
// Collaborators consumed by opcode handlers and the talk/timer threads.
// None of these calls may block the scheduler.
// ---------------------------------------------------------------------------

// Control is the scriptable face of a scene object (usually an actor).
type Control interface {
	// StartTalkActor plays the talk sequence, lip-syncing from table.
	// notifyThreadID is notified when the sequence ends.
	StartTalkActor(sequenceID uint32, table uint32, notifyThreadID ThreadID)
	// StartSequenceActor plays a sequence; notifyThreadID may be 0.
	StartSequenceActor(sequenceID uint32, value int, notifyThreadID ThreadID)
	ClearNotifyThreadID1()
	ClearNotifyThreadID2()
}

// ObjectRegistry resolves object ids to controls. Absence is an ordinary
// outcome that callers must check.
type ObjectRegistry interface {
	ObjectControl(objectID uint32) (Control, bool)
	// ThreadIsDead drops any engine-side reference to a killed thread.
	ThreadIsDead(threadID ThreadID)
}

// SoundSystem is the voice and effect player.
type SoundSystem interface {
	Active() bool
	CueVoice(name string) bool
	VoiceCued() bool
	StartVoice(volume, pan int)
	StopVoice()
	VoicePlaying() bool
	PauseVoice()
	ResumeVoice()
	StartSound(soundID uint32, volume, pan int)
	StopSound(soundID uint32)
}

// ScreenText displays dialogue text.
type ScreenText interface {
	// InsertText shows as much of text as fits and returns the number of
	// characters shown and the text still to come.
	InsertText(text string) (chars int, rest string)
	RemoveText()
}

// TalkEntry is one line of dialogue from the talk table.
type TalkEntry struct {
	Text      string
	VoiceName string
	Table     uint32 // lip-sync table passed to StartTalkActor
}

// TalkTable looks up dialogue lines.
type TalkTable interface {
	TalkEntry(talkID uint32) (TalkEntry, bool)
}

// InputEvent names a polled input event.
type InputEvent int

const (
	EventSkip InputEvent = iota + 1
	EventAbort
)

// Input is the event poller.
type Input interface {
	// PollEvent reports and consumes a pending event.
	PollEvent(ev InputEvent) bool
	DiscardEvent(ev InputEvent)
	DiscardAllEvents()
}

// Camera is the fire-and-forget camera controller.
type Camera interface {
	PanCenterObject(objectID uint32, speed int16)
}

// SceneLoader loads scene resources.
type SceneLoader interface {
	LoadResource(resourceID uint32, sceneID uint32)
	UnloadResource(resourceID uint32)
	// EnterScene loads a scene; false if the scene does not exist.
	EnterScene(sceneID uint32) bool
	ExitScene(sceneID uint32)
	PauseScene(sceneID uint32)
	UnpauseScene(sceneID uint32)
}

// Clock reports time in 60 Hz ticks. Tick arithmetic wraps.
type Clock interface {
	Ticks() uint32
}

// Random draws uniformly from [0, n). n is always positive.
type Random interface {
	IntN(n int) int
}

// Services bundles the collaborators. Nil fields are replaced with inert
// defaults by NewEngine.
type Services struct {
	Objects ObjectRegistry
	Sound   SoundSystem
	Text    ScreenText
	Talk    TalkTable
	Input   Input
	Camera  Camera
	Scenes  SceneLoader
	Clock   Clock
	Random  Random
}

func (s Services) withDefaults() Services {
	if s.Objects == nil {
		s.Objects = nopObjects{}
	}
	if s.Sound == nil {
		s.Sound = nopSound{}
	}
	if s.Text == nil {
		s.Text = nopText{}
	}
	if s.Talk == nil {
		s.Talk = nopTalk{}
	}
	if s.Input == nil {
		s.Input = nopInput{}
	}
	if s.Camera == nil {
		s.Camera = nopCamera{}
	}
	if s.Scenes == nil {
		s.Scenes = nopScenes{}
	}
	if s.Clock == nil {
		s.Clock = NewWallClock()
	}
	if s.Random == nil {
		s.Random = globalRandom{}
	}
	return s
}

// ---------------------------------------------------------------------------
// Inert defaults
// ---------------------------------------------------------------------------

type nopObjects struct{}

func (nopObjects) ObjectControl(uint32) (Control, bool) { return nil, false }
func (nopObjects) ThreadIsDead(ThreadID)                {}

type nopSound struct{}

func (nopSound) Active() bool               { return false }
func (nopSound) CueVoice(string) bool       { return false }
func (nopSound) VoiceCued() bool            { return false }
func (nopSound) StartVoice(int, int)        {}
func (nopSound) StopVoice()                 {}
func (nopSound) VoicePlaying() bool         { return false }
func (nopSound) PauseVoice()                {}
func (nopSound) ResumeVoice()               {}
func (nopSound) StartSound(uint32, int, int) {}
func (nopSound) StopSound(uint32)           {}

type nopText struct{}

func (nopText) InsertText(text string) (int, string) { return len(text), "" }
func (nopText) RemoveText()                          {}

type nopTalk struct{}

func (nopTalk) TalkEntry(uint32) (TalkEntry, bool) { return TalkEntry{}, false }

type nopInput struct{}

func (nopInput) PollEvent(InputEvent) bool { return false }
func (nopInput) DiscardEvent(InputEvent)   {}
func (nopInput) DiscardAllEvents()         {}

type nopCamera struct{}

func (nopCamera) PanCenterObject(uint32, int16) {}

type nopScenes struct{}

func (nopScenes) LoadResource(uint32, uint32) {}
func (nopScenes) UnloadResource(uint32)       {}
func (nopScenes) EnterScene(uint32) bool      { return true }
func (nopScenes) ExitScene(uint32)            {}
func (nopScenes) PauseScene(uint32)           {}
func (nopScenes) UnpauseScene(uint32)         {}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// WallClock converts wall time since creation into 60 Hz ticks.
type WallClock struct {
	start time.Time
}

// NewWallClock creates a clock starting at tick 0.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Ticks implements Clock.
func (c *WallClock) Ticks() uint32 {
	return uint32(time.Since(c.start) * 60 / time.Second)
}

// ManualClock is a Clock advanced explicitly. Used by headless runs and
// tests.
type ManualClock struct {
	Now uint32
}

// Ticks implements Clock.
func (c *ManualClock) Ticks() uint32 {
	return c.Now
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(ticks uint32) {
	c.Now += ticks
}
