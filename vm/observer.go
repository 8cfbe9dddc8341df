package vm

import "fmt"

// EventKind classifies scheduler events.
type EventKind int

const (
	EventThreadStarted EventKind = iota + 1
	EventThreadTerminated
	EventThreadKilled
	EventRerun // a wake request was queued
	EventWalk  // a full walk of the thread list began
	EventWake  // a targeted re-examination of one thread
	EventFrame // a frame finished
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventThreadStarted:
		return "started"
	case EventThreadTerminated:
		return "terminated"
	case EventThreadKilled:
		return "killed"
	case EventRerun:
		return "rerun"
	case EventWalk:
		return "walk"
	case EventWake:
		return "wake"
	case EventFrame:
		return "frame"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one scheduler occurrence.
type Event struct {
	Kind       EventKind
	Frame      uint64
	ThreadID   ThreadID
	CallingID  ThreadID
	ThreadKind ThreadKind
	Pass       int // walk number within the frame, 1-based
}

// Observer receives scheduler events synchronously.
type Observer interface {
	ObserveEvent(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

// ObserveEvent implements Observer.
func (f ObserverFunc) ObserveEvent(ev Event) {
	f(ev)
}

// MultiObserver fans events out to several observers.
type MultiObserver []Observer

// ObserveEvent implements Observer.
func (m MultiObserver) ObserveEvent(ev Event) {
	for _, o := range m {
		if o != nil {
			o.ObserveEvent(ev)
		}
	}
}
