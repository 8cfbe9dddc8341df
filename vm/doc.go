// Package vm runs game scripts as cooperative threads.
//
// An Engine owns a ThreadList that is walked once per displayed frame. Each
// thread is updated until it yields, suspends or terminates; nothing runs
// in parallel and no goroutines are involved. Thread kinds:
//   - ScriptThread interprets bytecode from a script.Program
//   - TimerThread waits a number of 60 Hz ticks
//   - TalkThread plays a line of dialogue
//   - AbortableThread runs a handler in place of a script on abort
//
// Threads are linked only by caller ids. A thread that terminates notifies
// its caller, which typically suspended itself waiting for it. Killing a
// thread kills every thread it started first.
//
// Game-specific effects go through the collaborator interfaces in
// Services; each has an inert default.
package vm
