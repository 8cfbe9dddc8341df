package vm

// timerExpired reports whether now lies outside the window [start, end].
// The window may wrap around the tick counter. An empty window (start ==
// end) is expired immediately.
func timerExpired(now, start, end uint32) bool {
	switch {
	case start < end:
		return !(now >= start && now <= end)
	case start > end:
		return !(now <= end || now >= start)
	default:
		return true
	}
}

// durationElapsed returns how much of the window [start, end] has passed.
func durationElapsed(now, start, end uint32) uint32 {
	if timerExpired(now, start, end) {
		return end - start
	}
	return now - start
}

// remaining returns duration minus elapsed, floored at zero.
func remaining(duration, elapsed uint32) uint32 {
	if elapsed >= duration {
		return 0
	}
	return duration - elapsed
}
