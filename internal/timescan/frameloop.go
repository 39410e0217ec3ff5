package timescan

import (
	"slices"
	"time"
)

// FrameID identifies a requested frame callback.
type FrameID uint64

// FrameFunc receives the host timestamp of the frame it runs in.
type FrameFunc func(ts time.Duration)

// FrameLoop is the host frame-pacing primitive. Callbacks requested before a
// call to Fire run in that call, in request order; callbacks requested while
// Fire runs wait for the next one. It is not safe for concurrent use: the
// host calls Fire from the same goroutine that drives playback.
type FrameLoop struct {
	next    FrameID
	pending map[FrameID]FrameFunc
}

// NewFrameLoop returns an empty loop.
func NewFrameLoop() *FrameLoop {
	return &FrameLoop{pending: make(map[FrameID]FrameFunc)}
}

// RequestFrame schedules fn for the next Fire.
func (l *FrameLoop) RequestFrame(fn FrameFunc) FrameID {
	l.next++
	l.pending[l.next] = fn
	return l.next
}

// CancelFrame drops a pending callback. Unknown ids are ignored.
func (l *FrameLoop) CancelFrame(id FrameID) {
	delete(l.pending, id)
}

// Pending reports how many callbacks wait for the next frame.
func (l *FrameLoop) Pending() int { return len(l.pending) }

// Fire runs the callbacks pending at call time and returns how many ran.
// A callback cancelled by an earlier one in the same frame does not run.
func (l *FrameLoop) Fire(ts time.Duration) int {
	if len(l.pending) == 0 {
		return 0
	}
	ids := make([]FrameID, 0, len(l.pending))
	for id := range l.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	ran := 0
	for _, id := range ids {
		fn, ok := l.pending[id]
		if !ok {
			continue
		}
		delete(l.pending, id)
		fn(ts)
		ran++
	}
	return ran
}
