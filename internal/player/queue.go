package player

import (
	"log"
	"sync"
)

// EnqueueResult tells the caller whether their track started right away or
// was appended behind the current one.
type EnqueueResult int

const (
	StartedNow EnqueueResult = iota
	Queued
	Dropped
)

// starter is the slice of the backend the queue drives. The owning session
// implements it with its guild id bound.
type starter interface {
	startTrack(t *Track) bool
	stopTrack()
}

// Queue is the per-guild FIFO of pending tracks plus the now-playing slot.
// The currently playing track is not part of the pending sequence; it has
// been handed to the backend already. All mutation is serialized on one
// mutex so queue operations for a guild never interleave.
type Queue struct {
	mu      sync.Mutex
	current *Track
	pending []*Track
	starter starter
}

func newQueue(s starter) *Queue {
	return &Queue{starter: s}
}

// EnqueueOrStart starts the track immediately when nothing is playing,
// otherwise appends it. When an immediate start is refused (no usable voice
// connection) the track is dropped and the queue stays idle; the next
// request will retry the connection.
func (q *Queue) EnqueueOrStart(t *Track) EnqueueResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current != nil {
		q.pending = append(q.pending, t)
		return Queued
	}

	if !q.starter.startTrack(t) {
		log.Printf("[Queue] Start refused for track %q, dropping", t.Title)
		return Dropped
	}
	q.current = t
	return StartedNow
}

// PlayImmediately interrupts whatever is playing and starts t now. If the
// backend refuses the interrupt, t is inserted at the front of the queue to
// be played next.
func (q *Queue) PlayImmediately(t *Track) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.starter.startTrack(t) {
		q.current = t
		return
	}
	q.pending = append([]*Track{t}, q.pending...)
}

// OnCurrentFinished advances the queue after the backend reports the end of
// the current track. A Replaced end means another play-now already supplied
// the next track, so nothing advances.
func (q *Queue) OnCurrentFinished(reason EndReason) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if reason == EndReplaced {
		return
	}

	if len(q.pending) == 0 {
		q.current = nil
		return
	}

	next := q.pending[0]
	q.pending = q.pending[1:]
	q.current = next
	if !q.starter.startTrack(next) {
		log.Printf("[Queue] Start refused for track %q after advance", next.Title)
		q.current = nil
	}
}

// Clear drops all pending tracks and stops the current one. The stop runs
// under the queue lock so a start that lands concurrently cannot slip into
// the window between the decision and the stop and get killed.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = nil
	if q.current != nil {
		q.current = nil
		q.starter.stopTrack()
	}
}

// Current returns the now-playing track, or nil when idle.
func (q *Queue) Current() *Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Pending returns a copy of the queued tracks in play order.
func (q *Queue) Pending() []*Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Track, len(q.pending))
	copy(out, q.pending)
	return out
}
