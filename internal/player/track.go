package player

import "github.com/google/uuid"

// Track is a resolved, ready-to-stream audio unit. A track is single-use:
// once handed to the backend it cannot be started again. Repeated plays go
// through Clone.
type Track struct {
	ID          string
	Source      string
	Title       string
	RequestedBy string
}

// NewTrack creates a track for the given source with a fresh instance id.
func NewTrack(source, title string) *Track {
	return &Track{
		ID:     uuid.NewString(),
		Source: source,
		Title:  title,
	}
}

// Clone returns an independent playable instance of the same audio.
func (t *Track) Clone() *Track {
	c := *t
	c.ID = uuid.NewString()
	return &c
}
