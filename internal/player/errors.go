package player

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotInVoice = errors.New("user is not in any voice channel")
	ErrSourceNotFound = errors.New("sound not found")
	ErrNoSounds       = errors.New("no sounds available")
	ErrLoadFailed     = errors.New("could not load audio")
)

// PermissionError reports that the bot may not join a voice channel. It
// carries the channel name so callers can tell the user which one.
type PermissionError struct {
	Channel string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("no permission to join voice channel %s", e.Channel)
}
