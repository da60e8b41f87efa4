package player

import "context"

// EndReason describes why the backend stopped delivering a track.
type EndReason int

const (
	EndCompleted EndReason = iota
	EndReplaced
	EndError
)

// Mode selects how a request enters the queue.
type Mode int

const (
	ModePlayNow Mode = iota
	ModeEnqueue
)

// RankDirection selects which end of the play-count ranking to draw from.
type RankDirection int

const (
	RankTop RankDirection = iota
	RankBottom
)

// Clip is a reference to a stored sound, resolved by name or ranking.
type Clip struct {
	ID       string
	Path     string
	Category string
}

// ChannelRef identifies a voice channel a user can be joined in.
type ChannelRef struct {
	ID   string
	Name string
}

// Resolver turns clip names and ranking queries into playable source
// references. Implemented by the sound library.
type Resolver interface {
	// ClipByID resolves a clip by its case-insensitive id. Returns
	// ErrSourceNotFound when no clip matches.
	ClipByID(id string) (Clip, error)
	// RandomClip picks any clip uniformly at random. Returns ErrNoSounds
	// when the library is empty.
	RandomClip() (Clip, error)
	// RankedClips returns up to n clips from the top or bottom of the
	// play-count ranking, in rank order.
	RankedClips(direction RankDirection, n int) ([]Clip, error)
}

// Backend decodes and streams audio into a destination's voice connection
// and reports track lifecycle through the registered end handler.
type Backend interface {
	// Load resolves a source reference into a playable track. Returns
	// ErrLoadFailed (wrapped) when no playable audio can be produced.
	Load(ctx context.Context, source string) (*Track, error)
	// Start begins playback of track for the guild, interrupting any
	// current track. It reports false when playback cannot start.
	Start(guildID string, track *Track) bool
	// Stop halts the current track without emitting an end event.
	Stop(guildID string)
	// SetVolume adjusts the guild's playback volume. The value is passed
	// through as-is; range checking is the caller's concern.
	SetVolume(guildID string, volume int)
}

// VoiceGateway is the transport-side voice handle. Join only issues the
// connect request; readiness is observed through Ready.
type VoiceGateway interface {
	Join(guildID, channelID string) error
	Ready(guildID string) bool
	Leave(guildID string)
}

// ChannelLocator maps a user to their current voice channel in a guild.
type ChannelLocator interface {
	FindVoiceChannel(guildID, userID string) (ChannelRef, error)
}

// Notifier delivers user-facing error text. Failures to deliver are the
// implementation's concern.
type Notifier interface {
	NotifyUser(userID, message string)
}

// PlayRecorder persists play events for ranking and history.
type PlayRecorder interface {
	RecordPlay(guildID, userID, clipID string)
}
