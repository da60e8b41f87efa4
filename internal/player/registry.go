package player

import "sync"

// SessionFactory builds the session for a guild on first access.
type SessionFactory func(guildID string) *Session

// Registry holds the one playback session per guild, created lazily. The
// lock only covers the create-if-absent check; sessions for different
// guilds never contend once created. Sessions live for the process
// lifetime and are not evicted.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  SessionFactory
}

func NewRegistry(factory SessionFactory) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// GetOrCreate returns the guild's session, creating it on first access. At
// most one session ever exists per guild, even under concurrent first
// access.
func (r *Registry) GetOrCreate(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		return s
	}
	s := r.factory(guildID)
	r.sessions[guildID] = s
	return s
}

// Lookup returns the guild's session without creating one. Used for event
// routing, where a missing session means there is nothing to deliver to.
func (r *Registry) Lookup(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	return s, ok
}
