package player

import (
	"sync"
	"time"
)

// RateLimiter gates playback requests per user. A non-exempt user is
// admitted at most once per cooldown window; exempt users are always
// admitted without recording state. Rejections are silent, the caller
// decides whether to tell the user.
type RateLimiter struct {
	mu        sync.Mutex
	cooldown  time.Duration
	unlimited map[string]struct{}
	last      map[string]time.Time
	now       func() time.Time
}

// NewRateLimiter creates a limiter with the given cooldown. A zero or
// negative cooldown disables limiting entirely.
func NewRateLimiter(cooldown time.Duration, unlimitedUserIDs []string) *RateLimiter {
	unlimited := make(map[string]struct{}, len(unlimitedUserIDs))
	for _, id := range unlimitedUserIDs {
		unlimited[id] = struct{}{}
	}
	return &RateLimiter{
		cooldown:  cooldown,
		unlimited: unlimited,
		last:      make(map[string]time.Time),
		now:       time.Now,
	}
}

// Admit reports whether the user may trigger a playback request now. On
// admission the user's timestamp is advanced to now.
func (r *RateLimiter) Admit(userID string) bool {
	if r.cooldown <= 0 {
		return true
	}
	if _, ok := r.unlimited[userID]; ok {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if last, ok := r.last[userID]; ok && now.Sub(last) < r.cooldown {
		return false
	}
	r.last[userID] = now
	return true
}
