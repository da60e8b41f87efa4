package player

import (
	"context"
	"log"
	"math/rand"
)

// Orchestrator is the entry point for everything that wants sound played:
// chat commands, the REST API and voice lifecycle events. It is stateless
// beyond its wiring; every call runs the same gate: rate limiter, resolver,
// session registry, session.
type Orchestrator struct {
	limiter        *RateLimiter
	sessions       *Registry
	resolver       Resolver
	notify         Notifier
	history        PlayRecorder
	leaveSuffix    string
	leaveWhenAlone bool
}

func NewOrchestrator(limiter *RateLimiter, sessions *Registry, resolver Resolver, notify Notifier, history PlayRecorder, leaveSuffix string, leaveWhenAlone bool) *Orchestrator {
	return &Orchestrator{
		limiter:        limiter,
		sessions:       sessions,
		resolver:       resolver,
		notify:         notify,
		history:        history,
		leaveSuffix:    leaveSuffix,
		leaveWhenAlone: leaveWhenAlone,
	}
}

// PlayFile resolves a clip by id and plays it now, repeated repeat times.
// Rate-limited users are dropped silently.
func (o *Orchestrator) PlayFile(ctx context.Context, guildID, userID, clipID string, repeat int) error {
	if !o.limiter.Admit(userID) {
		return nil
	}
	clip, err := o.resolver.ClipByID(clipID)
	if err != nil {
		o.notify.NotifyUser(userID, "Could not find sound to play. Requested sound: "+clipID+".")
		return err
	}
	return o.play(ctx, guildID, userID, clip, repeat, ModePlayNow)
}

// Enqueue resolves a clip by id and appends it behind the current track.
func (o *Orchestrator) Enqueue(ctx context.Context, guildID, userID, clipID string) error {
	if !o.limiter.Admit(userID) {
		return nil
	}
	clip, err := o.resolver.ClipByID(clipID)
	if err != nil {
		o.notify.NotifyUser(userID, "Could not find sound to play. Requested sound: "+clipID+".")
		return err
	}
	return o.play(ctx, guildID, userID, clip, 1, ModeEnqueue)
}

// PlayURL plays an arbitrary source URL. No play event is recorded; only
// library clips carry ranking statistics.
func (o *Orchestrator) PlayURL(ctx context.Context, guildID, userID, url string) error {
	if !o.limiter.Admit(userID) {
		return nil
	}
	return o.sessions.GetOrCreate(guildID).Request(ctx, userID, url, 1, ModePlayNow)
}

// PlayRandom picks any clip uniformly at random and plays it.
func (o *Orchestrator) PlayRandom(ctx context.Context, guildID, userID string) error {
	if !o.limiter.Admit(userID) {
		return nil
	}
	clip, err := o.resolver.RandomClip()
	if err != nil {
		o.notify.NotifyUser(userID, "There are no sounds available to play.")
		return err
	}
	log.Printf("[Orchestrator] Attempting to play random clip %q, requested by %s", clip.ID, userID)
	return o.play(ctx, guildID, userID, clip, 1, ModePlayNow)
}

// PlayTop plays a clip picked uniformly at random among the n most played.
func (o *Orchestrator) PlayTop(ctx context.Context, guildID, userID string, n int) error {
	return o.playRanked(ctx, guildID, userID, RankTop, n)
}

// PlayBottom plays a clip picked uniformly at random among the n least
// played.
func (o *Orchestrator) PlayBottom(ctx context.Context, guildID, userID string, n int) error {
	return o.playRanked(ctx, guildID, userID, RankBottom, n)
}

func (o *Orchestrator) playRanked(ctx context.Context, guildID, userID string, direction RankDirection, n int) error {
	if !o.limiter.Admit(userID) {
		return nil
	}
	if n < 1 {
		n = 1
	}
	clips, err := o.resolver.RankedClips(direction, n)
	if err != nil {
		return err
	}
	if len(clips) == 0 {
		o.notify.NotifyUser(userID, "There are no sounds available to play.")
		return ErrNoSounds
	}
	clip := clips[rand.Intn(len(clips))]
	log.Printf("[Orchestrator] Attempting to play ranked clip %q, requested by %s", clip.ID, userID)
	return o.play(ctx, guildID, userID, clip, 1, ModePlayNow)
}

func (o *Orchestrator) play(ctx context.Context, guildID, userID string, clip Clip, repeat int, mode Mode) error {
	o.history.RecordPlay(guildID, userID, clip.ID)
	return o.sessions.GetOrCreate(guildID).Request(ctx, userID, clip.Path, repeat, mode)
}

// Stop drops the guild's queue and halts playback. A guild without a
// session has nothing playing, so nothing happens.
func (o *Orchestrator) Stop(guildID string) {
	if s, ok := o.sessions.Lookup(guildID); ok {
		s.Stop()
	}
}

// SetVolume forwards the level to the guild's player.
func (o *Orchestrator) SetVolume(guildID string, level int) {
	o.sessions.GetOrCreate(guildID).SetVolume(level)
}

// OnTrackEnd routes a backend end event to the owning session. Wire this as
// the backend's track-end handler.
func (o *Orchestrator) OnTrackEnd(guildID, trackID string, reason EndReason) {
	if s, ok := o.sessions.Lookup(guildID); ok {
		s.OnTrackEnd(trackID, reason)
	}
}

// HandleVoiceLeave reacts to a user leaving the bot's voice channel. When
// the library has a clip named after the user plus the departure suffix, it
// plays in the channel the user left. After that, if the bot is the last
// member left in the channel, it disconnects, if configured to.
func (o *Orchestrator) HandleVoiceLeave(ctx context.Context, guildID, channelID, username string, remainingHumans int) {
	if o.leaveSuffix != "" && username != "" {
		if clip, err := o.resolver.ClipByID(username + o.leaveSuffix); err == nil {
			log.Printf("[Orchestrator] Playing departure clip %q for user %s", clip.ID, username)
			if err := o.sessions.GetOrCreate(guildID).PlayInChannel(ctx, ChannelRef{ID: channelID}, clip.Path); err != nil {
				log.Printf("[Orchestrator] Departure clip %q failed: %v", clip.ID, err)
			}
		}
	}

	if !o.leaveWhenAlone || remainingHumans > 0 {
		return
	}
	if s, ok := o.sessions.Lookup(guildID); ok {
		log.Printf("[Orchestrator] Bot is the last member left in channel %s, disconnecting", channelID)
		s.DisconnectFrom(channelID)
	}
}
