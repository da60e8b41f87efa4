package player

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Session is the live playback state of one guild: its track queue and its
// voice connection. Exactly one session exists per guild; it is the sole
// owner of its queue and the only thing that mutates it, in response to
// orchestrator calls, backend end events and explicit stops.
type Session struct {
	guildID string
	backend Backend
	locator ChannelLocator
	notify  Notifier
	conn    *ConnManager
	queue   *Queue
}

// NewSession wires a session for one guild. Sessions are created by the
// registry, not directly.
func NewSession(guildID string, backend Backend, gateway VoiceGateway, locator ChannelLocator, notify Notifier, cfg ConnConfig) *Session {
	s := &Session{
		guildID: guildID,
		backend: backend,
		locator: locator,
		notify:  notify,
	}
	s.conn = newConnManager(guildID, gateway, cfg)
	s.queue = newQueue(s)
	return s
}

// starter implementation, binding the backend to this guild.

func (s *Session) startTrack(t *Track) bool {
	return s.backend.Start(s.guildID, t)
}

func (s *Session) stopTrack() {
	s.backend.Stop(s.guildID)
}

// Request joins the requesting user's voice channel, loads the source and
// hands the result to the queue. A repeat count above one expands into that
// many queue entries; the first consumes the loaded track, the rest consume
// clones because a track is single-use.
func (s *Session) Request(ctx context.Context, userID, source string, repeat int, mode Mode) error {
	channel, err := s.locator.FindVoiceChannel(s.guildID, userID)
	if err != nil {
		s.notify.NotifyUser(userID, "I can not find you in any voice channel. Are you sure you are connected to voice?")
		return fmt.Errorf("locating voice channel: %w", err)
	}

	if err := s.conn.EnsureConnected(ctx, channel); err != nil {
		var perr *PermissionError
		if errors.As(err, &perr) {
			s.notify.NotifyUser(userID, "I do not have permission to join the channel: "+perr.Channel+".")
		}
		return err
	}

	track, err := s.backend.Load(ctx, source)
	if err != nil {
		log.Printf("[Session] Load failed for %q in guild %s: %v", source, s.guildID, err)
		s.notify.NotifyUser(userID, "Could not load the requested sound.")
		return err
	}
	track.RequestedBy = userID

	if repeat < 1 {
		repeat = 1
	}

	if mode == ModePlayNow && repeat == 1 {
		s.queue.PlayImmediately(track)
		return nil
	}

	for i := 0; i < repeat; i++ {
		t := track
		if i > 0 {
			log.Printf("[Session] Queuing additional play of track %q", track.Title)
			t = track.Clone()
		}
		s.queue.EnqueueOrStart(t)
	}
	return nil
}

// OnTrackEnd is the backend's completion callback for this guild. End
// events for tracks the queue no longer owns are ignored; they are late
// reports about playback that has already been superseded.
func (s *Session) OnTrackEnd(trackID string, reason EndReason) {
	if reason == EndReplaced {
		s.queue.OnCurrentFinished(reason)
		return
	}
	cur := s.queue.Current()
	if cur == nil || cur.ID != trackID {
		return
	}
	s.queue.OnCurrentFinished(reason)
}

// Stop clears the queue and halts the current track. It does not touch the
// voice connection; an in-flight connect simply completes unused.
func (s *Session) Stop() {
	s.queue.Clear()
}

// SetVolume forwards the level to the backend's per-guild player. The value
// is not validated here.
func (s *Session) SetVolume(level int) {
	s.backend.SetVolume(s.guildID, level)
}

// PlayInChannel connects to a known channel and plays source right away.
// Used for departure clips, where the triggering user has already left
// voice and cannot be located.
func (s *Session) PlayInChannel(ctx context.Context, channel ChannelRef, source string) error {
	if err := s.conn.EnsureConnected(ctx, channel); err != nil {
		return err
	}
	track, err := s.backend.Load(ctx, source)
	if err != nil {
		return err
	}
	s.queue.PlayImmediately(track)
	return nil
}

// DisconnectFrom tears down the voice connection if it is attached to the
// given channel. The queue is cleared first so the backend stops the
// stream; a decoder left feeding a dead connection would block on it
// forever and its track would never report an end.
func (s *Session) DisconnectFrom(channelID string) {
	if s.conn.ChannelID() != channelID {
		return
	}
	s.queue.Clear()
	s.conn.DisconnectFrom(channelID)
}

// ConnState exposes the connection state, mainly for status surfaces.
func (s *Session) ConnState() ConnState {
	return s.conn.State()
}

// Queue exposes the session's queue for inspection.
func (s *Session) Queue() *Queue {
	return s.queue
}
