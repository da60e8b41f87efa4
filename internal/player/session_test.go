package player

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type fakeBackend struct {
	mu      sync.Mutex
	accept  bool
	loadErr error
	loads   []string
	started []*Track
	stops   int
	volumes map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{accept: true, volumes: make(map[string]int)}
}

func (f *fakeBackend) Load(ctx context.Context, source string) (*Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.loads = append(f.loads, source)
	title := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return NewTrack(source, title), nil
}

func (f *fakeBackend) Start(guildID string, t *Track) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accept {
		f.started = append(f.started, t)
	}
	return f.accept
}

func (f *fakeBackend) Stop(guildID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeBackend) SetVolume(guildID string, volume int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes[guildID] = volume
}

func (f *fakeBackend) startedTracks() []*Track {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Track, len(f.started))
	copy(out, f.started)
	return out
}

type fakeLocator struct {
	channel ChannelRef
	err     error
}

func (f *fakeLocator) FindVoiceChannel(guildID, userID string) (ChannelRef, error) {
	if f.err != nil {
		return ChannelRef{}, f.err
	}
	if f.channel.ID == "" {
		return ChannelRef{ID: "vc-1", Name: "General"}, nil
	}
	return f.channel, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) NotifyUser(userID, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func newTestSession(backend *fakeBackend, gw *fakeGateway, loc *fakeLocator, n *fakeNotifier) *Session {
	return NewSession("guild-1", backend, gw, loc, n, testConnConfig())
}

func TestSession_PlayThenCompleteGoesIdle(t *testing.T) {
	backend := newFakeBackend()
	s := newTestSession(backend, &fakeGateway{readyAfter: 0}, &fakeLocator{}, &fakeNotifier{})

	err := s.Request(context.Background(), "user-a", "/sounds/airhorn.mp3", 1, ModePlayNow)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	started := backend.startedTracks()
	if len(started) != 1 {
		t.Fatalf("backend started %d tracks, expected 1", len(started))
	}
	if cur := s.Queue().Current(); cur == nil || cur.ID != started[0].ID {
		t.Fatal("started track is not the current track")
	}

	s.OnTrackEnd(started[0].ID, EndCompleted)

	if s.Queue().Current() != nil {
		t.Error("session should be idle after the only track completed")
	}
	if got := len(backend.startedTracks()); got != 1 {
		t.Errorf("backend started %d tracks, no further start expected after idle", got)
	}
}

func TestSession_RepeatExpandsWithClones(t *testing.T) {
	backend := newFakeBackend()
	s := newTestSession(backend, &fakeGateway{readyAfter: 0}, &fakeLocator{}, &fakeNotifier{})

	const repeat = 3
	if err := s.Request(context.Background(), "user-a", "/sounds/bruh.mp3", repeat, ModePlayNow); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	started := backend.startedTracks()
	if len(started) != 1 {
		t.Fatalf("backend started %d tracks, expected 1", len(started))
	}
	pending := s.Queue().Pending()
	if len(pending) != repeat-1 {
		t.Fatalf("pending = %d, expected %d clones queued", len(pending), repeat-1)
	}

	// Only one load happens; the repeats are clones with fresh ids over the
	// same source.
	if len(backend.loads) != 1 {
		t.Errorf("backend loaded %d times, expected 1", len(backend.loads))
	}
	seen := map[string]bool{started[0].ID: true}
	for _, clone := range pending {
		if clone.Source != started[0].Source {
			t.Errorf("clone source = %q, expected %q", clone.Source, started[0].Source)
		}
		if seen[clone.ID] {
			t.Error("clone shares an id with another instance")
		}
		seen[clone.ID] = true
	}
}

func TestSession_UserNotInVoice(t *testing.T) {
	backend := newFakeBackend()
	notify := &fakeNotifier{}
	s := newTestSession(backend, &fakeGateway{readyAfter: 0}, &fakeLocator{err: ErrUserNotInVoice}, notify)

	err := s.Request(context.Background(), "user-a", "/sounds/airhorn.mp3", 1, ModePlayNow)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(notify.messages) != 1 {
		t.Fatalf("expected a user notification, got %d", len(notify.messages))
	}
	if len(backend.loads) != 0 || s.Queue().Current() != nil {
		t.Error("no queue mutation may happen when the user cannot be located")
	}
}

func TestSession_PermissionDeniedNotifiesWithChannel(t *testing.T) {
	backend := newFakeBackend()
	notify := &fakeNotifier{}
	gw := &fakeGateway{readyAfter: -1, joinErr: &PermissionError{Channel: "Secret Base"}}
	s := newTestSession(backend, gw, &fakeLocator{channel: ChannelRef{ID: "vc-9", Name: "Secret Base"}}, notify)

	err := s.Request(context.Background(), "user-a", "/sounds/airhorn.mp3", 1, ModePlayNow)
	if err == nil {
		t.Fatal("expected permission error")
	}
	if len(notify.messages) != 1 || !strings.Contains(notify.messages[0], "Secret Base") {
		t.Errorf("notification should name the channel, got %v", notify.messages)
	}
	if len(backend.loads) != 0 {
		t.Error("no load may happen on permission failure")
	}
}

func TestSession_LoadFailureNotifies(t *testing.T) {
	backend := newFakeBackend()
	backend.loadErr = errors.New("boom")
	notify := &fakeNotifier{}
	s := newTestSession(backend, &fakeGateway{readyAfter: 0}, &fakeLocator{}, notify)

	if err := s.Request(context.Background(), "user-a", "/sounds/broken.mp3", 1, ModePlayNow); err == nil {
		t.Fatal("expected load error")
	}
	if len(notify.messages) != 1 {
		t.Errorf("expected a generic notification, got %v", notify.messages)
	}
}

func TestSession_StaleTrackEndIgnored(t *testing.T) {
	backend := newFakeBackend()
	s := newTestSession(backend, &fakeGateway{readyAfter: 0}, &fakeLocator{}, &fakeNotifier{})

	if err := s.Request(context.Background(), "user-a", "/sounds/a.mp3", 1, ModePlayNow); err != nil {
		t.Fatal(err)
	}
	if err := s.Request(context.Background(), "user-a", "/sounds/b.mp3", 1, ModeEnqueue); err != nil {
		t.Fatal(err)
	}

	cur := s.Queue().Current()
	s.OnTrackEnd("not-the-current-track", EndCompleted)

	if got := s.Queue().Current(); got == nil || got.ID != cur.ID {
		t.Error("stale end event advanced the queue")
	}
}

func TestSession_DisconnectStopsPlayback(t *testing.T) {
	backend := newFakeBackend()
	gw := &fakeGateway{readyAfter: 0}
	s := NewSession("guild-1", backend, gw, &fakeLocator{}, &fakeNotifier{}, testConnConfig())

	if err := s.Request(context.Background(), "user-a", "/sounds/a.mp3", 2, ModePlayNow); err != nil {
		t.Fatal(err)
	}

	// A leave event for some other channel must not touch playback.
	s.DisconnectFrom("vc-other")
	if backend.stops != 0 || gw.leaves != 0 {
		t.Fatal("disconnect for an unrelated channel touched the session")
	}

	s.DisconnectFrom("vc-1")
	if backend.stops != 1 {
		t.Errorf("backend stopped %d times, expected the stream stopped on disconnect", backend.stops)
	}
	if s.Queue().Current() != nil || len(s.Queue().Pending()) != 0 {
		t.Error("queue not cleared on disconnect")
	}
	if gw.leaves != 1 {
		t.Errorf("gateway leaves = %d, expected 1", gw.leaves)
	}
}

func TestSession_StopClearsQueue(t *testing.T) {
	backend := newFakeBackend()
	s := newTestSession(backend, &fakeGateway{readyAfter: 0}, &fakeLocator{}, &fakeNotifier{})

	s.Request(context.Background(), "user-a", "/sounds/a.mp3", 3, ModePlayNow)
	s.Stop()

	if s.Queue().Current() != nil || len(s.Queue().Pending()) != 0 {
		t.Error("stop did not clear the queue")
	}
	if backend.stops != 1 {
		t.Errorf("backend stopped %d times, expected 1", backend.stops)
	}
}
