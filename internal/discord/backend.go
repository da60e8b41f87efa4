package discord

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"soundboard/internal/audio"
	"soundboard/internal/player"

	"github.com/bwmarrin/discordgo"
)

// Backend streams resolved audio into guild voice connections. One decoder
// goroutine runs per playing guild; starting a track interrupts the
// previous one, which then reports a Replaced end.
type Backend struct {
	mu         sync.Mutex
	dg         *discordgo.Session
	players    map[string]*guildPlayer
	onTrackEnd func(guildID, trackID string, reason player.EndReason)
}

type guildPlayer struct {
	volume  atomic.Int32
	current *playback
}

// playback is one run of one track. Its stop channel closes exactly once,
// either from an interrupt or from the natural end of the stream.
type playback struct {
	track    *player.Track
	stop     chan struct{}
	once     sync.Once
	reason   player.EndReason
	suppress bool
}

// interrupt stops the playback and records what its run goroutine should
// report. A suppressed interrupt reports nothing (explicit stops).
func (p *playback) interrupt(reason player.EndReason, suppress bool) {
	p.once.Do(func() {
		p.reason = reason
		p.suppress = suppress
		close(p.stop)
	})
}

func NewBackend(dg *discordgo.Session) *Backend {
	return &Backend{
		dg:      dg,
		players: make(map[string]*guildPlayer),
	}
}

// SetOnTrackEnd registers the engine's end-event handler. Events are
// delivered asynchronously, at most once per started track.
func (bk *Backend) SetOnTrackEnd(fn func(guildID, trackID string, reason player.EndReason)) {
	bk.mu.Lock()
	bk.onTrackEnd = fn
	bk.mu.Unlock()
}

// Load resolves a source reference into a playable track. Local paths are
// checked for existence up front; everything else is left to the decoder.
func (bk *Backend) Load(ctx context.Context, source string) (*player.Track, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if !strings.Contains(source, "://") {
		if _, err := os.Stat(source); err != nil {
			return nil, fmt.Errorf("%w: %v", player.ErrLoadFailed, err)
		}
	}

	title := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return player.NewTrack(source, title), nil
}

// Start begins playback of the track, interrupting whatever the guild is
// currently playing. It reports false when there is no ready voice
// connection or the decoder cannot start.
func (bk *Backend) Start(guildID string, t *player.Track) bool {
	bk.dg.RLock()
	vc := bk.dg.VoiceConnections[guildID]
	bk.dg.RUnlock()
	if vc == nil {
		return false
	}
	vc.RLock()
	ready := vc.Ready
	channelID := vc.ChannelID
	vc.RUnlock()
	if !ready {
		return false
	}

	stream, cleanup, err := audio.OpenPCMStream(t.Source)
	if err != nil {
		log.Printf("[Backend] Failed to open stream for track %q: %v", t.Title, err)
		return false
	}

	bk.mu.Lock()
	gp := bk.players[guildID]
	if gp == nil {
		gp = &guildPlayer{}
		gp.volume.Store(100)
		bk.players[guildID] = gp
	}
	if prev := gp.current; prev != nil {
		prev.interrupt(player.EndReplaced, false)
	}
	pb := &playback{track: t, stop: make(chan struct{})}
	gp.current = pb
	bk.mu.Unlock()

	log.Printf("[Backend] Streaming track %q to guild %s channel %s", t.Title, guildID, channelID)
	go bk.run(guildID, gp, pb, stream, cleanup, vc)
	return true
}

func (bk *Backend) run(guildID string, gp *guildPlayer, pb *playback, stream io.ReadCloser, cleanup func(), vc *discordgo.VoiceConnection) {
	err := audio.StreamToDiscord(stream, pb.stop, func() int { return int(gp.volume.Load()) }, vc)
	cleanup()

	bk.mu.Lock()
	if gp.current == pb {
		gp.current = nil
	}
	bk.mu.Unlock()

	select {
	case <-pb.stop:
		// Interrupted by a replace or an explicit stop.
		if !pb.suppress {
			bk.emit(guildID, pb.track.ID, pb.reason)
		}
	default:
		if err != nil {
			log.Printf("[Backend] Playback error for track %q: %v", pb.track.Title, err)
			bk.emit(guildID, pb.track.ID, player.EndError)
		} else {
			bk.emit(guildID, pb.track.ID, player.EndCompleted)
		}
	}
}

func (bk *Backend) emit(guildID, trackID string, reason player.EndReason) {
	bk.mu.Lock()
	handler := bk.onTrackEnd
	bk.mu.Unlock()
	if handler != nil {
		handler(guildID, trackID, reason)
	}
}

// Stop halts the guild's current playback without emitting an end event;
// the caller already knows and has cleared its queue.
func (bk *Backend) Stop(guildID string) {
	bk.mu.Lock()
	var pb *playback
	if gp := bk.players[guildID]; gp != nil {
		pb = gp.current
		gp.current = nil
	}
	bk.mu.Unlock()

	if pb != nil {
		pb.interrupt(player.EndCompleted, true)
	}
}

// SetVolume sets the guild's playback volume. Values are applied as-is.
func (bk *Backend) SetVolume(guildID string, volume int) {
	bk.mu.Lock()
	gp := bk.players[guildID]
	if gp == nil {
		gp = &guildPlayer{}
		bk.players[guildID] = gp
	}
	bk.mu.Unlock()
	gp.volume.Store(int32(volume))
}
