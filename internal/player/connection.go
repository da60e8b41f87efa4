package player

import (
	"context"
	"log"
	"sync"
	"time"
)

// ConnState is the session's view of its voice connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	default:
		return "Disconnected"
	}
}

// ConnConfig bounds the readiness wait after a join request. The transport
// only exposes a status accessor, so the wait is a fixed-interval poll with
// a hard attempt budget.
type ConnConfig struct {
	PollInterval time.Duration
	MaxPolls     int
}

// DefaultConnConfig matches the historical 100ms x 80 wait.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{PollInterval: 100 * time.Millisecond, MaxPolls: 80}
}

// ConnManager runs the per-guild voice connection state machine:
// Disconnected -> Connecting -> Connected, back to Disconnected on an
// explicit leave. It never blocks anything but the requesting task.
type ConnManager struct {
	mu        sync.Mutex
	gateway   VoiceGateway
	guildID   string
	cfg       ConnConfig
	state     ConnState
	channelID string
}

func newConnManager(guildID string, gateway VoiceGateway, cfg ConnConfig) *ConnManager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConnConfig().PollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultConnConfig().MaxPolls
	}
	return &ConnManager{gateway: gateway, guildID: guildID, cfg: cfg}
}

// EnsureConnected joins or moves to the target channel and waits for the
// connection to become ready. Exhausting the poll budget is not an error:
// the caller proceeds and playback fails softly if the connection never
// completes. A permission failure is returned immediately, before any
// polling.
func (c *ConnManager) EnsureConnected(ctx context.Context, channel ChannelRef) error {
	c.mu.Lock()
	if c.state == StateConnected && c.channelID == channel.ID && c.gateway.Ready(c.guildID) {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.channelID = channel.ID
	c.mu.Unlock()

	if err := c.gateway.Join(c.guildID, channel.ID); err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.channelID = ""
		c.mu.Unlock()
		return err
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for polls := 0; ; polls++ {
		if c.gateway.Ready(c.guildID) {
			c.mu.Lock()
			c.state = StateConnected
			c.mu.Unlock()
			return nil
		}
		if polls >= c.cfg.MaxPolls {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	log.Printf("[Conn] Voice connection for guild %s not ready after %d polls, proceeding anyway", c.guildID, c.cfg.MaxPolls)
	return nil
}

// Disconnect releases the connection handle and returns to Disconnected.
func (c *ConnManager) Disconnect() {
	c.mu.Lock()
	c.state = StateDisconnected
	c.channelID = ""
	c.mu.Unlock()

	c.gateway.Leave(c.guildID)
}

// DisconnectFrom disconnects only when currently attached to channelID.
// Used by the voice-leave listener so a stale event for an old channel
// cannot tear down a fresh connection elsewhere.
func (c *ConnManager) DisconnectFrom(channelID string) {
	c.mu.Lock()
	if c.channelID != channelID {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	c.channelID = ""
	c.mu.Unlock()

	c.gateway.Leave(c.guildID)
}

// State returns the current connection state.
func (c *ConnManager) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ChannelID returns the channel the manager is connected or connecting to.
func (c *ConnManager) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}
