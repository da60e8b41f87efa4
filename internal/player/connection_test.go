package player

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeGateway struct {
	mu         sync.Mutex
	readyAfter int // Ready returns true from this many checks on; -1 = never
	readyCalls int
	joinErr    error
	joins      []string
	leaves     int
}

func (f *fakeGateway) Join(guildID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joins = append(f.joins, channelID)
	return nil
}

func (f *fakeGateway) Ready(guildID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyCalls++
	return f.readyAfter >= 0 && f.readyCalls > f.readyAfter
}

func (f *fakeGateway) Leave(guildID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves++
}

func testConnConfig() ConnConfig {
	return ConnConfig{PollInterval: time.Millisecond, MaxPolls: 80}
}

func TestConnManager_ConnectsAfterFewPolls(t *testing.T) {
	gw := &fakeGateway{readyAfter: 3}
	c := newConnManager("guild-1", gw, testConnConfig())

	if err := c.EnsureConnected(context.Background(), ChannelRef{ID: "vc-1", Name: "General"}); err != nil {
		t.Fatalf("EnsureConnected returned error: %v", err)
	}
	if c.State() != StateConnected {
		t.Errorf("state = %v, expected Connected", c.State())
	}
	if gw.readyCalls > 4 {
		t.Errorf("readiness checked %d times, expected at most 4", gw.readyCalls)
	}
}

func TestConnManager_GivesUpAfterPollBudget(t *testing.T) {
	gw := &fakeGateway{readyAfter: -1}
	cfg := ConnConfig{PollInterval: time.Millisecond, MaxPolls: 10}
	c := newConnManager("guild-1", gw, cfg)

	done := make(chan error, 1)
	go func() {
		done <- c.EnsureConnected(context.Background(), ChannelRef{ID: "vc-1"})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("exhausted poll budget must not be an error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("EnsureConnected hung with a backend that never connects")
	}

	if got := gw.readyCalls; got != cfg.MaxPolls+1 {
		t.Errorf("readiness checked %d times, expected %d", got, cfg.MaxPolls+1)
	}
	if c.State() == StateConnected {
		t.Error("state must not be Connected after exhausting the budget")
	}
}

func TestConnManager_PermissionFailureImmediate(t *testing.T) {
	gw := &fakeGateway{readyAfter: -1, joinErr: &PermissionError{Channel: "General"}}
	c := newConnManager("guild-1", gw, testConnConfig())

	err := c.EnsureConnected(context.Background(), ChannelRef{ID: "vc-1", Name: "General"})
	if err == nil {
		t.Fatal("expected permission error")
	}
	if gw.readyCalls != 0 {
		t.Errorf("poll loop ran %d times on permission failure, expected none", gw.readyCalls)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %v, expected Disconnected", c.State())
	}
}

func TestConnManager_NoopWhenAlreadyConnected(t *testing.T) {
	gw := &fakeGateway{readyAfter: 0}
	c := newConnManager("guild-1", gw, testConnConfig())

	if err := c.EnsureConnected(context.Background(), ChannelRef{ID: "vc-1"}); err != nil {
		t.Fatal(err)
	}
	joins := len(gw.joins)

	if err := c.EnsureConnected(context.Background(), ChannelRef{ID: "vc-1"}); err != nil {
		t.Fatal(err)
	}
	if len(gw.joins) != joins {
		t.Error("reconnect to the same channel issued another join")
	}

	// Moving to a different channel must issue a new join.
	if err := c.EnsureConnected(context.Background(), ChannelRef{ID: "vc-2"}); err != nil {
		t.Fatal(err)
	}
	if len(gw.joins) != joins+1 {
		t.Error("move to a different channel did not issue a join")
	}
}

func TestConnManager_DisconnectFrom(t *testing.T) {
	gw := &fakeGateway{readyAfter: 0}
	c := newConnManager("guild-1", gw, testConnConfig())
	if err := c.EnsureConnected(context.Background(), ChannelRef{ID: "vc-1"}); err != nil {
		t.Fatal(err)
	}

	c.DisconnectFrom("vc-other")
	if c.State() != StateConnected || gw.leaves != 0 {
		t.Error("disconnect for an unrelated channel must be ignored")
	}

	c.DisconnectFrom("vc-1")
	if c.State() != StateDisconnected || gw.leaves != 1 {
		t.Error("disconnect for the attached channel did not release the connection")
	}
}
