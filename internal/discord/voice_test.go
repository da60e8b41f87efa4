package discord

import (
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

// discordgo mutates the voice connection map and the connections under the
// session's and connection's locks; readiness checks must take them too.
func TestReadyGuardedAgainstSessionMutation(t *testing.T) {
	dg := &discordgo.Session{VoiceConnections: make(map[string]*discordgo.VoiceConnection)}
	b := &Bot{dg: dg}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			vc := &discordgo.VoiceConnection{}
			vc.Lock()
			vc.Ready = i%2 == 0
			vc.Unlock()
			dg.Lock()
			dg.VoiceConnections["guild-1"] = vc
			dg.Unlock()
		}
	}()

	for i := 0; i < 500; i++ {
		b.Ready("guild-1")
	}
	wg.Wait()

	if b.voiceConnection("guild-1") == nil {
		t.Fatal("voice connection lookup lost the stored connection")
	}
}
