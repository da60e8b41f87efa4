package discord

import (
	"context"
	"log"

	"soundboard/internal/player"

	"github.com/bwmarrin/discordgo"
)

// Join issues the voice connect/move request for the guild without waiting
// for the handshake; readiness is observed through Ready. A missing connect
// permission is reported immediately as a PermissionError.
func (b *Bot) Join(guildID, channelID string) error {
	perms, err := b.dg.State.UserChannelPermissions(b.dg.State.User.ID, channelID)
	if err == nil && perms&discordgo.PermissionVoiceConnect == 0 {
		return &player.PermissionError{Channel: b.channelName(channelID)}
	}

	go func() {
		if _, err := b.dg.ChannelVoiceJoin(guildID, channelID, false, true); err != nil {
			log.Printf("[WARN] Voice join for guild %s channel %s failed: %v", guildID, channelID, err)
		}
	}()
	return nil
}

// voiceConnection reads the session's voice connection map under its lock;
// discordgo mutates the map and the connections under the same locks.
func (b *Bot) voiceConnection(guildID string) *discordgo.VoiceConnection {
	b.dg.RLock()
	defer b.dg.RUnlock()
	return b.dg.VoiceConnections[guildID]
}

// Ready reports whether the guild's voice connection is usable.
func (b *Bot) Ready(guildID string) bool {
	vc := b.voiceConnection(guildID)
	if vc == nil {
		return false
	}
	vc.RLock()
	defer vc.RUnlock()
	return vc.Ready
}

// Leave closes the guild's voice connection if one exists.
func (b *Bot) Leave(guildID string) {
	if vc := b.voiceConnection(guildID); vc != nil {
		if err := vc.Disconnect(); err != nil {
			log.Printf("[WARN] Voice disconnect for guild %s failed: %v", guildID, err)
		}
	}
}

// FindVoiceChannel finds the voice channel a user is connected to in the
// guild.
func (b *Bot) FindVoiceChannel(guildID, userID string) (player.ChannelRef, error) {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return player.ChannelRef{}, player.ErrUserNotInVoice
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return player.ChannelRef{
				ID:   vs.ChannelID,
				Name: b.channelName(vs.ChannelID),
			}, nil
		}
	}
	return player.ChannelRef{}, player.ErrUserNotInVoice
}

// FindUserGuild looks through all guilds the bot can see and returns the
// one whose voice channels contain the user. Used by the REST surface,
// which only knows user ids.
func (b *Bot) FindUserGuild(userID string) (string, error) {
	for _, guild := range b.dg.State.Guilds {
		for _, vs := range guild.VoiceStates {
			if vs.UserID == userID {
				return guild.ID, nil
			}
		}
	}
	return "", player.ErrUserNotInVoice
}

// NotifyUser sends a direct message. Delivery failures are logged; there is
// nowhere else to report them.
func (b *Bot) NotifyUser(userID, message string) {
	channel, err := b.dg.UserChannelCreate(userID)
	if err != nil {
		log.Printf("[WARN] Could not open DM channel for user %s: %v", userID, err)
		return
	}
	if _, err := b.dg.ChannelMessageSend(channel.ID, message); err != nil {
		log.Printf("[WARN] Could not DM user %s: %v", userID, err)
	}
}

func (b *Bot) channelName(channelID string) string {
	if ch, err := b.dg.State.Channel(channelID); err == nil {
		return ch.Name
	}
	return channelID
}

// onVoiceStateUpdate watches for users leaving the bot's voice channel and
// forwards the observation to the orchestrator, which plays the user's
// departure clip and disconnects once the bot is alone.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if b.orch == nil || vs.UserID == s.State.User.ID {
		return
	}

	vc := b.voiceConnection(vs.GuildID)
	if vc == nil {
		return
	}
	vc.RLock()
	channelID := vc.ChannelID
	vc.RUnlock()

	// Only a departure from the bot's channel is interesting; joins and
	// updates elsewhere are not.
	if vs.BeforeUpdate == nil || vs.BeforeUpdate.ChannelID != channelID || vs.ChannelID == channelID {
		return
	}

	guild, err := s.State.Guild(vs.GuildID)
	if err != nil {
		return
	}

	remaining := 0
	for _, state := range guild.VoiceStates {
		if state.ChannelID == channelID && state.UserID != s.State.User.ID {
			remaining++
		}
	}

	username := ""
	if vs.Member != nil && vs.Member.User != nil {
		username = vs.Member.User.Username
	} else if member, err := s.State.Member(vs.GuildID, vs.UserID); err == nil && member.User != nil {
		username = member.User.Username
	}

	b.orch.HandleVoiceLeave(context.Background(), vs.GuildID, channelID, username, remaining)
}
