package discord

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// onMessageCreate parses prefix commands from guild channels and DMs.
// Every handler invocation runs on its own goroutine, so blocking on the
// orchestrator here is fine.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if b.orch == nil || m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}

	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, b.cfg.CommandPrefix) {
		return
	}

	if b.isUserBanned(m.Author.ID) {
		log.Printf("[WARN] Ignoring command from banned user %s", m.Author.ID)
		return
	}
	if !b.isUserAllowed(m.Author.ID) {
		return
	}

	args := strings.Fields(strings.TrimPrefix(content, b.cfg.CommandPrefix))
	if len(args) == 0 {
		return
	}

	guildID := m.GuildID
	if guildID == "" {
		// DM. Figure out which guild's voice channel the user sits in.
		id, err := b.FindUserGuild(m.Author.ID)
		if err != nil {
			b.NotifyUser(m.Author.ID, "I can not find you in any voice channel. Are you connected to a voice channel?")
			return
		}
		guildID = id
	}

	ctx := context.Background()
	userID := m.Author.ID

	switch strings.ToLower(args[0]) {
	case "help":
		b.NotifyUser(userID, b.helpText())
	case "list":
		b.NotifyUser(userID, b.soundListText())
	case "random":
		b.orch.PlayRandom(ctx, guildID, userID)
	case "top":
		b.orch.PlayTop(ctx, guildID, userID, parseCount(args, 5))
	case "bottom":
		b.orch.PlayBottom(ctx, guildID, userID, parseCount(args, 5))
	case "stop":
		b.orch.Stop(guildID)
	case "volume":
		if len(args) < 2 {
			b.NotifyUser(userID, "Usage: "+b.cfg.CommandPrefix+"volume <0-100>")
			return
		}
		level, err := strconv.Atoi(args[1])
		if err != nil {
			b.NotifyUser(userID, "Volume must be a number between 0 and 100.")
			return
		}
		b.orch.SetVolume(guildID, clamp(level, 0, 100))
	case "queue":
		if len(args) < 2 {
			b.NotifyUser(userID, "Usage: "+b.cfg.CommandPrefix+"queue <sound name>")
			return
		}
		b.orch.Enqueue(ctx, guildID, userID, args[1])
	case "url":
		if len(args) < 2 {
			b.NotifyUser(userID, "Usage: "+b.cfg.CommandPrefix+"url <link>")
			return
		}
		b.orch.PlayURL(ctx, guildID, userID, args[1])
	default:
		// Bare sound name, with an optional repeat count after it,
		// either "?sound 3" or "?sound repeat 3".
		repeat := 1
		rest := args[1:]
		if len(rest) > 1 && strings.EqualFold(rest[0], "repeat") {
			rest = rest[1:]
		}
		if len(rest) > 0 {
			if n, err := strconv.Atoi(rest[0]); err == nil {
				repeat = clamp(n, 1, b.cfg.RepeatLimit)
			}
		}
		b.orch.PlayFile(ctx, guildID, userID, args[0], repeat)
	}
}

func (b *Bot) helpText() string {
	p := b.cfg.CommandPrefix
	var sb strings.Builder
	sb.WriteString("Soundboard commands:\n")
	fmt.Fprintf(&sb, "`%s<sound> [times]` play a sound, optionally repeated\n", p)
	fmt.Fprintf(&sb, "`%squeue <sound>` add a sound after the current one\n", p)
	fmt.Fprintf(&sb, "`%surl <link>` play audio from a link\n", p)
	fmt.Fprintf(&sb, "`%srandom` play a random sound\n", p)
	fmt.Fprintf(&sb, "`%stop [n]` play one of the n most played sounds\n", p)
	fmt.Fprintf(&sb, "`%sbottom [n]` play one of the n least played sounds\n", p)
	fmt.Fprintf(&sb, "`%svolume <0-100>` set playback volume\n", p)
	fmt.Fprintf(&sb, "`%sstop` stop playback and clear the queue\n", p)
	fmt.Fprintf(&sb, "`%slist` list available sounds", p)
	return sb.String()
}

func (b *Bot) soundListText() string {
	clips := b.library.Clips()
	if len(clips) == 0 {
		return "No sounds available."
	}

	var sb strings.Builder
	sb.WriteString("Available sounds:\n")
	for _, clip := range clips {
		if clip.Category != "" {
			fmt.Fprintf(&sb, "`%s` (%s)\n", clip.ID, clip.Category)
		} else {
			fmt.Fprintf(&sb, "`%s`\n", clip.ID)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func parseCount(args []string, fallback int) int {
	if len(args) < 2 {
		return fallback
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
