package discord

import (
	"context"
	"fmt"
	"log"

	"soundboard/internal/config"
	"soundboard/internal/library"
	"soundboard/internal/player"

	"github.com/bwmarrin/discordgo"
)

// Bot owns the Discord session and implements the engine's gateway-facing
// collaborators: voice gateway, channel locator and user notifier.
type Bot struct {
	dg      *discordgo.Session
	cfg     *config.Config
	backend *Backend
	orch    *player.Orchestrator
	library *library.Library
}

// NewBot creates the Discord session and the audio backend bound to it.
// The orchestrator is attached later because it needs the backend first.
func NewBot(cfg *config.Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	b := &Bot{dg: dg, cfg: cfg}
	b.backend = NewBackend(dg)
	b.configureIntents()
	return b, nil
}

// Backend returns the bot's audio backend for wiring into the engine.
func (b *Bot) Backend() *Backend {
	return b.backend
}

// SetOrchestrator attaches the playback engine. Must be called before Run.
func (b *Bot) SetOrchestrator(orch *player.Orchestrator, lib *library.Library) {
	b.orch = orch
	b.library = lib
}

// Run opens the Discord session and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	log.Println("[INFO] Shutdown signal received. Cleaning up...")
	return nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("[INFO] Logged in as %s, serving %d guild(s)", r.User.Username, len(r.Guilds))
	s.UpdateGameStatus(0, "Type "+b.cfg.CommandPrefix+"help for a list of commands.")
}

// isUserAllowed mirrors the allow-list gate: an empty list allows everyone.
func (b *Bot) isUserAllowed(userID string) bool {
	if len(b.cfg.AllowedUserIDs) == 0 {
		return true
	}
	for _, id := range b.cfg.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) isUserBanned(userID string) bool {
	for _, id := range b.cfg.BannedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
