// cmd/discord/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soundboard/internal/api"
	"soundboard/internal/config"
	"soundboard/internal/discord"
	"soundboard/internal/library"
	"soundboard/internal/player"
	"soundboard/internal/storage"
)

func main() {
	log.Println("[INFO] Starting soundboard bot...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.New()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	lib := library.New(cfg.SoundsDir, store)
	if err := lib.Scan(); err != nil {
		log.Fatal(err)
	}
	go lib.Watch(ctx)

	bot, err := discord.NewBot(cfg)
	if err != nil {
		log.Fatal(err)
	}

	connCfg := player.ConnConfig{
		PollInterval: time.Duration(cfg.ConnectPollIntervalMs) * time.Millisecond,
		MaxPolls:     cfg.ConnectMaxPolls,
	}
	sessions := player.NewRegistry(func(guildID string) *player.Session {
		return player.NewSession(guildID, bot.Backend(), bot, bot, bot, connCfg)
	})

	limiter := player.NewRateLimiter(
		time.Duration(cfg.RateLimitCooldownSec)*time.Second,
		cfg.UnlimitedUserIDs,
	)

	orch := player.NewOrchestrator(limiter, sessions, lib, bot, store, cfg.LeaveSuffix, cfg.LeaveWhenAlone)
	bot.Backend().SetOnTrackEnd(orch.OnTrackEnd)
	bot.SetOrchestrator(orch, lib)

	go api.RunServer(ctx, cfg.APIAddr, api.Deps{
		Orchestrator:  orch,
		Library:       lib,
		Storage:       store,
		FindUserGuild: bot.FindUserGuild,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	case <-ctx.Done():
	}

	log.Println("[INFO] Soundboard bot exited cleanly")
}
