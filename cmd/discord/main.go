// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/lilybot/internal/anilist"
	"github.com/keshon/lilybot/internal/command"
	"github.com/keshon/lilybot/internal/command/permalink"
	"github.com/keshon/lilybot/internal/config"
	"github.com/keshon/lilybot/internal/discord"
	"github.com/keshon/lilybot/internal/github"
	"github.com/keshon/lilybot/internal/logging"
	"github.com/keshon/lilybot/internal/middleware"
	"github.com/keshon/lilybot/internal/search"
	"github.com/keshon/lilybot/internal/snapshot"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		logging.Setup(logging.Options{})
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	logger.Info().Strs("scopes", cfg.Scopes()).Str("snapshots", cfg.SnapshotBackend).Msg("Starting lilybot...")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend, err := snapshot.Open(snapshot.Config{
		Backend: cfg.SnapshotBackend,
		Dir:     cfg.SnapshotDir,
		DBPath:  cfg.SnapshotDB,
		Backups: cfg.SnapshotBackups,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open snapshot store")
	}
	defer backend.Close()

	bot, err := discord.New(cfg, backend)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	registry, err := command.NewRegistry(command.Deps{
		Latency:     bot.Latency,
		RESTLatency: bot.RESTLatency,
		Search: search.New(search.Options{
			BaseURL:   cfg.SearchURL,
			Key:       cfg.SearchKey,
			CX:        cfg.SearchCX,
			Timeout:   cfg.HTTPTimeout,
			CacheSize: cfg.CacheSize,
			CacheTTL:  cfg.CacheTTL,
		}),
		AniList: anilist.New(anilist.Options{
			URL:       cfg.AniListURL,
			Timeout:   cfg.HTTPTimeout,
			CacheSize: cfg.CacheSize,
			CacheTTL:  cfg.CacheTTL,
		}),
	},
		middleware.WithRecover(),
		middleware.WithCommandLogger(logger),
		middleware.WithTimeout(cfg.HTTPTimeout*2),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build command registry")
	}

	bot.AddListener(permalink.New(bot.Session(), github.NewClient(cfg.GitHubRaw, cfg.HTTPTimeout)))

	if err := bot.Run(ctx, registry); err != nil {
		log.Error().Err(err).Msg("Discord bot error")
		cancel()
		backend.Close()
		os.Exit(1)
	}

	log.Info().Msg("Discord bot exited cleanly")
}
