package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/lilybot/internal/commandsync"
	"github.com/keshon/lilybot/internal/config"
	"github.com/keshon/lilybot/internal/snapshot"
	"github.com/keshon/lilybot/pkg/cmd"
	"github.com/keshon/lilybot/pkg/ratelimit"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// MessageListener reacts to plain channel messages.
type MessageListener interface {
	OnMessage(ctx context.Context, m *discordgo.MessageCreate) error
}

// Bot is a Discord bot
type Bot struct {
	dg        *discordgo.Session
	cfg       *config.Config
	registry  *cmd.Registry
	backend   snapshot.Backend
	limiter   *ratelimit.AdaptiveLimiter
	listeners []MessageListener
	ctx       context.Context
}

// New creates the session without connecting it.
func New(cfg *config.Config, backend snapshot.Backend) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	limit := rate.Limit(cfg.PublishRate)
	return &Bot{
		dg:      dg,
		cfg:     cfg,
		backend: backend,
		limiter: ratelimit.NewAdaptiveLimiter(limit, 1, limit*2, 1, 0.5),
	}, nil
}

// Session exposes the underlying session for commands that need it.
func (b *Bot) Session() *discordgo.Session { return b.dg }

// Latency returns the gateway heartbeat latency.
func (b *Bot) Latency() time.Duration { return b.dg.HeartbeatLatency() }

// RESTLatency times a lightweight REST call.
func (b *Bot) RESTLatency(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := b.dg.User("@me", discordgo.WithContext(ctx)); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// AddListener registers a message listener. Call before Run.
func (b *Bot) AddListener(l MessageListener) {
	b.listeners = append(b.listeners, l)
}

// Run reconciles the registry with Discord, then connects and serves
// interactions until ctx is done. Handlers are attached only after commands
// are in place.
func (b *Bot) Run(ctx context.Context, registry *cmd.Registry) error {
	registry.Seal()
	b.registry = registry
	b.ctx = ctx

	if b.cfg.InitSlashCommands {
		if err := b.SyncCommands(ctx); err != nil {
			return err
		}
	} else {
		log.Info().Msg("Registering slash commands skipped")
	}

	b.dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onMessageCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received. Cleaning up...")
	return nil
}

// SyncCommands runs one reconciliation per configured scope. A snapshot that
// cannot be written is logged and skipped; every other failure aborts.
func (b *Bot) SyncCommands(ctx context.Context) error {
	appID, err := b.appID(ctx)
	if err != nil {
		return err
	}
	defs := b.registry.Definitions()

	for _, scope := range b.cfg.Scopes() {
		name := ScopeName(scope)
		logger := log.With().Str("scope", name).Logger()
		syncer := commandsync.NewSyncer(
			b.backend.Store(scope),
			NewGateway(b.dg, appID, scope, b.limiter),
			commandsync.WithPublishTimeout(b.cfg.PublishTimeout),
			commandsync.WithLogger(logger),
		)

		res, err := syncer.Sync(ctx, defs)
		switch {
		case errors.Is(err, commandsync.ErrSnapshotWriteFailed):
			logger.Warn().Err(err).Msg("Commands published but the snapshot was not saved; they will be published again next start")
		case err != nil:
			return fmt.Errorf("sync commands for %s: %w", name, err)
		}
		logger.Info().
			Int("published", len(res.Plan.ToPublish)).
			Int("known", len(res.Snapshot)).
			Msg("Slash commands reconciled")
	}
	return nil
}

func (b *Bot) appID(ctx context.Context) (string, error) {
	if b.dg.State != nil && b.dg.State.User != nil {
		return b.dg.State.User.ID, nil
	}
	u, err := b.dg.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("resolve application id: %w", err)
	}
	return u.ID, nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
}

// onInteractionCreate dispatches slash commands, autocomplete and message
// components. Interactions from outside a guild are ignored.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.dispatch(s, i.Interaction)
}

func (b *Bot) dispatch(r Responder, i *discordgo.Interaction) {
	if i.GuildID == "" {
		return
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand, discordgo.InteractionApplicationCommandAutocomplete:
	case discordgo.InteractionMessageComponent:
		b.dispatchComponent(r, i)
		return
	default:
		return
	}

	inv := Invocation(r, i)
	c, ok := b.registry.Get(inv.Name)
	if !ok {
		log.Warn().Str("command", inv.Name).Msg("Unknown command")
		return
	}

	if i.Type == discordgo.InteractionApplicationCommandAutocomplete {
		ac, ok := cmd.Root(c).(cmd.Autocompleter)
		if !ok {
			return
		}
		if err := ac.Autocomplete(b.ctx, inv); err != nil {
			log.Error().Err(err).Str("command", inv.Name).Msg("Autocomplete failed")
		}
		return
	}

	if err := c.Run(b.ctx, inv); err != nil {
		log.Error().Err(err).Str("command", inv.Name).Msg("Error running command")
	}
}

func (b *Bot) dispatchComponent(r Responder, i *discordgo.Interaction) {
	inv := ComponentInvocation(r, i)
	h, ok := b.registry.Component(inv.Name)
	if !ok {
		log.Warn().Str("component", inv.Name).Msg("Unknown component")
		return
	}
	if err := h.HandleComponent(b.ctx, inv); err != nil {
		log.Error().Err(err).Str("component", inv.Name).Msg("Error handling component")
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	for _, l := range b.listeners {
		if err := l.OnMessage(b.ctx, m); err != nil {
			log.Error().Err(err).Str("channel", m.ChannelID).Msg("Error handling message")
		}
	}
}
