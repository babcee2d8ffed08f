package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/lilybot/internal/commandsync"
	"github.com/keshon/lilybot/internal/schema"
	"github.com/keshon/lilybot/internal/snapshot"
	"github.com/keshon/lilybot/pkg/ratelimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CommandAPI is the part of *discordgo.Session the gateway needs.
type CommandAPI interface {
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Gateway publishes command definitions to one scope: a guild, or global
// when guildID is empty.
//
// Each definition is created individually; Discord treats a create with an
// existing name as an overwrite, so commands outside the batch stay as they are.
type Gateway struct {
	api     CommandAPI
	appID   string
	guildID string
	limiter *ratelimit.AdaptiveLimiter
	logger  zerolog.Logger
}

var _ commandsync.Publisher = (*Gateway)(nil)

// NewGateway returns a gateway for the given application and scope.
func NewGateway(api CommandAPI, appID, guildID string, limiter *ratelimit.AdaptiveLimiter) *Gateway {
	return &Gateway{
		api:     api,
		appID:   appID,
		guildID: guildID,
		limiter: limiter,
		logger:  log.With().Str("scope", ScopeName(guildID)).Logger(),
	}
}

// Publish creates or overwrites every command in order and stops at the
// first failure.
func (g *Gateway) Publish(ctx context.Context, cmds []*schema.Command) error {
	for _, c := range cmds {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("publish %s: %w", c.Name, err)
			}
		}
		_, err := g.api.ApplicationCommandCreate(g.appID, g.guildID, ToApplicationCommand(c), discordgo.WithContext(ctx))
		err = withStatus(err)
		if g.limiter != nil {
			g.limiter.Observe(err)
		}
		if err != nil {
			return fmt.Errorf("publish %s: %w", c.Name, err)
		}
		g.logger.Debug().Str("command", c.Name).Msg("command published")
	}
	return nil
}

// Remote lists the commands Discord currently holds for the scope.
func (g *Gateway) Remote(ctx context.Context) ([]*schema.Command, error) {
	acs, err := g.api.ApplicationCommands(g.appID, g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", withStatus(err))
	}
	cmds := make([]*schema.Command, 0, len(acs))
	for _, ac := range acs {
		cmds = append(cmds, FromApplicationCommand(ac))
	}
	return cmds, nil
}

// withStatus exposes the HTTP status of a Discord REST error to the limiter.
func withStatus(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return &ratelimit.StatusError{Code: rest.Response.StatusCode, Err: err}
	}
	return err
}

// ScopeName is the log and snapshot name of a scope.
func ScopeName(guildID string) string {
	if guildID == "" {
		return snapshot.GlobalScope
	}
	return guildID
}
