package core

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/lilybot/internal/discord"
	"github.com/keshon/lilybot/internal/schema"
	"github.com/keshon/lilybot/pkg/cmd"
	"github.com/rs/zerolog/log"
)

// PingCommand reports gateway and REST latency.
type PingCommand struct {
	Latency     func() time.Duration
	RESTLatency func(ctx context.Context) (time.Duration, error)
}

func (c *PingCommand) Name() string { return "ping" }

func (c *PingCommand) Definition() *schema.Command {
	return &schema.Command{
		Name:        c.Name(),
		Description: "pong",
		Type:        schema.ChatInputCommand,
	}
}

func (c *PingCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := discord.FromInvocation(inv)
	if err != nil {
		return err
	}

	var ws, rest time.Duration
	if c.Latency != nil {
		ws = c.Latency()
	}
	if c.RESTLatency != nil {
		if rest, err = c.RESTLatency(ctx); err != nil {
			log.Warn().Err(err).Msg("REST ping failed")
		}
	}

	return dc.Respond(fmt.Sprintf("🏓 WebSocket: `%dms` | Rest: `%dms`", ws.Milliseconds(), rest.Milliseconds()))
}
