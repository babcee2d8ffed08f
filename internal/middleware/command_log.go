package middleware

import (
	"context"
	"time"

	"github.com/keshon/lilybot/internal/discord"
	"github.com/keshon/lilybot/pkg/cmd"
	"github.com/rs/zerolog"
)

// WithCommandLogger logs every execution with its caller and duration.
func WithCommandLogger(logger zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			ev := logger.Info()
			if err != nil {
				ev = logger.Warn().Err(err)
			}
			if dc, derr := discord.FromInvocation(inv); derr == nil {
				ev = ev.Str("guild", dc.GuildID()).Str("user", dc.UserID())
			}
			ev.Str("command", c.Name()).Dur("took", time.Since(start)).Msg("Command executed")
			return err
		})
	}
}
