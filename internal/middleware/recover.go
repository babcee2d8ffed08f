package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/lilybot/pkg/cmd"
)

// WithRecover turns a panic inside a command into an error.
func WithRecover() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("command %s panicked: %v", c.Name(), r)
				}
			}()
			return c.Run(ctx, inv)
		})
	}
}

// WithTimeout bounds a command's context.
func WithTimeout(d time.Duration) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return c.Run(ctx, inv)
		})
	}
}
