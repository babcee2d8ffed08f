// Package command assembles the bot's slash commands into a registry.
package command

import (
	"context"
	"time"

	"github.com/keshon/lilybot/internal/command/core"
	"github.com/keshon/lilybot/internal/command/mdn"
	"github.com/keshon/lilybot/internal/command/media"
	"github.com/keshon/lilybot/pkg/cmd"
)

// Deps are the collaborators commands need at run time. Building a registry
// only to read definitions (e.g. from the CLI) works with zero Deps.
type Deps struct {
	Latency     func() time.Duration
	RESTLatency func(ctx context.Context) (time.Duration, error)
	Search      mdn.Searcher
	AniList     media.Client
}

// NewRegistry registers every command, applies mws to each and seals the result.
func NewRegistry(d Deps, mws ...cmd.Middleware) (*cmd.Registry, error) {
	r := cmd.NewRegistry()
	commands := []cmd.Command{
		&core.PingCommand{Latency: d.Latency, RESTLatency: d.RESTLatency},
		mdn.New(d.Search),
		media.NewAnime(d.AniList),
		media.NewManga(d.AniList),
	}
	for _, c := range commands {
		if err := r.Register(c, mws...); err != nil {
			return nil, err
		}
	}
	r.Seal()
	return r, nil
}
