package main

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/lilybot/internal/command"
	"github.com/keshon/lilybot/internal/commandsync"
	"github.com/keshon/lilybot/internal/discord"
	"github.com/keshon/lilybot/internal/schema"
	"github.com/spf13/cobra"
)

func newRemoteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remote",
		Short: "Compare local definitions with what Discord currently holds",
		Long: `remote lists the commands registered with Discord for each scope and
compares them with the local definitions using the same rules as startup.
Needs DISCORD_TOKEN. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.DiscordToken == "" {
				return errors.New("DISCORD_TOKEN is required")
			}
			dg, err := discordgo.New("Bot " + cfg.DiscordToken)
			if err != nil {
				return err
			}
			me, err := dg.User("@me", discordgo.WithContext(cmd.Context()))
			if err != nil {
				return fmt.Errorf("resolve application id: %w", err)
			}

			registry, err := command.NewRegistry(command.Deps{})
			if err != nil {
				return err
			}
			defs := registry.Definitions()
			out := cmd.OutOrStdout()

			for _, scope := range cfg.Scopes() {
				remote, err := discord.NewGateway(dg, me.ID, scope, nil).Remote(cmd.Context())
				if err != nil {
					return fmt.Errorf("%s: %w", discord.ScopeName(scope), err)
				}
				scopeColor.Fprintln(out, discord.ScopeName(scope))
				printComparison(cmd, defs, remote)
			}
			return nil
		},
	}
}

func printComparison(cmd *cobra.Command, local, remote []*schema.Command) {
	out := cmd.OutOrStdout()
	byName := make(map[string]*schema.Command, len(remote))
	for _, r := range remote {
		byName[r.Name] = discord.Normalize(r)
	}
	for _, l := range local {
		l = discord.Normalize(l)
		r, ok := byName[l.Name]
		switch {
		case !ok:
			addColor.Fprintf(out, "  + %s (not registered)\n", l.Name)
		case commandsync.Differs(l, r):
			changeColor.Fprintf(out, "  ~ %s (%s)\n", l.Name, commandsync.Explain(l, r))
		default:
			dimColor.Fprintf(out, "  = %s\n", l.Name)
		}
		delete(byName, l.Name)
	}
	for _, r := range remote {
		if _, stale := byName[r.Name]; stale {
			dimColor.Fprintf(out, "  ? %s (registered, not defined locally)\n", r.Name)
		}
	}
}
