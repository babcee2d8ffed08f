package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/keshon/lilybot/internal/command"
	"github.com/keshon/lilybot/internal/commandsync"
	"github.com/keshon/lilybot/internal/discord"
	"github.com/keshon/lilybot/internal/schema"
	"github.com/spf13/cobra"
)

var (
	scopeColor  = color.New(color.FgCyan, color.Bold)
	addColor    = color.New(color.FgGreen)
	changeColor = color.New(color.FgYellow)
	dimColor    = color.New(color.FgHiBlack)
)

func newPlanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show which commands the next start would publish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, backend, err := opts.open(true)
			if err != nil {
				return err
			}
			defer backend.Close()

			registry, err := command.NewRegistry(command.Deps{})
			if err != nil {
				return err
			}
			defs := registry.Definitions()
			out := cmd.OutOrStdout()

			for _, scope := range cfg.Scopes() {
				syncer := commandsync.NewSyncer(backend.Store(scope), nil)
				plan, err := syncer.Plan(cmd.Context(), defs)
				if err != nil {
					return fmt.Errorf("%s: %w", discord.ScopeName(scope), err)
				}
				printPlan(out, discord.ScopeName(scope), plan)
			}
			return nil
		},
	}
}

func printPlan(out io.Writer, scope string, plan commandsync.Plan) {
	scopeColor.Fprintln(out, scope)
	switch {
	case plan.Empty():
		dimColor.Fprintln(out, "  up to date")
		return
	case plan.Bootstrap:
		addColor.Fprintf(out, "  no snapshot, all %d commands will be published\n", len(plan.ToPublish))
		return
	}
	for _, c := range plan.ToPublish {
		reason := plan.Reasons[c.Name]
		if reason == commandsync.ReasonNew {
			addColor.Fprintf(out, "  + %s\n", c.Name)
			continue
		}
		changeColor.Fprintf(out, "  ~ %s (%s)\n", c.Name, reason)
	}
}

func newShowCmd(opts *options) *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "show",
		Short: "Print the recorded snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, backend, err := opts.open(true)
			if err != nil {
				return err
			}
			defer backend.Close()
			out := cmd.OutOrStdout()

			for _, scope := range cfg.Scopes() {
				cmds, found, err := backend.Store(scope).Load(cmd.Context())
				if err != nil {
					return fmt.Errorf("%s: %w", discord.ScopeName(scope), err)
				}
				if asJSON {
					if err := printJSON(out, discord.ScopeName(scope), cmds); err != nil {
						return err
					}
					continue
				}
				scopeColor.Fprintln(out, discord.ScopeName(scope))
				if !found {
					dimColor.Fprintln(out, "  no snapshot")
					continue
				}
				for _, c := range cmds {
					fmt.Fprintf(out, "  %-16s %s\n", c.Name, dimColor.Sprintf("%d options", len(c.Options)))
				}
			}
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "Print the full definitions as JSON")
	return c
}

func printJSON(out io.Writer, scope string, cmds []*schema.Command) error {
	data, err := json.MarshalIndent(map[string]any{"scope": scope, "commands": cmds}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func newResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop the snapshot so the next start publishes every command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, backend, err := opts.open(false)
			if err != nil {
				return err
			}
			defer backend.Close()

			for _, scope := range cfg.Scopes() {
				if err := backend.Store(scope).Remove(cmd.Context()); err != nil {
					return fmt.Errorf("%s: %w", discord.ScopeName(scope), err)
				}
				changeColor.Fprintf(cmd.OutOrStdout(), "%s: snapshot removed\n", discord.ScopeName(scope))
			}
			return nil
		},
	}
}
