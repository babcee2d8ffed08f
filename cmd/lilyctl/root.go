package main

import (
	"fmt"

	"github.com/keshon/lilybot/internal/config"
	"github.com/keshon/lilybot/internal/snapshot"
	"github.com/spf13/cobra"
)

type options struct {
	backend string
	dir     string
	db      string
	guilds  []string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "lilyctl",
		Short: "Inspect the bot's slash command snapshots",
		Long: `lilyctl reads the same environment (.env included) as the bot and works on
its command snapshots: preview what the next start would publish, print what
is recorded, or drop a snapshot so everything is published again.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "Snapshot backend (file|sqlite), defaults to SNAPSHOT_BACKEND")
	root.PersistentFlags().StringVar(&opts.dir, "dir", "", "Snapshot directory, defaults to SNAPSHOT_DIR")
	root.PersistentFlags().StringVar(&opts.db, "db", "", "SQLite database, defaults to SNAPSHOT_DB")
	root.PersistentFlags().StringSliceVar(&opts.guilds, "guild", nil, "Guild scope(s); defaults to GUILD_IDS or global")

	root.AddCommand(newPlanCmd(opts), newShowCmd(opts), newResetCmd(opts), newRemoteCmd(opts))
	return root
}

// load returns the configuration with flag overrides applied.
func (o *options) load() (*config.Config, error) {
	config.LoadDotEnv()
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}
	if o.backend != "" {
		cfg.SnapshotBackend = o.backend
	}
	if o.dir != "" {
		cfg.SnapshotDir = o.dir
	}
	if o.db != "" {
		cfg.SnapshotDB = o.db
	}
	if len(o.guilds) > 0 {
		cfg.GuildIDs = o.guilds
	}
	if err := cfg.ValidateSnapshot(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open loads the configuration and opens the snapshot backend. Inspecting
// commands pass readOnly so that nothing is created on disk.
func (o *options) open(readOnly bool) (*config.Config, snapshot.Backend, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	backend, err := snapshot.Open(snapshot.Config{
		Backend:  cfg.SnapshotBackend,
		Dir:      cfg.SnapshotDir,
		DBPath:   cfg.SnapshotDB,
		Backups:  cfg.SnapshotBackups,
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshots: %w", err)
	}
	return cfg, backend, nil
}
