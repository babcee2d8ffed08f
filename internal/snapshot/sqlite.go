package snapshot

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/keshon/lilybot/internal/commandsync"
	"github.com/keshon/lilybot/internal/schema"

	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is a SQLite database holding snapshots for any number of scopes.
type DB struct {
	db *sql.DB
}

// OpenDB opens (or creates) the database at dbPath and applies migrations.
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer and snapshot saves are rare.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return d, nil
}

// OpenDBReadOnly opens an existing database for reading. Migrations are not
// applied and every write fails.
func OpenDBReadOnly(dbPath string) (*DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA query_only = ON"} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Store returns the snapshot store for scope.
func (d *DB) Store(scope string) *SQLiteStore {
	if scope == "" {
		scope = GlobalScope
	}
	return &SQLiteStore{db: d.db, scope: scope}
}

// Scopes lists the scopes that have a snapshot.
func (d *DB) Scopes(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT scope FROM snapshot_scopes ORDER BY scope")
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}
	defer rows.Close()

	var scopes []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, rows.Err()
}

func (d *DB) migrate() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			applied_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := d.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil || version <= current {
			continue
		}
		description := strings.TrimSuffix(parts[1], ".sql")

		content, err := migrationsFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		tx, err := d.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", version, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			version, time.Now().UTC(), description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}

		log.Debug().Str("version", fmt.Sprintf("%04d", version)).Str("description", description).Msg("Applied migration")
	}
	return nil
}

// SQLiteStore is the snapshot of one scope inside a DB.
type SQLiteStore struct {
	db    *sql.DB
	scope string
}

// Load returns the commands of the scope in their stored order. A scope
// without a row in snapshot_scopes has never been saved.
func (s *SQLiteStore) Load(ctx context.Context) ([]*schema.Command, bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM snapshot_scopes WHERE scope = ?", s.scope).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query scope %s: %w", s.scope, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, definition FROM snapshot_commands WHERE scope = ? ORDER BY position", s.scope)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query commands for %s: %w", s.scope, err)
	}
	defer rows.Close()

	cmds := []*schema.Command{}
	for rows.Next() {
		var name, def string
		if err := rows.Scan(&name, &def); err != nil {
			return nil, false, fmt.Errorf("failed to scan command: %w", err)
		}
		var c schema.Command
		if err := json.Unmarshal([]byte(def), &c); err != nil {
			return nil, false, fmt.Errorf("%w: %s/%s: %w", commandsync.ErrSnapshotUnreadable, s.scope, name, err)
		}
		cmds = append(cmds, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return cmds, true, nil
}

// Save replaces the scope's snapshot in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, cmds []*schema.Command) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_scopes (scope, updated_at) VALUES (?, ?)
		ON CONFLICT(scope) DO UPDATE SET updated_at = excluded.updated_at
	`, s.scope, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert scope: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_commands WHERE scope = ?", s.scope); err != nil {
		return fmt.Errorf("failed to clear scope: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshot_commands (scope, position, name, definition) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range compact(cmds) {
		def, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", c.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, s.scope, i, c.Name, string(def)); err != nil {
			return fmt.Errorf("failed to insert %s: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Remove deletes the scope's snapshot so the next cycle bootstraps.
func (s *SQLiteStore) Remove(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_commands WHERE scope = ?", s.scope); err != nil {
		return fmt.Errorf("failed to clear scope %s: %w", s.scope, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_scopes WHERE scope = ?", s.scope); err != nil {
		return fmt.Errorf("failed to remove scope %s: %w", s.scope, err)
	}
	return tx.Commit()
}
