// Package snapshot persists the last published command set per scope.
package snapshot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/keshon/lilybot/internal/commandsync"
	"github.com/keshon/lilybot/internal/schema"

	"github.com/rs/zerolog/log"
)

// GlobalScope names the snapshot of globally registered commands.
const GlobalScope = "global"

// FileStore keeps a scope's snapshot as a JSON array in <dir>/<scope>.json.
type FileStore struct {
	path        string
	backupCount int
}

// NewFileStore returns a store for scope under dir. backupCount rotating copies
// of the previous file are kept on every save (0 disables backups).
func NewFileStore(dir, scope string, backupCount int) *FileStore {
	if scope == "" {
		scope = GlobalScope
	}
	return &FileStore{
		path:        filepath.Join(dir, scope+".json"),
		backupCount: backupCount,
	}
}

// Path returns the snapshot file location.
func (fs *FileStore) Path() string { return fs.path }

// Load reads the snapshot. A missing file is the first-run signal.
func (fs *FileStore) Load(ctx context.Context) ([]*schema.Command, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", fs.path, err)
	}

	var cmds []*schema.Command
	if err := json.Unmarshal(data, &cmds); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", commandsync.ErrSnapshotUnreadable, fs.path, err)
	}
	return cmds, true, nil
}

// Save replaces the snapshot. The new content is written next to the old file
// and renamed over it, so a crash leaves either the old or the new snapshot.
func (fs *FileStore) Save(ctx context.Context, cmds []*schema.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(compact(cmds), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if fs.backupCount > 0 {
		if err := fs.createBackup(); err != nil {
			log.Warn().Err(err).Str("path", fs.path).Msg("Failed to back up snapshot")
		}
	}

	if err := fs.writeFileAtomic(data); err != nil {
		return err
	}
	return fs.verifyFile(data)
}

// Remove deletes the snapshot so the next cycle bootstraps.
func (fs *FileStore) Remove(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(fs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", fs.path, err)
	}
	return nil
}

func (fs *FileStore) writeFileAtomic(data []byte) error {
	tmp := fs.path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp, fs.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (fs *FileStore) verifyFile(expected []byte) error {
	actual, err := os.ReadFile(fs.path)
	if err != nil {
		return fmt.Errorf("failed to read file for verification: %w", err)
	}
	if checksum(actual) != checksum(expected) {
		return fmt.Errorf("file checksum mismatch for %s", fs.path)
	}
	return nil
}

// createBackup copies the current file to <path>.backup.<timestamp> unless the
// newest backup already has the same content.
func (fs *FileStore) createBackup() error {
	src, err := os.Open(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	current, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	backups := fs.backups()
	if n := len(backups); n > 0 {
		if last, err := os.ReadFile(backups[n-1]); err == nil && bytes.Equal(last, current) {
			return nil
		}
	}

	name := fmt.Sprintf("%s.backup.%s", fs.path, time.Now().Format("20060102_150405.000000"))
	if err := os.WriteFile(name, current, 0644); err != nil {
		return err
	}

	fs.cleanupOldBackups()
	return nil
}

// backups returns existing backup files, oldest first.
func (fs *FileStore) backups() []string {
	matches, err := filepath.Glob(fs.path + ".backup.*")
	if err != nil {
		return nil
	}
	// The timestamp suffix sorts lexically in time order.
	sort.Strings(matches)
	return matches
}

func (fs *FileStore) cleanupOldBackups() {
	files := fs.backups()
	for i := 0; i < len(files)-fs.backupCount; i++ {
		os.Remove(files[i])
	}
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
