package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/keshon/lilybot/internal/commandsync"
	"github.com/keshon/lilybot/internal/schema"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Store is a commandsync.Store that can also forget its snapshot.
type Store interface {
	commandsync.Store
	Remove(ctx context.Context) error
}

// Backend hands out per-scope stores over one storage medium.
type Backend interface {
	Store(scope string) Store
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string
	Dir     string
	DBPath  string
	Backups int
	// ReadOnly opens the backend for inspection: nothing is created or
	// migrated, and a missing database reads as no snapshot for every scope.
	ReadOnly bool
}

// Open returns the backend named by cfg.Backend.
func Open(cfg Config) (Backend, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return &fileBackend{dir: cfg.Dir, backups: cfg.Backups}, nil
	case BackendSQLite:
		if cfg.ReadOnly {
			return openSQLiteReadOnly(cfg.DBPath)
		}
		db, err := OpenDB(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return &sqliteBackend{db: db}, nil
	case BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

func openSQLiteReadOnly(dbPath string) (Backend, error) {
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return NewMemoryBackend(), nil
	}
	db, err := OpenDBReadOnly(dbPath)
	if err != nil {
		return nil, err
	}
	return &sqliteBackend{db: db}, nil
}

type fileBackend struct {
	dir     string
	backups int
}

func (b *fileBackend) Store(scope string) Store { return NewFileStore(b.dir, scope, b.backups) }
func (b *fileBackend) Close() error             { return nil }

type sqliteBackend struct {
	db *DB
}

func (b *sqliteBackend) Store(scope string) Store { return b.db.Store(scope) }
func (b *sqliteBackend) Close() error             { return b.db.Close() }

// MemoryBackend keeps snapshots in process memory, so every start is a first
// run and republishes everything. Used for dry runs and tests.
type MemoryBackend struct {
	mu     sync.Mutex
	scopes map[string][]*schema.Command
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{scopes: make(map[string][]*schema.Command)}
}

func (b *MemoryBackend) Store(scope string) Store {
	if scope == "" {
		scope = GlobalScope
	}
	return &MemoryStore{backend: b, scope: scope}
}

func (b *MemoryBackend) Close() error { return nil }

// MemoryStore is one scope of a MemoryBackend.
type MemoryStore struct {
	backend *MemoryBackend
	scope   string
}

// NewMemoryStore returns a standalone in-memory store, optionally seeded.
func NewMemoryStore(seed []*schema.Command, found bool) *MemoryStore {
	b := NewMemoryBackend()
	s := &MemoryStore{backend: b, scope: GlobalScope}
	if found {
		b.scopes[GlobalScope] = schema.CloneAll(seed)
		if b.scopes[GlobalScope] == nil {
			b.scopes[GlobalScope] = []*schema.Command{}
		}
	}
	return s
}

func (s *MemoryStore) Load(ctx context.Context) ([]*schema.Command, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	cmds, ok := s.backend.scopes[s.scope]
	if !ok {
		return nil, false, nil
	}
	return schema.CloneAll(cmds), true, nil
}

func (s *MemoryStore) Save(ctx context.Context, cmds []*schema.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	s.backend.scopes[s.scope] = schema.CloneAll(compact(cmds))
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()

	delete(s.backend.scopes, s.scope)
	return nil
}

// compact drops nil entries. Stores never persist them, and an empty result
// is still a non-nil slice so the snapshot counts as present.
func compact(cmds []*schema.Command) []*schema.Command {
	out := make([]*schema.Command, 0, len(cmds))
	for _, c := range cmds {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
