// Package commandsync decides which slash commands must be republished by
// comparing the desired registry against the last published snapshot, and
// drives the publish-then-persist cycle.
package commandsync

import (
	"context"
	"errors"

	"github.com/keshon/lilybot/internal/schema"
)

// Store persists the last published command set for one scope.
//
// Load returns ok=false with a nil error when nothing has been persisted yet;
// that is the first-run signal, not a failure.
type Store interface {
	Load(ctx context.Context) (cmds []*schema.Command, ok bool, err error)
	Save(ctx context.Context, cmds []*schema.Command) error
}

// Publisher makes a batch of definitions authoritative on the host platform.
type Publisher interface {
	Publish(ctx context.Context, cmds []*schema.Command) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, cmds []*schema.Command) error

func (f PublisherFunc) Publish(ctx context.Context, cmds []*schema.Command) error {
	return f(ctx, cmds)
}

var (
	// ErrSnapshotUnreadable means a snapshot exists but cannot be decoded.
	// Startup must abort; falling back to a full publish is not allowed.
	ErrSnapshotUnreadable = errors.New("snapshot unreadable")

	// ErrSnapshotWriteFailed means the publish succeeded but the new snapshot
	// was not persisted. The returned Result still holds the correct state.
	ErrSnapshotWriteFailed = errors.New("snapshot write failed")

	// ErrPublishFailed means the platform rejected the batch. The stored
	// snapshot is left untouched.
	ErrPublishFailed = errors.New("publish failed")
)
