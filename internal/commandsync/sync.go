package commandsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keshon/lilybot/internal/schema"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Syncer runs one reconciliation cycle: load, plan, publish, persist.
type Syncer struct {
	store          Store
	publisher      Publisher
	publishTimeout time.Duration
	logger         zerolog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithPublishTimeout bounds the publish call. Zero means no extra bound.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Syncer) { s.publishTimeout = d }
}

// WithLogger replaces the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// NewSyncer returns a Syncer bound to one snapshot store and one publisher.
func NewSyncer(store Store, publisher Publisher, opts ...Option) *Syncer {
	s := &Syncer{
		store:     store,
		publisher: publisher,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result describes a finished cycle.
type Result struct {
	Plan Plan
	// Published is true when the publish call succeeded.
	Published bool
	// Persisted is true when the updated snapshot reached the store.
	Persisted bool
	// Snapshot is the state the process should consider published. It equals
	// Plan.Snapshot when something was published and the loaded snapshot otherwise.
	Snapshot []*schema.Command
}

// Plan loads the snapshot and reconciles it against registry without
// publishing or saving anything.
func (s *Syncer) Plan(ctx context.Context, registry []*schema.Command) (Plan, error) {
	cached, found, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrSnapshotUnreadable) {
			return Plan{}, err
		}
		return Plan{}, fmt.Errorf("%w: %w", ErrSnapshotUnreadable, err)
	}
	return Reconcile(registry, cached, found), nil
}

// Sync runs the full cycle. Error policy:
//   - ErrSnapshotUnreadable: nothing is published; the caller should abort.
//   - ErrPublishFailed: the store is not touched; the caller should abort.
//   - ErrSnapshotWriteFailed: publish went through and the returned Result is
//     valid; the caller may keep running on Result.Snapshot.
func (s *Syncer) Sync(ctx context.Context, registry []*schema.Command) (Result, error) {
	cached, found, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrSnapshotUnreadable) {
			err = fmt.Errorf("%w: %w", ErrSnapshotUnreadable, err)
		}
		return Result{}, err
	}

	plan := Reconcile(registry, cached, found)
	res := Result{Plan: plan, Snapshot: cached}

	if plan.Empty() {
		s.logger.Info().Int("commands", len(registry)).Msg("All commands are cached, nothing to publish")
		return res, nil
	}

	if plan.Bootstrap {
		s.logger.Info().Int("commands", len(plan.ToPublish)).Msg("No snapshot found, publishing all commands")
	} else {
		for _, c := range plan.ToPublish {
			s.logger.Info().Str("command", c.Name).Str("reason", plan.Reasons[c.Name]).Msg("Command changed")
		}
	}

	if err := s.publish(ctx, plan.ToPublish); err != nil {
		return res, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	res.Published = true
	res.Snapshot = plan.Snapshot

	if err := s.store.Save(ctx, plan.Snapshot); err != nil {
		return res, fmt.Errorf("%w: %w", ErrSnapshotWriteFailed, err)
	}
	res.Persisted = true

	s.logger.Info().Strs("commands", plan.Names()).Msg("Published changed commands")
	return res, nil
}

func (s *Syncer) publish(ctx context.Context, cmds []*schema.Command) error {
	if s.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()
	}
	return s.publisher.Publish(ctx, cmds)
}
