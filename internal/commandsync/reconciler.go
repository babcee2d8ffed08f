package commandsync

import (
	"github.com/keshon/lilybot/internal/schema"
)

// Plan is the outcome of one reconciliation: what to publish and what the
// snapshot looks like once that publish has gone through.
type Plan struct {
	// ToPublish holds the registry commands that are new or changed, in
	// registry order.
	ToPublish []*schema.Command
	// Snapshot is the merged state to persist after a successful publish.
	Snapshot []*schema.Command
	// Bootstrap is set when no prior snapshot existed.
	Bootstrap bool
	// Reasons maps each published command name to the path of the change
	// that triggered it ("new" for commands absent from the snapshot).
	Reasons map[string]string
}

// Empty reports whether the cycle has nothing to do.
func (p Plan) Empty() bool {
	return len(p.ToPublish) == 0
}

// Names returns the names of the commands to publish.
func (p Plan) Names() []string {
	names := make([]string, len(p.ToPublish))
	for i, c := range p.ToPublish {
		names[i] = c.Name
	}
	return names
}

// ReasonBootstrap and ReasonNew are the Plan.Reasons values for commands that
// are published without a structural comparison.
const (
	ReasonBootstrap = "bootstrap"
	ReasonNew       = "new"
)

// Reconcile computes the publish set for registry against the cached snapshot.
// found=false means no snapshot has ever been persisted.
//
// Cached commands that are no longer in the registry stay in the returned
// snapshot and are never retracted. Neither input is modified.
func Reconcile(registry, cached []*schema.Command, found bool) Plan {
	plan := Plan{Reasons: make(map[string]string)}

	if !found {
		plan.Bootstrap = true
		plan.ToPublish = schema.CloneAll(registry)
		plan.Snapshot = schema.CloneAll(registry)
		for _, c := range registry {
			plan.Reasons[c.Name] = ReasonBootstrap
		}
		return plan
	}

	snapshot := schema.CloneAll(cached)
	index := make(map[string]int, len(snapshot))
	for i, c := range snapshot {
		if c == nil {
			continue
		}
		if _, dup := index[c.Name]; !dup {
			index[c.Name] = i
		}
	}

	for _, want := range registry {
		if want == nil {
			continue
		}
		i, ok := index[want.Name]
		if !ok {
			plan.ToPublish = append(plan.ToPublish, want.Clone())
			plan.Reasons[want.Name] = ReasonNew
			index[want.Name] = len(snapshot)
			snapshot = append(snapshot, want.Clone())
			continue
		}

		why := Explain(want, snapshot[i])
		if why == "" {
			continue
		}
		plan.ToPublish = append(plan.ToPublish, want.Clone())
		plan.Reasons[want.Name] = why
		snapshot[i] = want.Clone()
	}

	plan.Snapshot = snapshot
	return plan
}
