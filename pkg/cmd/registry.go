package cmd

import (
	"errors"
	"fmt"

	"github.com/keshon/lilybot/internal/schema"
)

// ErrSealed is returned by Register once the registry has been sealed.
var ErrSealed = errors.New("registry is sealed")

// Registry is the desired command set. It is filled once at startup, sealed,
// and read-only afterwards. Registration order is kept: it is the order in
// which definitions are reconciled and published.
type Registry struct {
	order      []string
	commands   map[string]Command
	components map[string]ComponentHandler
	sealed     bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:   make(map[string]Command),
		components: make(map[string]ComponentHandler),
	}
}

// Register adds a command after checking that its definition is valid and
// that its name is free.
func (r *Registry) Register(c Command, mws ...Middleware) error {
	if r.sealed {
		return ErrSealed
	}
	def := c.Definition()
	if err := def.Validate(); err != nil {
		return fmt.Errorf("register %s: %w", c.Name(), err)
	}
	if def.Name != c.Name() {
		return fmt.Errorf("register %s: definition is named %q", c.Name(), def.Name)
	}
	if _, dup := r.commands[c.Name()]; dup {
		return fmt.Errorf("register %s: duplicate command name", c.Name())
	}
	if h, ok := Root(c).(ComponentHandler); ok {
		ids := h.ComponentIDs()
		for _, id := range ids {
			if _, dup := r.components[id]; dup {
				return fmt.Errorf("register %s: duplicate component id %q", c.Name(), id)
			}
		}
		for _, id := range ids {
			r.components[id] = h
		}
	}
	r.commands[c.Name()] = Apply(c, mws...)
	r.order = append(r.order, c.Name())
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() { r.sealed = true }

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool { return r.sealed }

// Get returns the command with the given name.
func (r *Registry) Get(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// Component returns the handler owning the component custom id.
func (r *Registry) Component(customID string) (ComponentHandler, bool) {
	h, ok := r.components[customID]
	return h, ok
}

// All returns the registered commands in registration order.
func (r *Registry) All() []Command {
	list := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.commands[name])
	}
	return list
}

// Definitions returns deep copies of every command's schema in registration
// order, so callers can never mutate the desired state.
func (r *Registry) Definitions() []*schema.Command {
	defs := make([]*schema.Command, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.commands[name].Definition().Clone())
	}
	return defs
}
