// Package cmd provides a transport-agnostic command core: a command has a
// name, a declared schema and Run(ctx, invocation). How it is published and
// dispatched (Discord slash, CLI) is defined by adapters that wrap this.
package cmd

import (
	"context"

	"github.com/keshon/lilybot/internal/schema"
)

// Invocation carries what an adapter extracted from the incoming request.
// Data holds the adapter's own context (e.g. *discord.Context).
type Invocation struct {
	Name    string
	Options map[string]any
	// Focused names the option being typed during autocomplete.
	Focused string
	// Values holds the choices picked in a select menu.
	Values []string
	Data   any
}

// String returns the option value as a string, or "" if absent or not a string.
func (inv *Invocation) String(name string) string {
	s, _ := inv.Options[name].(string)
	return s
}

// Number returns a numeric option value. JSON numbers arrive as float64.
func (inv *Invocation) Number(name string) (float64, bool) {
	switch v := inv.Options[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Command is the universal contract: identity, schema and execution.
type Command interface {
	Name() string
	Definition() *schema.Command
	Run(ctx context.Context, inv *Invocation) error
}

// Autocompleter is implemented by commands that suggest option values while
// the user is typing.
type Autocompleter interface {
	Autocomplete(ctx context.Context, inv *Invocation) error
}

// ComponentHandler is implemented by commands that attach message components
// (select menus, buttons) to their answers and handle the follow-up
// interactions. Invocation.Name carries the component's custom id.
type ComponentHandler interface {
	ComponentIDs() []string
	HandleComponent(ctx context.Context, inv *Invocation) error
}
