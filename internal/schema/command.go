// Package schema holds the typed representation of slash-command definitions
// as they are declared locally and as they were last published.
package schema

import (
	"errors"
	"fmt"
)

// CommandType mirrors Discord's application command type.
type CommandType int

const (
	ChatInputCommand CommandType = 1
	UserCommand      CommandType = 2
	MessageCommand   CommandType = 3
)

// OptionKind mirrors Discord's application command option type.
type OptionKind int

const (
	SubCommand      OptionKind = 1
	SubCommandGroup OptionKind = 2
	String          OptionKind = 3
	Integer         OptionKind = 4
	Boolean         OptionKind = 5
	User            OptionKind = 6
	Channel         OptionKind = 7
	Role            OptionKind = 8
	Mentionable     OptionKind = 9
	Number          OptionKind = 10
	Attachment      OptionKind = 11
)

// MaxDepth is the deepest option nesting the platform accepts:
// command -> group -> subcommand -> parameter.
const MaxDepth = 3

var kindNames = map[OptionKind]string{
	SubCommand:      "sub_command",
	SubCommandGroup: "sub_command_group",
	String:          "string",
	Integer:         "integer",
	Boolean:         "boolean",
	User:            "user",
	Channel:         "channel",
	Role:            "role",
	Mentionable:     "mentionable",
	Number:          "number",
	Attachment:      "attachment",
}

func (k OptionKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Nested reports whether options of this kind carry child options.
func (k OptionKind) Nested() bool {
	return k == SubCommand || k == SubCommandGroup
}

// Command is a named top-level command. Name is its only identity.
type Command struct {
	Name                     string      `json:"name"`
	Description              string      `json:"description"`
	Type                     CommandType `json:"type,omitempty"`
	NSFW                     *bool       `json:"nsfw,omitempty"`
	DMPermission             *bool       `json:"dm_permission,omitempty"`
	DefaultMemberPermissions *int64      `json:"default_member_permissions,omitempty"`
	Options                  []*Option   `json:"options,omitempty"`
}

// Option is one parameter of a command, or a grouping node when Kind is
// SubCommand or SubCommandGroup.
type Option struct {
	Kind         OptionKind `json:"type"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Required     bool       `json:"required,omitempty"`
	Autocomplete bool       `json:"autocomplete,omitempty"`

	MinLength    *int     `json:"min_length,omitempty"`
	MaxLength    *int     `json:"max_length,omitempty"`
	MinValue     *float64 `json:"min_value,omitempty"`
	MaxValue     *float64 `json:"max_value,omitempty"`
	ChannelTypes []int    `json:"channel_types,omitempty"`

	Options []*Option `json:"options,omitempty"`
}

// Option returns the option with the given name, if present.
func (c *Command) Option(name string) (*Option, bool) {
	return findOption(c.Options, name)
}

// Option returns the nested option with the given name, if present.
func (o *Option) Option(name string) (*Option, bool) {
	return findOption(o.Options, name)
}

func findOption(opts []*Option, name string) (*Option, bool) {
	for _, o := range opts {
		if o != nil && o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of c.
func (c *Command) Clone() *Command {
	if c == nil {
		return nil
	}
	out := *c
	out.NSFW = clonePtr(c.NSFW)
	out.DMPermission = clonePtr(c.DMPermission)
	out.DefaultMemberPermissions = clonePtr(c.DefaultMemberPermissions)
	out.Options = cloneOptions(c.Options)
	return &out
}

// Clone returns a deep copy of o.
func (o *Option) Clone() *Option {
	if o == nil {
		return nil
	}
	out := *o
	out.MinLength = clonePtr(o.MinLength)
	out.MaxLength = clonePtr(o.MaxLength)
	out.MinValue = clonePtr(o.MinValue)
	out.MaxValue = clonePtr(o.MaxValue)
	if o.ChannelTypes != nil {
		out.ChannelTypes = append([]int(nil), o.ChannelTypes...)
	}
	out.Options = cloneOptions(o.Options)
	return &out
}

func cloneOptions(opts []*Option) []*Option {
	if opts == nil {
		return nil
	}
	out := make([]*Option, len(opts))
	for i, o := range opts {
		out[i] = o.Clone()
	}
	return out
}

// CloneAll deep-copies a list of commands.
func CloneAll(cmds []*Command) []*Command {
	if cmds == nil {
		return nil
	}
	out := make([]*Command, len(cmds))
	for i, c := range cmds {
		out[i] = c.Clone()
	}
	return out
}

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("invalid command definition")

// Validate checks the structural rules the platform enforces before a
// definition can be published.
func (c *Command) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil command", ErrInvalid)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalid)
	}
	return validateOptions(c.Name, c.Options, 1)
}

func validateOptions(path string, opts []*Option, depth int) error {
	if len(opts) > 0 && depth > MaxDepth {
		return fmt.Errorf("%w: %s: nesting deeper than %d levels", ErrInvalid, path, MaxDepth)
	}
	seen := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		if o == nil {
			return fmt.Errorf("%w: %s: nil option", ErrInvalid, path)
		}
		if o.Name == "" {
			return fmt.Errorf("%w: %s: option with empty name", ErrInvalid, path)
		}
		if _, dup := seen[o.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate option %q", ErrInvalid, path, o.Name)
		}
		seen[o.Name] = struct{}{}

		child := path + "." + o.Name
		if len(o.Options) > 0 && !o.Kind.Nested() {
			return fmt.Errorf("%w: %s: %s option cannot have children", ErrInvalid, child, o.Kind)
		}
		if err := validateOptions(child, o.Options, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
