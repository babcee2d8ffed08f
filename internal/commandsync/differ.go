package commandsync

import (
	"github.com/keshon/lilybot/internal/schema"
)

// Differs reports whether the desired definition must be republished over the
// cached one. The check is conservative: it may flag equivalent definitions
// (e.g. reordered channel types) but never misses a change to a compared field.
func Differs(incoming, cached *schema.Command) bool {
	return Explain(incoming, cached) != ""
}

// DiffersOption is the per-option form of Differs.
func DiffersOption(incoming, cached *schema.Option) bool {
	return explainOption(incoming, cached) != ""
}

// Explain returns the dotted path of the first difference between incoming and
// cached, or "" when they are equal under the comparison rules.
func Explain(incoming, cached *schema.Command) string {
	if incoming == nil || cached == nil {
		if incoming == cached {
			return ""
		}
		return "command"
	}

	// Count first so a grown or shrunk option list never reaches the per-option walk.
	if len(incoming.Options) != len(cached.Options) {
		return "options.count"
	}

	switch {
	case incoming.Type != cached.Type:
		return "type"
	case incoming.Name != cached.Name:
		return "name"
	case incoming.Description != cached.Description:
		return "description"
	case !schema.Equal(incoming.NSFW, cached.NSFW):
		return "nsfw"
	case !schema.Equal(incoming.DMPermission, cached.DMPermission):
		return "dm_permission"
	case !schema.Equal(incoming.DefaultMemberPermissions, cached.DefaultMemberPermissions):
		return "default_member_permissions"
	}

	return explainPairs("options", incoming.Options, cached.Options)
}

// explainPairs matches every incoming option to a cached one by name. A name
// with no cached counterpart (added or renamed option) counts as a difference.
func explainPairs(path string, incoming, cached []*schema.Option) string {
	for _, in := range incoming {
		if in == nil {
			continue
		}
		prev, ok := lookup(cached, in.Name)
		if !ok {
			return path + "." + in.Name + ".missing"
		}
		if why := explainOption(in, prev); why != "" {
			return path + "." + why
		}
	}
	return ""
}

func lookup(opts []*schema.Option, name string) (*schema.Option, bool) {
	for _, o := range opts {
		if o != nil && o.Name == name {
			return o, true
		}
	}
	return nil, false
}

func explainOption(incoming, cached *schema.Option) string {
	if incoming == nil || cached == nil {
		if incoming == cached {
			return ""
		}
		return "option"
	}

	name := incoming.Name
	if incoming.Kind != cached.Kind {
		return name + ".type"
	}

	var base string
	switch {
	case incoming.Name != cached.Name:
		base = name + ".name"
	case incoming.Description != cached.Description:
		base = name + ".description"
	case incoming.Required != cached.Required:
		base = name + ".required"
	}

	switch incoming.Kind {
	case schema.SubCommand, schema.SubCommandGroup:
		if len(incoming.Options) != len(cached.Options) {
			return name + ".options.count"
		}
		if why := explainPairs(name+".options", incoming.Options, cached.Options); why != "" {
			return why
		}
		return base
	case schema.Number, schema.Integer:
		if base != "" {
			return base
		}
		if !schema.Equal(incoming.MinValue, cached.MinValue) {
			return name + ".min_value"
		}
		if !schema.Equal(incoming.MaxValue, cached.MaxValue) {
			return name + ".max_value"
		}
		return ""
	case schema.String:
		if base != "" {
			return base
		}
		if !schema.Equal(incoming.MinLength, cached.MinLength) {
			return name + ".min_length"
		}
		if !schema.Equal(incoming.MaxLength, cached.MaxLength) {
			return name + ".max_length"
		}
		return ""
	case schema.Channel:
		if base != "" {
			return base
		}
		// Only the count is compared; the same number of different types is not detected.
		if len(incoming.ChannelTypes) != len(cached.ChannelTypes) {
			return name + ".channel_types"
		}
		return ""
	default:
		return base
	}
}
