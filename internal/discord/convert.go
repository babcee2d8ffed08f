package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/keshon/lilybot/internal/schema"
)

// ToApplicationCommand converts a command definition to the payload Discord
// accepts on create.
func ToApplicationCommand(c *schema.Command) *discordgo.ApplicationCommand {
	ac := &discordgo.ApplicationCommand{
		Name:                     c.Name,
		Description:              c.Description,
		Type:                     discordgo.ApplicationCommandType(c.Type),
		NSFW:                     c.NSFW,
		DMPermission:             c.DMPermission,
		DefaultMemberPermissions: c.DefaultMemberPermissions,
	}
	if ac.Type == 0 {
		ac.Type = discordgo.ChatApplicationCommand
	}
	for _, o := range c.Options {
		ac.Options = append(ac.Options, toOption(o))
	}
	return ac
}

func toOption(o *schema.Option) *discordgo.ApplicationCommandOption {
	ao := &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionType(o.Kind),
		Name:         o.Name,
		Description:  o.Description,
		Required:     o.Required,
		Autocomplete: o.Autocomplete,
		MinValue:     o.MinValue,
		MinLength:    o.MinLength,
	}
	if o.MaxValue != nil {
		ao.MaxValue = *o.MaxValue
	}
	if o.MaxLength != nil {
		ao.MaxLength = *o.MaxLength
	}
	for _, ct := range o.ChannelTypes {
		ao.ChannelTypes = append(ao.ChannelTypes, discordgo.ChannelType(ct))
	}
	for _, child := range o.Options {
		ao.Options = append(ao.Options, toOption(child))
	}
	return ao
}

// FromApplicationCommand converts a command fetched from Discord back into a
// definition. Discord does not distinguish an unset max from zero, so a zero
// MaxValue or MaxLength maps to unset. Server defaults are folded back to
// unset with Normalize.
func FromApplicationCommand(ac *discordgo.ApplicationCommand) *schema.Command {
	return Normalize(&schema.Command{
		Name:                     ac.Name,
		Description:              ac.Description,
		Type:                     schema.CommandType(ac.Type),
		NSFW:                     ac.NSFW,
		DMPermission:             ac.DMPermission,
		DefaultMemberPermissions: ac.DefaultMemberPermissions,
		Options:                  fromOptions(ac.Options),
	})
}

// Normalize returns a copy of c with the values Discord fills in for unset
// fields collapsed to unset: nsfw false, dm_permission true and type 0.
// Both sides of a local/remote comparison go through it.
func Normalize(c *schema.Command) *schema.Command {
	if c == nil {
		return nil
	}
	n := c.Clone()
	if n.Type == 0 {
		n.Type = schema.ChatInputCommand
	}
	if n.NSFW != nil && !*n.NSFW {
		n.NSFW = nil
	}
	if n.DMPermission != nil && *n.DMPermission {
		n.DMPermission = nil
	}
	return n
}

func fromOptions(aos []*discordgo.ApplicationCommandOption) []*schema.Option {
	var out []*schema.Option
	for _, ao := range aos {
		out = append(out, fromOption(ao))
	}
	return out
}

func fromOption(ao *discordgo.ApplicationCommandOption) *schema.Option {
	o := &schema.Option{
		Kind:         schema.OptionKind(ao.Type),
		Name:         ao.Name,
		Description:  ao.Description,
		Required:     ao.Required,
		Autocomplete: ao.Autocomplete,
		MinValue:     ao.MinValue,
		MinLength:    ao.MinLength,
	}
	if ao.MaxValue != 0 {
		o.MaxValue = schema.Ptr(ao.MaxValue)
	}
	if ao.MaxLength != 0 {
		o.MaxLength = schema.Ptr(ao.MaxLength)
	}
	for _, ct := range ao.ChannelTypes {
		o.ChannelTypes = append(o.ChannelTypes, int(ct))
	}
	o.Options = fromOptions(ao.Options)
	return o
}
