package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/lilybot/pkg/cmd"
)

const EmbedColor = 0xb01e66

// Responder is the part of *discordgo.Session used to answer interactions.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Context is what the Discord adapter hands to commands through Invocation.Data.
type Context struct {
	Responder   Responder
	Interaction *discordgo.Interaction
}

var errNoContext = errors.New("invocation carries no discord context")

// FromInvocation extracts the Discord context of an invocation.
func FromInvocation(inv *cmd.Invocation) (*Context, error) {
	c, ok := inv.Data.(*Context)
	if !ok || c == nil || c.Interaction == nil {
		return nil, errNoContext
	}
	return c, nil
}

// GuildID returns the guild the interaction came from, "" in DMs.
func (c *Context) GuildID() string { return c.Interaction.GuildID }

// UserID returns the invoking user, in a guild or in DMs.
func (c *Context) UserID() string {
	if c.Interaction.Member != nil && c.Interaction.Member.User != nil {
		return c.Interaction.Member.User.ID
	}
	if c.Interaction.User != nil {
		return c.Interaction.User.ID
	}
	return ""
}

// Respond sends a public message response.
func (c *Context) Respond(content string) error {
	return c.respond(discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{Content: content})
}

// RespondEphemeral sends a message only the invoking user sees.
func (c *Context) RespondEphemeral(content string) error {
	return c.respond(discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// RespondEmbed sends a public embed with optional message content.
func (c *Context) RespondEmbed(content string, embed *discordgo.MessageEmbed) error {
	return c.respond(discordgo.InteractionResponseChannelMessageWithSource, &discordgo.InteractionResponseData{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{embed},
	})
}

// Defer acknowledges the interaction; the answer follows via Edit*.
func (c *Context) Defer() error {
	return c.respond(discordgo.InteractionResponseDeferredChannelMessageWithSource, nil)
}

// EditContent replaces the deferred response with text.
func (c *Context) EditContent(content string) error {
	_, err := c.Responder.InteractionResponseEdit(c.Interaction, &discordgo.WebhookEdit{Content: &content})
	return err
}

// EditEmbed replaces the deferred response with an embed and, optionally,
// message components.
func (c *Context) EditEmbed(embed *discordgo.MessageEmbed, components ...discordgo.MessageComponent) error {
	embeds := []*discordgo.MessageEmbed{embed}
	edit := &discordgo.WebhookEdit{Embeds: &embeds}
	if len(components) > 0 {
		edit.Components = &components
	}
	_, err := c.Responder.InteractionResponseEdit(c.Interaction, edit)
	return err
}

// Update answers a component interaction by replacing the message the
// component is attached to. Components not passed are removed.
func (c *Context) Update(embed *discordgo.MessageEmbed, components ...discordgo.MessageComponent) error {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	return c.respond(discordgo.InteractionResponseUpdateMessage, &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
}

// Suggest answers an autocomplete interaction.
func (c *Context) Suggest(choices []*discordgo.ApplicationCommandOptionChoice) error {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}
	return c.respond(discordgo.InteractionApplicationCommandAutocompleteResult, &discordgo.InteractionResponseData{Choices: choices})
}

func (c *Context) respond(kind discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) error {
	if err := c.Responder.InteractionRespond(c.Interaction, &discordgo.InteractionResponse{Type: kind, Data: data}); err != nil {
		return fmt.Errorf("respond to interaction: %w", err)
	}
	return nil
}

// Invocation builds a command invocation from an application command or
// autocomplete interaction. Leaf option values are flattened by name.
func Invocation(r Responder, i *discordgo.Interaction) *cmd.Invocation {
	data := i.ApplicationCommandData()
	inv := &cmd.Invocation{
		Name:    data.Name,
		Options: make(map[string]any),
		Data:    &Context{Responder: r, Interaction: i},
	}
	flattenOptions(inv, data.Options)
	return inv
}

// ComponentInvocation builds an invocation from a message component
// interaction. Name is the component's custom id.
func ComponentInvocation(r Responder, i *discordgo.Interaction) *cmd.Invocation {
	data := i.MessageComponentData()
	return &cmd.Invocation{
		Name:    data.CustomID,
		Options: make(map[string]any),
		Values:  data.Values,
		Data:    &Context{Responder: r, Interaction: i},
	}
}

func flattenOptions(inv *cmd.Invocation, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	for _, o := range opts {
		if len(o.Options) > 0 {
			flattenOptions(inv, o.Options)
			continue
		}
		inv.Options[o.Name] = o.Value
		if o.Focused {
			inv.Focused = o.Name
		}
	}
}
