// Package mdn implements /mdn: search MDN with autocomplete, then post the
// chosen page as an embed.
package mdn

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/lilybot/internal/discord"
	"github.com/keshon/lilybot/internal/schema"
	"github.com/keshon/lilybot/internal/search"
	"github.com/keshon/lilybot/pkg/cmd"
)

// Searcher finds MDN pages and recalls pages it has already returned.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
	Lookup(id string) (search.Result, bool)
}

type Command struct {
	search Searcher
}

func New(s Searcher) *Command { return &Command{search: s} }

func (c *Command) Name() string { return "mdn" }

func (c *Command) Definition() *schema.Command {
	return &schema.Command{
		Name:        c.Name(),
		Description: "Search the MDN documentation",
		Type:        schema.ChatInputCommand,
		Options: []*schema.Option{
			{Kind: schema.String, Name: "query", Description: "Search query to pass to mdn", Required: true, Autocomplete: true},
			{Kind: schema.User, Name: "user", Description: "Ping a user along with the response"},
		},
	}
}

func (c *Command) Autocomplete(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := discord.FromInvocation(inv)
	if err != nil {
		return err
	}
	query := inv.String(inv.Focused)
	if query == "" {
		return dc.Suggest(nil)
	}

	results, err := c.search.Search(ctx, query)
	if err != nil {
		_ = dc.Suggest(nil)
		return err
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(results), 25))
	for _, r := range results[:min(len(results), 25)] {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: clip(r.Title, 100), Value: r.ID})
	}
	return dc.Suggest(choices)
}

func (c *Command) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := discord.FromInvocation(inv)
	if err != nil {
		return err
	}
	query := inv.String("query")
	if query == "" {
		return dc.RespondEphemeral("Something went wrong")
	}

	page, ok := c.search.Lookup(query)
	if !ok {
		// Free text that was never picked from the suggestions.
		results, err := c.search.Search(ctx, query)
		if err != nil || len(results) == 0 {
			_ = dc.RespondEphemeral("Nothing found on MDN for that query.")
			return err
		}
		page = results[0]
	}

	content := ""
	if user := inv.String("user"); user != "" {
		content = fmt.Sprintf("<@%s> this might help:", user)
	}
	embed := &discordgo.MessageEmbed{
		Title:       page.Title,
		Description: page.Description,
		URL:         page.URL,
		Color:       discord.EmbedColor,
	}
	if page.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: page.Image}
	}
	return dc.RespondEmbed(content, embed)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
