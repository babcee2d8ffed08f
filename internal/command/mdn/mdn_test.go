package mdn

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/lilybot/internal/discord"
	"github.com/keshon/lilybot/internal/search"
	"github.com/keshon/lilybot/pkg/cmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	responses []*discordgo.InteractionResponse
}

func (r *recorder) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	r.responses = append(r.responses, resp)
	return nil
}

func (r *recorder) InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{}, nil
}

type fakeSearch struct {
	results []search.Result
	queries []string
}

func (f *fakeSearch) Search(ctx context.Context, query string) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, nil
}

func (f *fakeSearch) Lookup(id string) (search.Result, bool) {
	for _, r := range f.results {
		if r.ID == id {
			return r, true
		}
	}
	return search.Result{}, false
}

func invocation(r *recorder, opts map[string]any, focused string) *cmd.Invocation {
	return &cmd.Invocation{
		Options: opts,
		Focused: focused,
		Data:    &discord.Context{Responder: r, Interaction: &discordgo.Interaction{GuildID: "g"}},
	}
}

var pages = []search.Result{
	{ID: "a1", Title: "Array - JavaScript | MDN", Description: "Arrays", URL: "https://developer.mozilla.org/array", Image: "https://img"},
	{ID: "m1", Title: "Map - JavaScript | MDN", Description: "Maps", URL: "https://developer.mozilla.org/map"},
}

func TestDefinition(t *testing.T) {
	def := New(nil).Definition()
	require.NoError(t, def.Validate())
	assert.Equal(t, "mdn", def.Name)
	assert.Len(t, def.Options, 2)
}

func TestAutocomplete(t *testing.T) {
	s := &fakeSearch{results: pages}
	r := &recorder{}

	require.NoError(t, New(s).Autocomplete(context.Background(), invocation(r, map[string]any{"query": "array"}, "query")))
	choices := r.responses[0].Data.Choices
	require.Len(t, choices, 2)
	assert.Equal(t, "a1", choices[0].Value)
	assert.Equal(t, "Array - JavaScript | MDN", choices[0].Name)

	r = &recorder{}
	require.NoError(t, New(s).Autocomplete(context.Background(), invocation(r, map[string]any{"query": ""}, "query")))
	assert.Empty(t, r.responses[0].Data.Choices)
	assert.Equal(t, []string{"array"}, s.queries, "empty input is not searched")
}

func TestRunWithMention(t *testing.T) {
	r := &recorder{}
	err := New(&fakeSearch{results: pages}).Run(context.Background(), invocation(r, map[string]any{"query": "a1", "user": "42"}, ""))
	require.NoError(t, err)

	data := r.responses[0].Data
	assert.Equal(t, "<@42> this might help:", data.Content)
	assert.Equal(t, "Array - JavaScript | MDN", data.Embeds[0].Title)
	assert.Equal(t, "https://img", data.Embeds[0].Image.URL)
}

func TestRunFreeText(t *testing.T) {
	s := &fakeSearch{results: pages}
	r := &recorder{}
	require.NoError(t, New(s).Run(context.Background(), invocation(r, map[string]any{"query": "array methods"}, "")))

	assert.Equal(t, []string{"array methods"}, s.queries)
	assert.Equal(t, "", r.responses[0].Data.Content)
	assert.Equal(t, "https://developer.mozilla.org/array", r.responses[0].Data.Embeds[0].URL)

	r = &recorder{}
	require.NoError(t, New(&fakeSearch{}).Run(context.Background(), invocation(r, map[string]any{"query": "zzz"}, "")))
	assert.Equal(t, discordgo.MessageFlagsEphemeral, r.responses[0].Data.Flags)
}
