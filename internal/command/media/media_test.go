package media

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/lilybot/internal/anilist"
	"github.com/keshon/lilybot/internal/discord"
	"github.com/keshon/lilybot/pkg/cmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
}

func (r *recorder) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	r.responses = append(r.responses, resp)
	return nil
}

func (r *recorder) InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.edits = append(r.edits, edit)
	return &discordgo.Message{}, nil
}

type fakeClient struct {
	hits  []anilist.Summary
	media *anilist.Media
	err   error
	kind  anilist.MediaType
	id    int
}

func (f *fakeClient) Search(ctx context.Context, search string, kind anilist.MediaType) ([]anilist.Summary, error) {
	f.kind = kind
	return f.hits, f.err
}

func (f *fakeClient) Media(ctx context.Context, id int, kind anilist.MediaType) (*anilist.Media, error) {
	f.kind = kind
	f.id = id
	return f.media, f.err
}

func invocation(r *recorder, opts map[string]any, focused string) *cmd.Invocation {
	return &cmd.Invocation{
		Options: opts,
		Focused: focused,
		Data:    &discord.Context{Responder: r, Interaction: &discordgo.Interaction{GuildID: "g"}},
	}
}

func componentInvocation(r *recorder, user string, values ...string) *cmd.Invocation {
	return &cmd.Invocation{
		Name:   "anime_search_relations",
		Values: values,
		Data: &discord.Context{Responder: r, Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionMessageComponent,
			GuildID: "g",
			Member:  &discordgo.Member{User: &discordgo.User{ID: user}},
		}},
	}
}

func withRelations(m *anilist.Media) *anilist.Media {
	sequel := anilist.RelationEdge{RelationType: "SEQUEL"}
	sequel.Node.ID = 182255
	sequel.Node.Type = anilist.Anime
	sequel.Node.Title.Romaji = "Sousou no Frieren 2nd Season"
	source := anilist.RelationEdge{RelationType: "SIDE_STORY"}
	source.Node.ID = 118586
	source.Node.Type = anilist.Manga
	source.Node.Title.Romaji = strings.Repeat("Frieren ", 12)
	m.Relations.Edges = append(m.Relations.Edges, sequel, source)
	return m
}

func relationsMenu(t *testing.T, components []discordgo.MessageComponent) discordgo.SelectMenu {
	t.Helper()
	require.Len(t, components, 1)
	row, ok := components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 1)
	menu, ok := row.Components[0].(discordgo.SelectMenu)
	require.True(t, ok)
	return menu
}

func TestDefinitions(t *testing.T) {
	anime := NewAnime(nil).Definition()
	require.NoError(t, anime.Validate())
	assert.Equal(t, "anime", anime.Name)
	assert.True(t, anime.Options[0].Autocomplete)
	assert.Equal(t, "manga", NewManga(nil).Definition().Name)
}

func TestAutocomplete(t *testing.T) {
	long := ""
	for len(long) < 120 {
		long += "frieren "
	}
	client := &fakeClient{hits: []anilist.Summary{{ID: 1, Title: "Frieren"}, {ID: 2, Title: long}}}
	r := &recorder{}

	require.NoError(t, NewManga(client).Autocomplete(context.Background(), invocation(r, map[string]any{"query": "fri"}, "query")))
	assert.Equal(t, anilist.Manga, client.kind)

	choices := r.responses[0].Data.Choices
	require.Len(t, choices, 2)
	assert.Equal(t, 1, choices[0].Value)
	assert.Len(t, []rune(choices[1].Name), 100)
}

func TestAutocompleteFailure(t *testing.T) {
	r := &recorder{}
	client := &fakeClient{err: errors.New("down")}

	require.NoError(t, NewAnime(client).Autocomplete(context.Background(), invocation(r, map[string]any{"query": "x"}, "query")))
	assert.Equal(t, "Nothing Found", r.responses[0].Data.Choices[0].Name)
}

func TestRun(t *testing.T) {
	m := &anilist.Media{Type: anilist.Anime, Status: "NOT_YET_RELEASED", Genres: []string{"Fantasy"}, Episodes: 28}
	m.Title.Romaji = "Sousou no Frieren"
	m.Description = "An <i>elf</i> mage.<br>"
	m.CoverImage.Color = "#e4a15d"
	r := &recorder{}

	require.NoError(t, NewAnime(&fakeClient{media: m}).Run(context.Background(), invocation(r, map[string]any{"query": 154587.0}, "")))

	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, r.responses[0].Type)
	embed := (*r.edits[0].Embeds)[0]
	assert.Equal(t, "Sousou no Frieren", embed.Title)
	assert.Equal(t, "An elf mage.", embed.Description)
	assert.Equal(t, 0xe4a15d, embed.Color)
	assert.Equal(t, "`NOT YET RELEASED`", embed.Fields[0].Value)
	assert.Equal(t, "Episodes", embed.Fields[5].Name)
	assert.Equal(t, "`28`", embed.Fields[5].Value)
	assert.Equal(t, "`Not Yet Known`", embed.Fields[6].Value)
	assert.Nil(t, r.edits[0].Components, "no relations, no menu")
}

func TestRunAttachesRelations(t *testing.T) {
	m := withRelations(&anilist.Media{Type: anilist.Anime})
	r := &recorder{}
	inv := invocation(r, map[string]any{"query": 154587.0}, "")
	inv.Data.(*discord.Context).Interaction.Member = &discordgo.Member{User: &discordgo.User{ID: "u1"}}

	require.NoError(t, NewAnime(&fakeClient{media: m}).Run(context.Background(), inv))

	require.NotNil(t, r.edits[0].Components)
	menu := relationsMenu(t, *r.edits[0].Components)
	assert.Equal(t, "anime_search_relations", menu.CustomID)
	assert.Equal(t, "View Relations", menu.Placeholder)
	require.Len(t, menu.Options, 2)
	assert.Equal(t, "SEQUEL | Sousou no Frieren 2nd Season (ANIME)", menu.Options[0].Label)
	assert.Equal(t, "182255|ANIME|u1", menu.Options[0].Value)
	assert.True(t, strings.HasPrefix(menu.Options[1].Label, "SIDE STORY | Frieren"))
	assert.True(t, strings.HasSuffix(menu.Options[1].Label, "... (MANGA)"))
	assert.Equal(t, "118586|MANGA|u1", menu.Options[1].Value)

	assert.Equal(t, []string{"manga_search_relations"}, NewManga(nil).ComponentIDs())
}

func TestRelationsMenuIsCapped(t *testing.T) {
	m := &anilist.Media{}
	for i := 0; i < 30; i++ {
		e := anilist.RelationEdge{RelationType: "OTHER"}
		e.Node.ID = i + 1
		e.Node.Type = anilist.Manga
		m.Relations.Edges = append(m.Relations.Edges, e)
	}
	menu := relationsMenu(t, NewManga(nil).relations(m, "u"))
	assert.Len(t, menu.Options, 25)
	assert.Equal(t, "manga_search_relations", menu.CustomID)
}

func TestHandleComponent(t *testing.T) {
	m := withRelations(&anilist.Media{Type: anilist.Manga})
	m.Title.Romaji = "Sousou no Frieren"
	client := &fakeClient{media: m}
	r := &recorder{}

	require.NoError(t, NewAnime(client).HandleComponent(context.Background(), componentInvocation(r, "u1", "118586|MANGA|u1")))

	assert.Equal(t, 118586, client.id)
	assert.Equal(t, anilist.Manga, client.kind)
	require.Len(t, r.responses, 1)
	resp := r.responses[0]
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, resp.Type)
	assert.Equal(t, "Sousou no Frieren", resp.Data.Embeds[0].Title)
	menu := relationsMenu(t, resp.Data.Components)
	assert.Equal(t, "182255|ANIME|u1", menu.Options[0].Value)
}

func TestHandleComponentOtherUser(t *testing.T) {
	client := &fakeClient{media: &anilist.Media{}}
	r := &recorder{}

	require.NoError(t, NewAnime(client).HandleComponent(context.Background(), componentInvocation(r, "u2", "118586|MANGA|u1")))

	assert.Zero(t, client.id, "media must not be fetched for another user")
	require.Len(t, r.responses, 1)
	assert.Equal(t, "You cannot do that", r.responses[0].Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, r.responses[0].Data.Flags)
}

func TestHandleComponentErrors(t *testing.T) {
	r := &recorder{}
	err := NewAnime(&fakeClient{err: errors.New("down")}).HandleComponent(context.Background(), componentInvocation(r, "u1", "5|ANIME|u1"))
	assert.Error(t, err)
	assert.Equal(t, "AniList did not answer, try again later.", r.responses[0].Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, r.responses[0].Data.Flags)

	r = &recorder{}
	require.NoError(t, NewAnime(&fakeClient{err: anilist.ErrNotFound}).HandleComponent(context.Background(), componentInvocation(r, "u1", "5|ANIME|u1")))
	assert.Equal(t, "Nothing found.", r.responses[0].Data.Content)

	for _, bad := range []string{"5|ANIME", "x|ANIME|u1", "5|NOVEL|u1"} {
		r = &recorder{}
		assert.Error(t, NewAnime(&fakeClient{}).HandleComponent(context.Background(), componentInvocation(r, "u1", bad)), bad)
		assert.Equal(t, discordgo.MessageFlagsEphemeral, r.responses[0].Data.Flags)
	}
}

func TestRunBadInput(t *testing.T) {
	r := &recorder{}
	require.NoError(t, NewAnime(&fakeClient{}).Run(context.Background(), invocation(r, map[string]any{"query": "oops"}, "")))
	assert.Equal(t, "Something went terribly wrong, try again later.", *r.edits[0].Content)

	r = &recorder{}
	require.NoError(t, NewAnime(&fakeClient{err: anilist.ErrNotFound}).Run(context.Background(), invocation(r, map[string]any{"query": 5.0}, "")))
	assert.Equal(t, "Nothing found.", *r.edits[0].Content)
}

func TestEmbedManga(t *testing.T) {
	m := &anilist.Media{Type: anilist.Manga, Volumes: 107}
	edge := anilist.StaffEdge{Role: "Original Creator"}
	edge.Node.Name.Full = "Eiichiro Oda"
	m.Staff.Edges = append(m.Staff.Edges, edge)

	embed := Embed(m)
	assert.Equal(t, "Author", embed.Fields[0].Name)
	assert.Equal(t, "`Eiichiro Oda`", embed.Fields[0].Value)
	assert.Equal(t, "(No description)", embed.Description)
	assert.Equal(t, discord.EmbedColor, embed.Color)
	assert.Equal(t, "Volumes", embed.Fields[6].Name)
}

func TestEmbedAuthorNeedsCreatorRole(t *testing.T) {
	m := &anilist.Media{Type: anilist.Manga}
	for _, role := range []string{"Story & Art", "Story"} {
		edge := anilist.StaffEdge{Role: role}
		edge.Node.Name.Full = "Someone"
		m.Staff.Edges = append(m.Staff.Edges, edge)
	}

	embed := Embed(m)
	assert.Equal(t, "Status", embed.Fields[0].Name)
	for _, f := range embed.Fields {
		assert.NotEqual(t, "Author", f.Name)
	}
}
