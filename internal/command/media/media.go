// Package media implements /anime and /manga on top of AniList.
package media

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/lilybot/internal/anilist"
	"github.com/keshon/lilybot/internal/discord"
	"github.com/keshon/lilybot/internal/schema"
	"github.com/keshon/lilybot/pkg/cmd"
	"github.com/rs/zerolog/log"
)

// Client is the AniList surface the commands use.
type Client interface {
	Search(ctx context.Context, search string, kind anilist.MediaType) ([]anilist.Summary, error)
	Media(ctx context.Context, id int, kind anilist.MediaType) (*anilist.Media, error)
}

// Command searches one media type.
type Command struct {
	client Client
	kind   anilist.MediaType
	name   string
	noun   string
}

func NewAnime(c Client) *Command {
	return &Command{client: c, kind: anilist.Anime, name: "anime", noun: "an anime"}
}

func NewManga(c Client) *Command {
	return &Command{client: c, kind: anilist.Manga, name: "manga", noun: "a manga"}
}

func (c *Command) Name() string { return c.name }

func (c *Command) Definition() *schema.Command {
	return &schema.Command{
		Name:        c.name,
		Description: "Search for " + c.noun,
		Type:        schema.ChatInputCommand,
		Options: []*schema.Option{{
			Kind:         schema.Number,
			Name:         "query",
			Description:  "The " + c.name + " to search",
			Required:     true,
			Autocomplete: true,
		}},
	}
}

// Autocomplete suggests titles while the user types; the value sent back is
// the AniList id. Typed text arrives as a string even for number options.
func (c *Command) Autocomplete(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := discord.FromInvocation(inv)
	if err != nil {
		return err
	}
	text, _ := inv.Options[inv.Focused].(string)
	if strings.TrimSpace(text) == "" {
		return dc.Suggest(nil)
	}

	hits, err := c.client.Search(ctx, text, c.kind)
	if err != nil {
		log.Warn().Err(err).Str("command", c.name).Msg("AniList search failed")
		return dc.Suggest([]*discordgo.ApplicationCommandOptionChoice{{Name: "Nothing Found", Value: 0}})
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(hits))
	for _, h := range hits {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: clip(h.Title, 100), Value: h.ID})
	}
	return dc.Suggest(choices)
}

func (c *Command) Run(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := discord.FromInvocation(inv)
	if err != nil {
		return err
	}
	if err := dc.Defer(); err != nil {
		return err
	}

	id, ok := inv.Number("query")
	if !ok || id <= 0 {
		return dc.EditContent("Something went terribly wrong, try again later.")
	}

	m, err := c.client.Media(ctx, int(id), c.kind)
	switch {
	case errors.Is(err, anilist.ErrNotFound):
		return dc.EditContent("Nothing found.")
	case err != nil:
		_ = dc.EditContent("AniList did not answer, try again later.")
		return err
	}
	return dc.EditEmbed(Embed(m), c.relations(m, dc.UserID())...)
}

// ComponentIDs names the relations menu attached to every answer.
func (c *Command) ComponentIDs() []string {
	return []string{c.name + "_search_relations"}
}

// HandleComponent swaps the answer to the media picked in the relations menu.
// Only the user who ran the command may use its menu.
func (c *Command) HandleComponent(ctx context.Context, inv *cmd.Invocation) error {
	dc, err := discord.FromInvocation(inv)
	if err != nil {
		return err
	}
	if len(inv.Values) == 0 {
		return dc.RespondEphemeral("Nothing selected.")
	}
	id, kind, owner, err := parseRelation(inv.Values[0])
	if err != nil {
		_ = dc.RespondEphemeral("Something went terribly wrong, try again later.")
		return err
	}
	if owner != dc.UserID() {
		return dc.RespondEphemeral("You cannot do that")
	}

	m, err := c.client.Media(ctx, id, kind)
	switch {
	case errors.Is(err, anilist.ErrNotFound):
		return dc.RespondEphemeral("Nothing found.")
	case err != nil:
		_ = dc.RespondEphemeral("AniList did not answer, try again later.")
		return err
	}
	return dc.Update(Embed(m), c.relations(m, owner)...)
}

// maxMenuOptions is Discord's limit on select menu options.
const maxMenuOptions = 25

// relations renders the "View Relations" menu. Each option value is
// "id|TYPE|userID" so the handler knows what to fetch and for whom.
func (c *Command) relations(m *anilist.Media, userID string) []discordgo.MessageComponent {
	edges := m.Relations.Edges
	if len(edges) == 0 {
		return nil
	}
	if len(edges) > maxMenuOptions {
		edges = edges[:maxMenuOptions]
	}
	options := make([]discordgo.SelectMenuOption, 0, len(edges))
	for _, e := range edges {
		options = append(options, discordgo.SelectMenuOption{
			Label: fmt.Sprintf("%s | %s (%s)", strings.ReplaceAll(e.RelationType, "_", " "), clip(e.Node.Title.Romaji, 70), e.Node.Type),
			Value: fmt.Sprintf("%d|%s|%s", e.Node.ID, e.Node.Type, userID),
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    c.ComponentIDs()[0],
			Placeholder: "View Relations",
			Options:     options,
		},
	}}}
}

func parseRelation(value string) (int, anilist.MediaType, string, error) {
	parts := strings.Split(value, "|")
	if len(parts) != 3 {
		return 0, "", "", fmt.Errorf("malformed relation value %q", value)
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", "", fmt.Errorf("malformed relation id %q: %w", parts[0], err)
	}
	kind := anilist.MediaType(parts[1])
	if kind != anilist.Anime && kind != anilist.Manga {
		return 0, "", "", fmt.Errorf("unknown media type %q", parts[1])
	}
	return id, kind, parts[2], nil
}

var tagRe = regexp.MustCompile(`</?[^>]+(>|$)`)

// Embed renders media details.
func Embed(m *anilist.Media) *discordgo.MessageEmbed {
	desc := strings.TrimSpace(tagRe.ReplaceAllString(m.Description, ""))
	if desc == "" {
		desc = "(No description)"
	}

	embed := &discordgo.MessageEmbed{
		Title:       m.Title.Romaji,
		URL:         m.SiteURL,
		Description: clip(desc, 4096),
		Color:       color(m.CoverImage.Color),
	}
	if m.CoverImage.ExtraLarge != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: m.CoverImage.ExtraLarge}
	}

	if creator := creator(m); creator != "" {
		embed.Fields = append(embed.Fields, field("Author", creator, false))
	}
	genres := strings.Join(m.Genres, ", ")
	if genres == "" {
		genres = "None"
	}
	end := m.EndDate.String()
	if end == "" {
		end = "??"
	}
	embed.Fields = append(embed.Fields,
		field("Status", orDefault(strings.ReplaceAll(m.Status, "_", " "), "Unknown"), false),
		field("Type", orDefault(m.Format, "Unknown"), false),
		field("Genres", genres, false),
		field("Start Date", orDefault(m.StartDate.String(), "??"), true),
		field("End Date", end, true),
	)
	if m.Type == anilist.Anime {
		embed.Fields = append(embed.Fields,
			field("Episodes", count(m.Episodes), false),
			field("Duration", count(m.Duration), false))
	} else {
		embed.Fields = append(embed.Fields,
			field("Volumes", count(m.Volumes), false),
			field("Chapters", count(m.Chapters), false))
	}
	return embed
}

func creator(m *anilist.Media) string {
	for _, e := range m.Staff.Edges {
		if strings.Contains(e.Role, "Creator") {
			return e.Node.Name.Full
		}
	}
	return ""
}

func field(name, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: "`" + value + "`", Inline: inline}
}

func count(n int) string {
	if n == 0 {
		return "Not Yet Known"
	}
	return strconv.Itoa(n)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func color(hex string) int {
	n, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return discord.EmbedColor
	}
	return int(n)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:n-3]))
}
