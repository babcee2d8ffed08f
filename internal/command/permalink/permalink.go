// Package permalink expands GitHub line permalinks posted in chat into a code
// snippet embed with a button back to the source.
package permalink

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/lilybot/internal/github"
	"github.com/keshon/lilybot/pkg/ratelimit"
	"github.com/rs/zerolog/log"
)

const embedColor = 0xad9ee7

// Sender posts messages; *discordgo.Session satisfies it.
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Fetcher downloads the file a permalink points into.
type Fetcher interface {
	Fetch(ctx context.Context, p github.Permalink) (string, error)
}

type Listener struct {
	sender  Sender
	fetcher Fetcher
}

func New(sender Sender, fetcher Fetcher) *Listener {
	return &Listener{sender: sender, fetcher: fetcher}
}

// OnMessage answers the first permalink in the message, if any. Missing
// files are ignored.
func (l *Listener) OnMessage(ctx context.Context, m *discordgo.MessageCreate) error {
	link, ok := github.Match(m.Content)
	if !ok {
		return nil
	}

	content, err := l.fetcher.Fetch(ctx, link)
	if err != nil {
		if ratelimit.StatusOf(err) == http.StatusNotFound {
			log.Debug().Str("path", link.Path).Msg("Permalink target not found")
			return nil
		}
		return err
	}
	snippet, ok := github.Extract(content, link.First, link.Last)
	if !ok {
		return nil
	}

	lang := link.Language()
	text, more := github.Truncate(snippet, github.DescriptionLimit(lang))

	embed := &discordgo.MessageEmbed{
		Color:       embedColor,
		Title:       fmt.Sprintf("__**%s**__ - Line: *%s*", link.FileName(), link.Lines()),
		Description: github.CodeBlock(lang, text, more),
	}
	if m.Author != nil {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: m.Author.Username, IconURL: m.Author.AvatarURL("")}
	}

	_, err = l.sender.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: label(link.Repository), Style: discordgo.LinkButton, URL: link.URL()},
			}},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send snippet: %w", err)
	}
	return nil
}

// label keeps the button text within Discord's 80 character limit.
func label(repo string) string {
	if len(repo) <= 80 {
		return repo
	}
	return repo[:77] + "..."
}
