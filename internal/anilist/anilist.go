// Package anilist is a small AniList GraphQL client covering media search and
// media details.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/keshon/lilybot/pkg/ratelimit"
	"github.com/tidwall/gjson"
)

// MediaType is ANIME or MANGA.
type MediaType string

const (
	Anime MediaType = "ANIME"
	Manga MediaType = "MANGA"
)

// ErrNotFound is returned when AniList has no media with the requested id.
var ErrNotFound = errors.New("media not found")

const searchQuery = `query ($search: String, $type: MediaType) {
  Page(perPage: 15) {
    media(search: $search, type: $type) { id title { romaji } }
  }
}`

const mediaQuery = `query ($id: Int, $type: MediaType) {
  Media(id: $id, type: $type) {
    id siteUrl type status format description(asHtml: false)
    title { romaji english native }
    genres episodes duration chapters volumes averageScore
    startDate { year month day }
    endDate { year month day }
    coverImage { extraLarge color }
    staff(perPage: 5) { edges { role node { name { full } } } }
    relations { edges { relationType node { id type title { romaji } } } }
  }
}`

// Summary is a search hit.
type Summary struct {
	ID    int
	Title string
}

// Date is a partial AniList date; any part may be zero.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// String formats the date as YYYY-MM-DD, leaving out unknown parts.
func (d Date) String() string {
	switch {
	case d.Year == 0:
		return ""
	case d.Month == 0:
		return strconv.Itoa(d.Year)
	case d.Day == 0:
		return fmt.Sprintf("%d-%02d", d.Year, d.Month)
	}
	return fmt.Sprintf("%d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Media is the detail view of one anime or manga.
type Media struct {
	ID          int       `json:"id"`
	SiteURL     string    `json:"siteUrl"`
	Type        MediaType `json:"type"`
	Status      string    `json:"status"`
	Format      string    `json:"format"`
	Description string    `json:"description"`
	Title       struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Genres       []string `json:"genres"`
	Episodes     int      `json:"episodes"`
	Duration     int      `json:"duration"`
	Chapters     int      `json:"chapters"`
	Volumes      int      `json:"volumes"`
	AverageScore int      `json:"averageScore"`
	StartDate    Date     `json:"startDate"`
	EndDate      Date     `json:"endDate"`
	CoverImage   struct {
		ExtraLarge string `json:"extraLarge"`
		Color      string `json:"color"`
	} `json:"coverImage"`
	Staff struct {
		Edges []StaffEdge `json:"edges"`
	} `json:"staff"`
	Relations struct {
		Edges []RelationEdge `json:"edges"`
	} `json:"relations"`
}

// StaffEdge links a staff member to a media entry.
type StaffEdge struct {
	Role string `json:"role"`
	Node struct {
		Name struct {
			Full string `json:"full"`
		} `json:"name"`
	} `json:"node"`
}

// RelationEdge links a media entry to a related one (sequel, adaptation...).
type RelationEdge struct {
	RelationType string `json:"relationType"`
	Node         struct {
		ID    int       `json:"id"`
		Type  MediaType `json:"type"`
		Title struct {
			Romaji string `json:"romaji"`
		} `json:"title"`
	} `json:"node"`
}

// Options configures a Client.
type Options struct {
	URL       string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// Client talks to the AniList GraphQL endpoint.
type Client struct {
	client *http.Client
	url    string
	media  *expirable.LRU[string, *Media]
}

// New returns a client with a bounded media cache.
func New(opts Options) *Client {
	return &Client{
		client: &http.Client{Timeout: opts.Timeout},
		url:    opts.URL,
		media:  expirable.NewLRU[string, *Media](max(opts.CacheSize, 1), nil, opts.CacheTTL),
	}
}

// Search returns media of the given type whose title matches search.
func (c *Client) Search(ctx context.Context, search string, kind MediaType) ([]Summary, error) {
	body, err := c.query(ctx, searchQuery, map[string]any{"search": search, "type": kind})
	if err != nil {
		return nil, err
	}
	var hits []Summary
	gjson.GetBytes(body, "data.Page.media").ForEach(func(_, m gjson.Result) bool {
		hits = append(hits, Summary{ID: int(m.Get("id").Int()), Title: m.Get("title.romaji").String()})
		return true
	})
	return hits, nil
}

// Media returns the details of one media entry.
func (c *Client) Media(ctx context.Context, id int, kind MediaType) (*Media, error) {
	key := fmt.Sprintf("%s:%d", kind, id)
	if m, ok := c.media.Get(key); ok {
		return m, nil
	}

	body, err := c.query(ctx, mediaQuery, map[string]any{"id": id, "type": kind})
	if err != nil {
		return nil, err
	}
	raw := gjson.GetBytes(body, "data.Media")
	if !raw.Exists() || raw.Type == gjson.Null {
		return nil, ErrNotFound
	}
	m := &Media{}
	if err := json.Unmarshal([]byte(raw.Raw), m); err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	c.media.Add(key, m)
	return m, nil
}

func (c *Client) query(ctx context.Context, query string, vars map[string]any) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anilist request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	msg := gjson.GetBytes(body, "errors.0.message").String()
	if resp.StatusCode == http.StatusNotFound && msg != "" {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ratelimit.StatusError{Code: resp.StatusCode, Err: fmt.Errorf("anilist http %d: %s", resp.StatusCode, msg)}
	}
	if msg != "" {
		return nil, fmt.Errorf("anilist: %s", msg)
	}
	return body, nil
}
