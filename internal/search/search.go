// Package search queries Google Programmable Search restricted to MDN and
// remembers the pages it returned so a later lookup by id needs no request.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/keshon/lilybot/pkg/ratelimit"
	"github.com/tidwall/gjson"
)

// Result is one page returned by the search engine.
type Result struct {
	ID          string
	Title       string
	Description string
	URL         string
	Image       string
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Key       string
	CX        string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// Client is a Google Custom Search client.
type Client struct {
	client  *http.Client
	baseURL string
	key     string
	cx      string
	pages   *expirable.LRU[string, Result]
	queries *expirable.LRU[string, []Result]
}

// New returns a client. Caches are bounded by CacheSize entries each.
func New(opts Options) *Client {
	size := max(opts.CacheSize, 1)
	return &Client{
		client:  &http.Client{Timeout: opts.Timeout},
		baseURL: opts.BaseURL,
		key:     opts.Key,
		cx:      opts.CX,
		pages:   expirable.NewLRU[string, Result](size, nil, opts.CacheTTL),
		queries: expirable.NewLRU[string, []Result](size, nil, opts.CacheTTL),
	}
}

// Search returns up to ten results for query. Results without an id are
// dropped since they could never be looked up again.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if cached, ok := c.queries.Get(query); ok {
		return cached, nil
	}

	q := url.Values{}
	q.Set("key", c.key)
	q.Set("cx", c.cx)
	q.Set("q", query)
	q.Set("num", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "error.message").String()
		return nil, &ratelimit.StatusError{Code: resp.StatusCode, Err: fmt.Errorf("search http %d: %s", resp.StatusCode, msg)}
	}

	var results []Result
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		id := item.Get("cacheId").String()
		if id == "" {
			return true
		}
		meta := item.Get("pagemap.metatags.0")
		r := Result{
			ID:          id,
			Title:       firstOf(meta.Get("og:title"), item.Get("title")),
			Description: firstOf(meta.Get("og:description"), item.Get("snippet")),
			URL:         firstOf(meta.Get("og:url"), item.Get("link")),
			Image:       meta.Get("og:image").String(),
		}
		c.pages.Add(id, r)
		results = append(results, r)
		return true
	})

	c.queries.Add(query, results)
	return results, nil
}

// Lookup returns a result previously seen by Search.
func (c *Client) Lookup(id string) (Result, bool) {
	return c.pages.Get(id)
}

func firstOf(values ...gjson.Result) string {
	for _, v := range values {
		if s := v.String(); s != "" {
			return s
		}
	}
	return ""
}
