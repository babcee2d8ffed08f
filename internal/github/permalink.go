// Package github recognises GitHub blob permalinks that point at line ranges
// and turns the referenced lines into a short code snippet.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/keshon/lilybot/pkg/ratelimit"
)

var permalinkRe = regexp.MustCompile(`https?://github\.com/([a-zA-Z0-9_-]+/[A-Za-z0-9_.-]+)/blob/(.+?)#L(\d+)[-~]?L?(\d*)`)

// Permalink is a link to a line or a line range in a file at some ref.
type Permalink struct {
	Repository string
	// Path starts with the ref, e.g. "main/src/index.ts".
	Path  string
	First int
	Last  int
}

// Match finds the first permalink in text.
func Match(text string) (Permalink, bool) {
	m := permalinkRe.FindStringSubmatch(text)
	if m == nil {
		return Permalink{}, false
	}
	first, err := strconv.Atoi(m[3])
	if err != nil || first < 1 {
		return Permalink{}, false
	}
	last := first
	if m[4] != "" {
		if n, err := strconv.Atoi(m[4]); err == nil && n >= first {
			last = n
		}
	}
	return Permalink{Repository: m[1], Path: m[2], First: first, Last: last}, true
}

// FileName is the last path element.
func (p Permalink) FileName() string { return path.Base(p.Path) }

// Language is the code block tag for the file. Zig is shown as Rust, which
// highlights it reasonably.
func (p Permalink) Language() string {
	ext := strings.TrimPrefix(path.Ext(p.Path), ".")
	if ext == "zig" {
		return "rs"
	}
	return ext
}

// Lines renders the line part of the link: "12" or "12 - 20".
func (p Permalink) Lines() string {
	if p.First == p.Last {
		return strconv.Itoa(p.First)
	}
	return fmt.Sprintf("%d - %d", p.First, p.Last)
}

// URL is the canonical permalink.
func (p Permalink) URL() string {
	anchor := fmt.Sprintf("L%d", p.First)
	if p.Last != p.First {
		anchor += fmt.Sprintf("-L%d", p.Last)
	}
	return fmt.Sprintf("https://github.com/%s/blob/%s#%s", p.Repository, p.Path, anchor)
}

// Extract returns the linked lines of content with the indentation of the
// first line removed from every line. Each line ends in "\n". ok is false
// when the first line is past the end of the file.
func Extract(content string, first, last int) (string, bool) {
	lines := strings.Split(content, "\n")
	if first < 1 || first > len(lines) {
		return "", false
	}
	last = min(max(last, first), len(lines))

	pad := len(lines[first-1]) - len(strings.TrimLeft(lines[first-1], " "))
	var b strings.Builder
	for _, line := range lines[first-1 : last] {
		n := len(line) - len(strings.TrimLeft(line, " "))
		b.WriteString(line[min(pad, n):])
		b.WriteByte('\n')
	}
	return b.String(), true
}

// Truncate cuts text at the last line break that fits in limit and reports
// how many bytes were dropped.
func Truncate(text string, limit int) (string, int) {
	if len(text) <= limit {
		return text, 0
	}
	cut := strings.LastIndex(text[:limit+1], "\n") + 1
	return text[:cut], len(text) - cut
}

// DescriptionLimit is the embed description budget left for the code itself.
func DescriptionLimit(lang string) int {
	return 4096 - (8 + len(lang)) - 16
}

// CodeBlock wraps a snippet in a fenced block, noting dropped bytes.
func CodeBlock(lang, text string, more int) string {
	if more > 0 {
		return fmt.Sprintf("```%s\n%s\n(more %d)\n```", lang, text, more)
	}
	return fmt.Sprintf("```%s\n%s```", lang, text)
}

// Client downloads raw file content.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient returns a client reading from baseURL, normally
// https://raw.githubusercontent.com.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{client: &http.Client{Timeout: timeout}, baseURL: strings.TrimRight(baseURL, "/")}
}

// Fetch returns the whole file a permalink points into.
func (c *Client) Fetch(ctx context.Context, p Permalink) (string, error) {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, p.Repository, p.Path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", p.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ratelimit.StatusError{Code: resp.StatusCode, Err: fmt.Errorf("fetch %s: http %d", p.Path, resp.StatusCode)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
