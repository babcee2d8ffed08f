package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/keshon/lilybot/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	p, ok := Match("look at https://github.com/oven-sh/bun/blob/main/src/bun.zig#L10-L12 please")
	require.True(t, ok)
	assert.Equal(t, Permalink{Repository: "oven-sh/bun", Path: "main/src/bun.zig", First: 10, Last: 12}, p)
	assert.Equal(t, "bun.zig", p.FileName())
	assert.Equal(t, "rs", p.Language())
	assert.Equal(t, "10 - 12", p.Lines())
	assert.Equal(t, "https://github.com/oven-sh/bun/blob/main/src/bun.zig#L10-L12", p.URL())

	p, ok = Match("https://github.com/a/b.js/blob/v1/index.ts#L7")
	require.True(t, ok)
	assert.Equal(t, "a/b.js", p.Repository)
	assert.Equal(t, 7, p.Last)
	assert.Equal(t, "ts", p.Language())
	assert.Equal(t, "7", p.Lines())
	assert.Equal(t, "https://github.com/a/b.js/blob/v1/index.ts#L7", p.URL())

	p, ok = Match("https://github.com/a/b/blob/main/x.go#L9-L3")
	require.True(t, ok)
	assert.Equal(t, 9, p.Last, "a backwards range collapses to one line")

	_, ok = Match("https://github.com/a/b/blob/main/x.go")
	assert.False(t, ok)
	_, ok = Match("https://gitlab.com/a/b/blob/main/x.go#L1")
	assert.False(t, ok)
}

func TestExtract(t *testing.T) {
	content := "package x\n\n    func a() {\n        return\n    }\n  }\n"

	got, ok := Extract(content, 3, 5)
	require.True(t, ok)
	assert.Equal(t, "func a() {\n    return\n}\n", got)

	got, ok = Extract(content, 5, 6)
	require.True(t, ok)
	assert.Equal(t, "}\n}\n", got, "lines with less indentation lose what they have")

	got, ok = Extract(content, 6, 100)
	require.True(t, ok)
	assert.Equal(t, "}\n\n", got)

	_, ok = Extract(content, 50, 51)
	assert.False(t, ok)
}

func TestTruncateAndCodeBlock(t *testing.T) {
	text := strings.Repeat("abcdefghi\n", 10)

	same, more := Truncate(text, 1000)
	assert.Equal(t, text, same)
	assert.Zero(t, more)
	assert.Equal(t, "```go\n"+text+"```", CodeBlock("go", same, more))

	cut, more := Truncate(text, 25)
	assert.Equal(t, "abcdefghi\nabcdefghi\n", cut)
	assert.Equal(t, 80, more)
	assert.Equal(t, "```go\n"+cut+"\n(more 80)\n```", CodeBlock("go", cut, more))

	assert.Equal(t, 4096-10-16, DescriptionLimit("go"))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a/b/main/x.go" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("package x\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	body, err := c.Fetch(context.Background(), Permalink{Repository: "a/b", Path: "main/x.go", First: 1, Last: 1})
	require.NoError(t, err)
	assert.Equal(t, "package x\n", body)

	_, err = c.Fetch(context.Background(), Permalink{Repository: "a/b", Path: "main/y.go", First: 1, Last: 1})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, ratelimit.StatusOf(err))
}
