package seed_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itpulse/internal/seed"
	"itpulse/pkg/models"
)

func TestLoadBundled(t *testing.T) {
	articles, err := seed.Load()
	require.NoError(t, err)
	require.Len(t, articles, 3)

	first := articles[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "Hardware", first.Category)
	assert.Equal(t, 412, first.ViewCount)
	assert.Equal(t, "a1", first.Author.ID)
	assert.Equal(t, 82200, first.Author.SubscriberCount)
	assert.Len(t, first.TableOfContents, 3)
	require.Len(t, first.Comments, 1)
	assert.Equal(t, "TechGuru", first.Comments[0].AuthorName)
	assert.True(t, strings.HasPrefix(first.Body, "Ever tried"))

	assert.Equal(t, "AI", articles[1].Category)
	assert.True(t, articles[1].Author.IsSubscribed)
	assert.Empty(t, articles[1].Comments)
	assert.NotNil(t, articles[1].Comments)

	assert.Equal(t, "Dev", articles[2].Category)
	for _, a := range articles {
		assert.False(t, a.IsUserAuthored)
	}
}

func TestDecodeDefaults(t *testing.T) {
	doc := `
[[articles]]
id = "post-a"
title = "Untitled"
body = "short"
category = "Cloud"

[[articles]]
id = "7"
seq = 42
title = "Explicit"
category = "Security"
`
	articles, err := seed.Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, int64(0), articles[0].Seq)
	assert.Equal(t, "1 min", articles[0].ReadTimeLabel)
	assert.Equal(t, []string{}, articles[0].Tags)
	assert.Equal(t, []string{}, articles[0].TableOfContents)
	assert.Equal(t, int64(42), articles[1].Seq)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", `[[articles]`},
		{"missing title", "[[articles]]\nid = \"1\"\ncategory = \"AI\"\n"},
		{"category all", "[[articles]]\nid = \"1\"\ntitle = \"t\"\ncategory = \"All\"\n"},
		{"unknown category", "[[articles]]\nid = \"1\"\ntitle = \"t\"\ncategory = \"Gaming\"\n"},
		{"duplicate id", "[[articles]]\nid = \"1\"\ntitle = \"t\"\ncategory = \"AI\"\n[[articles]]\nid = \"1\"\ntitle = \"u\"\ncategory = \"AI\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := seed.Decode(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestEncodeDecodeKeepsArticles(t *testing.T) {
	articles, err := seed.Load()
	require.NoError(t, err)
	articles = append(articles, models.Article{
		ID: "abc", Seq: 99, Title: "Imported", Category: "Cloud",
		ReadTimeLabel: "2 min", Tags: []string{}, TableOfContents: []string{}, Comments: []models.Comment{},
	})

	var buf bytes.Buffer
	require.NoError(t, seed.Encode(&buf, articles))

	path := filepath.Join(t.TempDir(), "catalogue.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	back, err := seed.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, articles, back)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := seed.LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
