package importer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"

	"itpulse/internal/composer"
	"itpulse/pkg/models"
	"itpulse/pkg/utils"
)

const (
	summaryLimit   = 280
	maxTags        = 5
	publishedFmt   = "Jan 2, 2006"
	avatarTemplate = "https://picsum.photos/seed/%s/200/200"
	imageTemplate  = "https://picsum.photos/seed/%s/800/400"
)

// RSSSource reads one RSS, Atom or JSON feed.
type RSSSource struct {
	URL string
	// Category is used for items whose own categories name none of ours.
	Category  string
	Client    *http.Client
	Max       int // items to keep from the feed, 0 keeps all
	Sanitizer *utils.Sanitizer
}

func NewRSSSource(url, category string) *RSSSource {
	return &RSSSource{
		URL:       url,
		Category:  category,
		Client:    &http.Client{Timeout: 15 * time.Second},
		Max:       20,
		Sanitizer: utils.NewSanitizer(),
	}
}

func (s *RSSSource) Name() string { return s.URL }

func (s *RSSSource) FetchAll(ctx context.Context) ([]models.Article, error) {
	fp := gofeed.NewParser()
	fp.Client = s.Client
	f, err := fp.ParseURLWithContext(s.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", s.URL, err)
	}

	items := f.Items
	if s.Max > 0 && len(items) > s.Max {
		items = items[:s.Max]
	}

	out := make([]models.Article, 0, len(items))
	for _, item := range items {
		if a, ok := s.toArticle(f, item); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *RSSSource) toArticle(f *gofeed.Feed, item *gofeed.Item) (models.Article, bool) {
	title := s.Sanitizer.PlainText(item.Title)
	if title == "" {
		return models.Article{}, false
	}

	description := s.Sanitizer.PlainText(item.Description)
	body := s.Sanitizer.PlainText(item.Content)
	if body == "" {
		body = description
	}
	if body == "" {
		body = title
	}

	key, _ := lo.Coalesce(item.GUID, item.Link, title)
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()

	var seq int64
	published := ""
	if t, ok := lo.Coalesce(item.PublishedParsed, item.UpdatedParsed); ok {
		seq = t.UnixMilli()
		published = t.Format(publishedFmt)
	}

	return models.Article{
		ID:              id,
		Seq:             seq,
		Title:           title,
		Summary:         truncate(lo.Ternary(description != "", description, body), summaryLimit),
		Body:            body,
		Category:        s.category(item.Categories),
		Author:          feedAuthor(f, item),
		PublishedLabel:  published,
		ReadTimeLabel:   composer.ReadTimeLabel(body),
		HeroImageRef:    heroImage(item, id),
		Tags:            itemTags(item.Categories),
		TableOfContents: []string{},
		Comments:        []models.Comment{},
	}, true
}

func itemTags(categories []string) []string {
	tags := lo.Compact(lo.Map(categories, func(c string, _ int) string { return strings.TrimSpace(c) }))
	return lo.Slice(lo.Uniq(tags), 0, maxTags)
}

// category picks the first item category we know, case-insensitively.
func (s *RSSSource) category(itemCategories []string) string {
	for _, c := range itemCategories {
		for _, known := range models.Categories {
			if known != models.CategoryAll && strings.EqualFold(strings.TrimSpace(c), known) {
				return known
			}
		}
	}
	if models.IsArticleCategory(s.Category) {
		return s.Category
	}
	return models.DefaultDraftCategory
}

func feedAuthor(f *gofeed.Feed, item *gofeed.Item) models.Author {
	name := f.Title
	if item.Author != nil && item.Author.Name != "" {
		name = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0].Name != "" {
		name = item.Authors[0].Name
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Newsroom"
	}

	slug := strings.ReplaceAll(normalizeKey(name), " ", "-")
	avatar := fmt.Sprintf(avatarTemplate, slug)
	if f.Image != nil && f.Image.URL != "" && name == strings.TrimSpace(f.Title) {
		avatar = f.Image.URL
	}
	return models.Author{
		ID:          "feed-" + slug,
		DisplayName: name,
		AvatarRef:   avatar,
	}
}

func heroImage(item *gofeed.Item, id string) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return fmt.Sprintf(imageTemplate, id)
}

// truncate cuts s to at most n runes on a word boundary.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)[:n]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
