// Package seed reads and writes the TOML article catalogue that sessions
// start from.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"

	"itpulse/internal/composer"
	"itpulse/pkg/models"
)

//go:embed articles.toml
var bundled []byte

// TomlAuthor represents an article author in the catalogue
type TomlAuthor struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Avatar      string `toml:"avatar"`
	Subscribers int    `toml:"subscribers"`
	Subscribed  bool   `toml:"subscribed"`
}

// TomlComment represents a comment in the catalogue
type TomlComment struct {
	ID      string `toml:"id"`
	Author  string `toml:"author"`
	Avatar  string `toml:"avatar"`
	Text    string `toml:"text"`
	Created string `toml:"created"`
	Likes   int    `toml:"likes"`
}

// TomlArticle represents one article in the catalogue
type TomlArticle struct {
	ID        string        `toml:"id"`
	Seq       int64         `toml:"seq,omitempty"` // Falls back to the numeric id
	Title     string        `toml:"title"`
	Summary   string        `toml:"summary"`
	Body      string        `toml:"body"`
	Category  string        `toml:"category"`
	Published string        `toml:"published"`
	Views     int           `toml:"views"`
	ReadTime  string        `toml:"read_time,omitempty"`
	Image     string        `toml:"image"`
	Tags      []string      `toml:"tags"`
	TOC       []string      `toml:"toc"`
	Author    TomlAuthor    `toml:"author"`
	Comments  []TomlComment `toml:"comments,omitempty"`
}

// TomlCatalogue is the top-level document
type TomlCatalogue struct {
	Articles []TomlArticle `toml:"articles"`
}

// Load returns the bundled catalogue.
func Load() ([]models.Article, error) {
	return Decode(bytes.NewReader(bundled))
}

func LoadFile(path string) ([]models.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	articles, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return articles, nil
}

func Decode(r io.Reader) ([]models.Article, error) {
	var cat TomlCatalogue
	if _, err := toml.NewDecoder(r).Decode(&cat); err != nil {
		return nil, fmt.Errorf("parse seed catalogue: %w", err)
	}

	seen := make(map[string]bool, len(cat.Articles))
	articles := make([]models.Article, 0, len(cat.Articles))
	for i, ta := range cat.Articles {
		if ta.ID == "" || ta.Title == "" {
			return nil, fmt.Errorf("article %d: id and title are required", i)
		}
		if seen[ta.ID] {
			return nil, fmt.Errorf("article %s: duplicate id", ta.ID)
		}
		if !models.IsArticleCategory(ta.Category) {
			return nil, fmt.Errorf("article %s: unknown category %q", ta.ID, ta.Category)
		}
		seen[ta.ID] = true
		articles = append(articles, ta.toModel())
	}
	return articles, nil
}

func (ta TomlArticle) toModel() models.Article {
	seq := ta.Seq
	if seq == 0 {
		seq = models.SeqFromID(ta.ID)
	}
	readTime := ta.ReadTime
	if readTime == "" {
		readTime = composer.ReadTimeLabel(ta.Body)
	}

	return models.Article{
		ID:              ta.ID,
		Seq:             seq,
		Title:           ta.Title,
		Summary:         ta.Summary,
		Body:            ta.Body,
		Category:        ta.Category,
		PublishedLabel:  ta.Published,
		ViewCount:       ta.Views,
		ReadTimeLabel:   readTime,
		HeroImageRef:    ta.Image,
		Tags:            lo.Ternary(ta.Tags == nil, []string{}, ta.Tags),
		TableOfContents: lo.Ternary(ta.TOC == nil, []string{}, ta.TOC),
		Author: models.Author{
			ID:              ta.Author.ID,
			DisplayName:     ta.Author.Name,
			AvatarRef:       ta.Author.Avatar,
			SubscriberCount: ta.Author.Subscribers,
			IsSubscribed:    ta.Author.Subscribed,
		},
		Comments: lo.Map(ta.Comments, func(c TomlComment, _ int) models.Comment {
			return models.Comment{
				ID:           c.ID,
				AuthorName:   c.Author,
				AvatarRef:    c.Avatar,
				Text:         c.Text,
				CreatedLabel: c.Created,
				LikeCount:    c.Likes,
			}
		}),
	}
}

// Encode writes articles as a catalogue that Decode reads back.
func Encode(w io.Writer, articles []models.Article) error {
	cat := TomlCatalogue{
		Articles: lo.Map(articles, func(a models.Article, _ int) TomlArticle { return fromModel(a) }),
	}
	if err := toml.NewEncoder(w).Encode(cat); err != nil {
		return fmt.Errorf("encode seed catalogue: %w", err)
	}
	return nil
}

func fromModel(a models.Article) TomlArticle {
	ta := TomlArticle{
		ID:        a.ID,
		Title:     a.Title,
		Summary:   a.Summary,
		Body:      a.Body,
		Category:  a.Category,
		Published: a.PublishedLabel,
		Views:     a.ViewCount,
		ReadTime:  a.ReadTimeLabel,
		Image:     a.HeroImageRef,
		Tags:      a.Tags,
		TOC:       a.TableOfContents,
		Author: TomlAuthor{
			ID:          a.Author.ID,
			Name:        a.Author.DisplayName,
			Avatar:      a.Author.AvatarRef,
			Subscribers: a.Author.SubscriberCount,
			Subscribed:  a.Author.IsSubscribed,
		},
		Comments: lo.Map(a.Comments, func(c models.Comment, _ int) TomlComment {
			return TomlComment{
				ID:      c.ID,
				Author:  c.AuthorName,
				Avatar:  c.AvatarRef,
				Text:    c.Text,
				Created: c.CreatedLabel,
				Likes:   c.LikeCount,
			}
		}),
	}
	if a.Seq != models.SeqFromID(a.ID) {
		ta.Seq = a.Seq
	}
	return ta
}
