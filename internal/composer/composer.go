// Package composer edits a draft as a list of typed blocks and assembles
// the finished Article from it.
package composer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"itpulse/internal/assist"
	"itpulse/pkg/models"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

const (
	charsPerMinute   = 800
	publishedLabel   = "Today"
	placeholderImage = "https://picsum.photos/seed/%s/800/400"
)

// Composer holds one draft. All methods are safe for concurrent use; block
// edits stay available while RequestImprovement is waiting on the service.
type Composer struct {
	mu       sync.Mutex
	title    string
	summary  string
	category string
	tags     []string
	blocks   []models.ContentBlock

	improving bool

	improver assist.Improver
	seq      Sequencer
	now      func() time.Time
	newID    func() string
}

type Option func(*Composer)

func WithImprover(i assist.Improver) Option {
	return func(c *Composer) { c.improver = i }
}

func WithSequencer(s Sequencer) Option {
	return func(c *Composer) { c.seq = s }
}

func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

func WithIDGenerator(f func() string) Option {
	return func(c *Composer) { c.newID = f }
}

// New starts a draft with a single empty paragraph.
func New(opts ...Option) *Composer {
	c := &Composer{
		category: models.DefaultDraftCategory,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.seq == nil {
		c.seq = NewTimeSequencer(c.now)
	}
	c.blocks = []models.ContentBlock{{ID: c.newID(), Kind: models.BlockParagraph}}
	return c
}

func (c *Composer) SetTitle(title string) {
	c.mu.Lock()
	c.title = title
	c.mu.Unlock()
}

func (c *Composer) SetSummary(summary string) {
	c.mu.Lock()
	c.summary = summary
	c.mu.Unlock()
}

func (c *Composer) SetCategory(category string) error {
	if !models.IsArticleCategory(category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	c.mu.Lock()
	c.category = category
	c.mu.Unlock()
	return nil
}

// AddBlock appends a block of the given kind. Image blocks start with a
// placeholder picture, the others empty.
func (c *Composer) AddBlock(kind models.BlockKind) models.ContentBlock {
	b := models.ContentBlock{ID: c.newID(), Kind: kind}
	if kind == models.BlockImage {
		b.Value = fmt.Sprintf(placeholderImage, uuid.NewString())
	}

	c.mu.Lock()
	c.blocks = append(c.blocks, b)
	c.mu.Unlock()
	return b
}

// UpdateBlock replaces the value of block id. It reports whether the block
// exists; an unknown id changes nothing.
func (c *Composer) UpdateBlock(id, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.blocks {
		if c.blocks[i].ID == id {
			c.blocks[i].Value = value
			return true
		}
	}
	return false
}

// RemoveBlock deletes block id unless it is the only block left.
func (c *Composer) RemoveBlock(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) <= 1 {
		return false
	}
	for i := range c.blocks {
		if c.blocks[i].ID == id {
			c.blocks = append(c.blocks[:i:i], c.blocks[i+1:]...)
			return true
		}
	}
	return false
}

// MoveBlock swaps the block at index with its neighbour in dir. Moves that
// would leave the list are ignored.
func (c *Composer) MoveBlock(index int, dir Direction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := index + 1
	if dir == Up {
		target = index - 1
	} else if dir != Down {
		return false
	}
	if index < 0 || index >= len(c.blocks) || target < 0 || target >= len(c.blocks) {
		return false
	}
	c.blocks[index], c.blocks[target] = c.blocks[target], c.blocks[index]
	return true
}

func (c *Composer) Blocks() []models.ContentBlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ContentBlock(nil), c.blocks...)
}

func (c *Composer) Flatten() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return flatten(c.blocks)
}

func (c *Composer) TableOfContents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return tableOfContents(c.blocks)
}

func (c *Composer) HeroImage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return heroImage(c.blocks, c.now())
}

func flatten(blocks []models.ContentBlock) string {
	parts := lo.Map(blocks, func(b models.ContentBlock, _ int) string {
		switch b.Kind {
		case models.BlockHeading:
			return "## " + b.Value
		case models.BlockImage:
			return "![Image](" + b.Value + ")"
		default:
			return b.Value
		}
	})
	return strings.Join(parts, "\n\n")
}

func tableOfContents(blocks []models.ContentBlock) []string {
	return lo.FilterMap(blocks, func(b models.ContentBlock, _ int) (string, bool) {
		return b.Value, b.Kind == models.BlockHeading
	})
}

// heroImage picks the first image block; an empty URL there falls back to a
// placeholder seeded with the publish time.
func heroImage(blocks []models.ContentBlock, now time.Time) string {
	if b, ok := lo.Find(blocks, func(b models.ContentBlock) bool { return b.Kind == models.BlockImage }); ok && b.Value != "" {
		return b.Value
	}
	return fmt.Sprintf(placeholderImage, strconv.FormatInt(now.UnixMilli(), 10))
}

// ReadTime estimates reading minutes at 800 characters per minute, never
// less than one.
func ReadTime(body string) int {
	minutes := int(math.Ceil(float64(utf8.RuneCountInString(body)) / charsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

func ReadTimeLabel(body string) string {
	return fmt.Sprintf("%d min", ReadTime(body))
}

// State is the draft as shown to the editor.
type State struct {
	Title     string                `json:"title"`
	Summary   string                `json:"summary"`
	Category  string                `json:"category"`
	Tags      []string              `json:"tags"`
	Blocks    []models.ContentBlock `json:"blocks"`
	Missing   []string              `json:"missing"`
	Improving bool                  `json:"improving"`
	Ready     bool                  `json:"ready"`
}

func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	missing := missingFields(c.title, c.summary, flatten(c.blocks))
	return State{
		Title:     c.title,
		Summary:   c.summary,
		Category:  c.category,
		Tags:      append([]string{}, c.tags...),
		Blocks:    append([]models.ContentBlock(nil), c.blocks...),
		Missing:   missing,
		Improving: c.improving,
		Ready:     len(missing) == 0,
	}
}

func missingFields(title, summary, body string) []string {
	missing := []string{}
	if title == "" {
		missing = append(missing, "title")
	}
	if summary == "" {
		missing = append(missing, "summary")
	}
	if body == "" {
		missing = append(missing, "body")
	}
	return missing
}

// Submit assembles the Article for user. It does not publish it anywhere.
func (c *Composer) Submit(user models.User) (*models.Article, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body := flatten(c.blocks)
	if missing := missingFields(c.title, c.summary, body); len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	now := c.now()
	seq := c.seq.Next()
	blocks := append([]models.ContentBlock(nil), c.blocks...)

	return &models.Article{
		ID:       strconv.FormatInt(seq, 10),
		Seq:      seq,
		Title:    c.title,
		Summary:  c.summary,
		Body:     body,
		Category: c.category,
		Author: models.Author{
			ID:          user.ID,
			DisplayName: user.Name,
			AvatarRef:   user.AvatarRef,
		},
		PublishedLabel:  publishedLabel,
		ViewCount:       0,
		ReadTimeLabel:   ReadTimeLabel(body),
		HeroImageRef:    heroImage(blocks, now),
		Tags:            append([]string{}, c.tags...),
		TableOfContents: tableOfContents(blocks),
		Comments:        []models.Comment{},
		IsUserAuthored:  true,
		SourceBlocks:    blocks,
	}, nil
}

// RequestImprovement sends the title and flattened body to the improver.
// On success the title and summary are replaced and all blocks collapse
// into one paragraph holding the improved body. On failure nothing
// changes and the error is an *assist.Error. Only one request may be
// outstanding per draft.
func (c *Composer) RequestImprovement(ctx context.Context) error {
	c.mu.Lock()
	if c.improving {
		c.mu.Unlock()
		return ErrImprovementInFlight
	}
	title, body := c.title, flatten(c.blocks)
	if title == "" || body == "" {
		c.mu.Unlock()
		return &ValidationError{Fields: lo.Without(missingFields(title, "", body), "summary")}
	}
	if c.improver == nil {
		c.mu.Unlock()
		return &assist.Error{Kind: assist.KindCredential, Err: assist.ErrMissingAPIKey}
	}
	c.improving = true
	improver := c.improver
	c.mu.Unlock()

	improvement, err := improver.Improve(ctx, title, body)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.improving = false

	if err != nil {
		ae := assist.AsError(err)
		log.WithFields(log.Fields{
			"kind":  ae.Kind,
			"error": ae.Err,
		}).Warn("Draft improvement failed")
		return ae
	}
	if improvement == nil {
		return &assist.Error{Kind: assist.KindSchema, Err: fmt.Errorf("empty improvement")}
	}

	c.title = improvement.ImprovedTitle
	c.summary = improvement.SuggestedSummary
	c.tags = append([]string{}, improvement.SuggestedTags...)
	c.blocks = []models.ContentBlock{{
		ID:    c.newID(),
		Kind:  models.BlockParagraph,
		Value: improvement.ImprovedContent,
	}}
	return nil
}
