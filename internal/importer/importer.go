// Package importer builds article catalogues from external news feeds.
package importer

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"unicode"

	log "github.com/sirupsen/logrus"

	"itpulse/pkg/models"
)

// Source is implemented by each external feed. Each source fetches its own
// format and maps it into Articles.
type Source interface {
	Name() string
	FetchAll(ctx context.Context) ([]models.Article, error)
}

// Aggregator calls every source and merges the results into one catalogue.
type Aggregator struct {
	Sources []Source
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{Sources: sources}
}

// FetchAndMerge merges articles that share a normalised title. The result
// is ordered newest first; ties keep the order in which sources listed them.
func (a *Aggregator) FetchAndMerge(ctx context.Context) ([]models.Article, error) {
	byKey := make(map[string]int)
	var result []models.Article

	for _, src := range a.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.WithField("source", src.Name()).Info("Fetching feed")
		articles, err := src.FetchAll(ctx)
		if err != nil {
			// one broken feed should not sink the import
			log.WithFields(log.Fields{"source": src.Name(), "err": err}).Warn("Feed failed")
			continue
		}

		for _, art := range articles {
			key := normalizeKey(art.Title)
			if key == "" {
				continue
			}
			if i, ok := byKey[key]; ok {
				result[i] = mergeArticle(result[i], art)
				continue
			}
			byKey[key] = len(result)
			result = append(result, art)
		}
	}

	slices.SortStableFunc(result, func(x, y models.Article) int {
		return cmp.Compare(y.Seq, x.Seq)
	})
	return result, nil
}

// normalizeKey lowercases s, keeps letters and digits and collapses
// everything else into single spaces.
func normalizeKey(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// mergeArticle resolves two sources describing the same story:
//
// - The first seen id, title, author and category win.
// - Tags are merged (set union).
// - The longer summary and body win.
// - A missing image is filled in.
// - The newer Seq and the larger view count win.
func mergeArticle(base, incoming models.Article) models.Article {
	base.Tags = mergeStringSlices(base.Tags, incoming.Tags)

	if len(incoming.Summary) > len(base.Summary) {
		base.Summary = incoming.Summary
	}
	if len(incoming.Body) > len(base.Body) {
		base.Body = incoming.Body
		base.ReadTimeLabel = incoming.ReadTimeLabel
	}
	if base.HeroImageRef == "" {
		base.HeroImageRef = incoming.HeroImageRef
	}
	if incoming.Seq > base.Seq {
		base.Seq = incoming.Seq
		base.PublishedLabel = incoming.PublishedLabel
	}
	base.ViewCount = max(base.ViewCount, incoming.ViewCount)
	return base
}

func appendIfMissing(slice []string, v string) []string {
	for _, x := range slice {
		if strings.EqualFold(x, v) {
			return slice
		}
	}
	return append(slice, v)
}

func mergeStringSlices(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	for _, v := range a {
		out = appendIfMissing(out, v)
	}
	for _, v := range b {
		out = appendIfMissing(out, v)
	}
	return out
}
