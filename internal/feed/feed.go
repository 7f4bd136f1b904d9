// Package feed maps an article collection plus the reader's filters to
// the ordered list the feed shows.
package feed

import (
	"cmp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"itpulse/pkg/models"
)

type Query struct {
	Category string          // "" or models.CategoryAll disables the filter
	Search   string          // case-insensitive match against title and summary
	Sort     models.SortMode // unknown modes sort as newest
}

// Apply filters and sorts articles. The input is never modified; the
// result is a fresh slice of copies. Equal inputs give equal outputs.
func Apply(articles []models.Article, q Query) []models.Article {
	needle := strings.ToLower(q.Search)

	out := lo.FilterMap(articles, func(a models.Article, _ int) (models.Article, bool) {
		if !matchesCategory(a, q.Category) || !matchesSearch(a, needle) {
			return models.Article{}, false
		}
		return a.Clone(), true
	})

	slices.SortStableFunc(out, comparator(q.Sort))
	return out
}

func matchesCategory(a models.Article, category string) bool {
	return category == "" || category == models.CategoryAll || a.Category == category
}

func matchesSearch(a models.Article, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Title), needle) ||
		strings.Contains(strings.ToLower(a.Summary), needle)
}

func comparator(mode models.SortMode) func(a, b models.Article) int {
	switch mode {
	case models.SortPopular:
		return func(a, b models.Article) int {
			return cmp.Compare(b.ViewCount, a.ViewCount)
		}
	case models.SortTrending:
		// Same ranking as popular for now.
		return func(a, b models.Article) int {
			return cmp.Compare(trendingScore(b), trendingScore(a))
		}
	default:
		return newest
	}
}

func trendingScore(a models.Article) float64 {
	return float64(a.ViewCount) / 2
}

// newest puts user-authored articles first, then orders by Seq descending.
func newest(a, b models.Article) int {
	if a.IsUserAuthored != b.IsUserAuthored {
		if a.IsUserAuthored {
			return -1
		}
		return 1
	}
	return cmp.Compare(b.Seq, a.Seq)
}

// ParseSort maps a query-string value to a sort mode. Empty means newest.
func ParseSort(s string) (models.SortMode, bool) {
	switch models.SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", models.SortNewest:
		return models.SortNewest, true
	case models.SortPopular:
		return models.SortPopular, true
	case models.SortTrending:
		return models.SortTrending, true
	default:
		return "", false
	}
}

// ParseCategory matches s against the known categories, ignoring case.
// Empty means All.
func ParseCategory(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.CategoryAll, true
	}
	for _, c := range models.Categories {
		if strings.EqualFold(c, s) {
			return c, true
		}
	}
	return "", false
}
