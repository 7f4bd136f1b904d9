package models

const CategoryAll = "All"

// Categories lists the feed filters in display order. Every value except
// CategoryAll can be assigned to an article.
var Categories = []string{CategoryAll, "AI", "Dev", "Hardware", "Security", "Cloud"}

const DefaultDraftCategory = "Dev"

func IsArticleCategory(c string) bool {
	if c == CategoryAll {
		return false
	}
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

type SortMode string

const (
	SortNewest   SortMode = "newest"
	SortPopular  SortMode = "popular"
	SortTrending SortMode = "trending"
)
