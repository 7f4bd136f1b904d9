package models

import "strconv"

type Author struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	AvatarRef       string `json:"avatar"`
	SubscriberCount int    `json:"subscribers"`
	IsSubscribed    bool   `json:"is_subscribed"`
}

type Comment struct {
	ID           string `json:"id"`
	AuthorName   string `json:"author"`
	AvatarRef    string `json:"avatar"`
	Text         string `json:"text"`
	CreatedLabel string `json:"created"`
	LikeCount    int    `json:"likes"`
}

// Article is the canonical record shown in the feed. Seq orders the
// "newest" feed; for composed articles ID is Seq in decimal.
type Article struct {
	ID              string         `json:"id"`
	Seq             int64          `json:"seq"`
	Title           string         `json:"title"`
	Summary         string         `json:"summary"`
	Body            string         `json:"body"`
	Category        string         `json:"category"`
	Author          Author         `json:"author"`
	PublishedLabel  string         `json:"published"`
	ViewCount       int            `json:"views"`
	ReadTimeLabel   string         `json:"read_time"`
	HeroImageRef    string         `json:"image"`
	Tags            []string       `json:"tags"`
	TableOfContents []string       `json:"toc"`
	Comments        []Comment      `json:"comments"`
	IsUserAuthored  bool           `json:"is_user_authored"`
	SourceBlocks    []ContentBlock `json:"blocks,omitempty"`
}

// Clone returns a deep copy so callers never share slices with the
// owning collection.
func (a Article) Clone() Article {
	out := a
	out.Tags = append([]string(nil), a.Tags...)
	out.TableOfContents = append([]string(nil), a.TableOfContents...)
	out.Comments = append([]Comment(nil), a.Comments...)
	if a.SourceBlocks != nil {
		out.SourceBlocks = append([]ContentBlock(nil), a.SourceBlocks...)
	}
	return out
}

// SeqFromID coerces a numeric id into a sequence value; anything else
// sorts as 0.
func SeqFromID(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
