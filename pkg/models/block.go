package models

type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockImage     BlockKind = "image"
)

// ContentBlock is one unit of draft content. Order within a draft is
// document order.
type ContentBlock struct {
	ID    string    `json:"id"`
	Kind  BlockKind `json:"kind"`
	Value string    `json:"value"` // section text, free text or image URL depending on Kind
}

// ParseBlockKind accepts the canonical kinds plus the short forms
// used by older clients ("h2", "p").
func ParseBlockKind(s string) (BlockKind, bool) {
	switch s {
	case "heading", "h2":
		return BlockHeading, true
	case "paragraph", "p", "text":
		return BlockParagraph, true
	case "image", "img":
		return BlockImage, true
	default:
		return "", false
	}
}
