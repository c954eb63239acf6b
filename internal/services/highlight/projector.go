// Package highlight turns matches into overlay highlights.
//
// Extraction space puts the origin at the bottom-left of the page with y
// growing upward. The overlay widget wants a top-left origin with y growing
// downward. The flip needs the page height; we use the real height read
// from the PDF and fall back to DefaultPageHeight only when the document
// does not declare one.
package highlight

import (
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
)

// DefaultPageHeight is used when a page's height is unknown.
const DefaultPageHeight = 750.0

// HashPrefix starts every location hash that points at a highlight.
const HashPrefix = "#highlight-"

// SearchEmoji marks highlights produced by a keyword search.
const SearchEmoji = "🔍"

// NewID returns a random decimal string. Ids are only meaningful within a
// session, so a tiny collision chance is acceptable; ProjectAll still
// guarantees uniqueness inside one pass.
func NewID() string {
	return strconv.FormatUint(rand.Uint64(), 10)
}

// HeightOr returns h, or DefaultPageHeight when h is not a usable height.
func HeightOr(h float64) float64 {
	if h <= 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return DefaultPageHeight
	}
	return h
}

// ToRect converts a page-space box to the overlay's rectangle shape.
// Height is always the distance between y1 and y2, whichever is on top.
func ToRect(box models.BoundingBox, pageNumber int) models.BoundingRect {
	return models.BoundingRect{
		X1:         box.X1,
		Y1:         box.Y1,
		X2:         box.X2,
		Y2:         box.Y2,
		Width:      box.X2 - box.X1,
		Height:     math.Abs(box.Y1 - box.Y2),
		PageNumber: pageNumber,
	}
}

// ToViewport flips a rectangle into render space: top = pageHeight - y1,
// left = x1, width and height unchanged.
func ToViewport(rect models.BoundingRect, pageHeight float64) models.LTWH {
	return models.LTWH{
		Top:        HeightOr(pageHeight) - rect.Y1,
		Left:       rect.X1,
		Width:      rect.Width,
		Height:     rect.Height,
		PageNumber: rect.PageNumber,
	}
}

// FromViewport inverts ToViewport, recovering the page-space rectangle.
// y2 is recovered as y1 - height, the convention fragments are built with.
func FromViewport(v models.LTWH, pageHeight float64) models.BoundingRect {
	y1 := HeightOr(pageHeight) - v.Top
	return models.BoundingRect{
		X1:         v.Left,
		Y1:         y1,
		X2:         v.Left + v.Width,
		Y2:         y1 - v.Height,
		Width:      v.Width,
		Height:     v.Height,
		PageNumber: v.PageNumber,
	}
}

// Project builds the highlight for a single match.
func Project(m models.Match, pageHeight float64, query string) models.Highlight {
	rect := ToRect(m.Position, m.PageNumber)
	viewport := ToViewport(rect, pageHeight)
	return models.Highlight{
		ID: NewID(),
		Position: models.HighlightPosition{
			BoundingRect: rect,
			Rects:        []models.BoundingRect{rect},
			PageNumber:   m.PageNumber,
			Viewport:     &viewport,
		},
		Content: models.HighlightContent{Text: m.MatchedText},
		Comment: models.HighlightComment{Text: query, Emoji: SearchEmoji},
		Source:  models.SourceSearch,
	}
}

// ProjectAll builds one highlight per match, in match order. heights maps
// page number to page height; missing pages use DefaultPageHeight. Ids are
// unique within the returned slice and never collide with reserved.
func ProjectAll(matches []models.Match, heights map[int]float64, query string, reserved ...models.Highlight) []models.Highlight {
	seen := make(map[string]struct{}, len(matches)+len(reserved))
	for _, h := range reserved {
		seen[h.ID] = struct{}{}
	}

	out := make([]models.Highlight, 0, len(matches))
	for _, m := range matches {
		h := Project(m, heights[m.PageNumber], query)
		for {
			if _, dup := seen[h.ID]; !dup {
				break
			}
			h.ID = NewID()
		}
		seen[h.ID] = struct{}{}
		out = append(out, h)
	}
	return out
}

// FromSelection wraps a selection reported by the overlay widget into a
// user highlight with a fresh id.
func FromSelection(position models.HighlightPosition, content models.HighlightContent, comment models.HighlightComment) models.Highlight {
	if position.PageNumber == 0 {
		position.PageNumber = position.BoundingRect.PageNumber
	}
	if len(position.Rects) == 0 {
		position.Rects = []models.BoundingRect{position.BoundingRect}
	}
	return models.Highlight{
		ID:       NewID(),
		Position: position,
		Content:  content,
		Comment:  comment,
		Source:   models.SourceUser,
	}
}

// Merge applies a partial update to an existing highlight, keeping its id
// and source. Nil parts are left untouched.
func Merge(h models.Highlight, position *models.HighlightPosition, content *models.HighlightContent) models.Highlight {
	if position != nil {
		if position.BoundingRect != (models.BoundingRect{}) {
			h.Position.BoundingRect = position.BoundingRect
		}
		if len(position.Rects) > 0 {
			h.Position.Rects = position.Rects
		}
		if position.PageNumber != 0 {
			h.Position.PageNumber = position.PageNumber
		}
		if position.Viewport != nil {
			v := *position.Viewport
			h.Position.Viewport = &v
		}
	}
	if content != nil {
		if content.Text != "" {
			h.Content.Text = content.Text
		}
		if content.Image != "" {
			h.Content.Image = content.Image
		}
	}
	return h
}

// HashFor returns the location hash that points at a highlight.
func HashFor(id string) string {
	return HashPrefix + id
}

// ParseHash extracts the highlight id from a location hash. The leading
// "#" is optional. ok is false when the hash does not name a highlight.
func ParseHash(hash string) (id string, ok bool) {
	hash = strings.TrimSpace(hash)
	if !strings.HasPrefix(hash, "#") {
		hash = "#" + hash
	}
	if !strings.HasPrefix(hash, HashPrefix) {
		return "", false
	}
	id = strings.TrimPrefix(hash, HashPrefix)
	return id, id != ""
}
