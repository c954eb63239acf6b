// Package sidebar turns a viewer state into the rows of the result list.
// It only formats: nothing here changes the state it is given.
package sidebar

import (
	"fmt"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/highlight"
)

// Build lists the matches of state in document order. Each row links to
// the search highlight projected from the same match.
func Build(state models.ViewerState) models.SidebarResponse {
	var searchHighlights []models.Highlight
	for _, h := range state.Highlights {
		if h.Source == models.SourceSearch {
			searchHighlights = append(searchHighlights, h)
		}
	}

	entries := make([]models.SidebarEntry, 0, len(state.Matches))
	for i, m := range state.Matches {
		entry := models.SidebarEntry{
			Index:       i,
			PageNumber:  m.PageNumber,
			MatchedText: m.MatchedText,
			Coordinates: Coordinates(m.Position),
		}
		if i < len(searchHighlights) {
			entry.Hash = highlight.HashFor(searchHighlights[i].ID)
		}
		entries = append(entries, entry)
	}

	return models.SidebarResponse{
		Summary:  state.Summary,
		Entries:  entries,
		CanReset: state.Query != "" || len(state.Matches) > 0,
	}
}

// Coordinates formats the top-left corner of a match box as "(x, y)".
func Coordinates(box models.BoundingBox) string {
	return fmt.Sprintf("(%.1f, %.1f)", box.X1, box.Y1)
}
