package sidebar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
)

func TestCoordinates(t *testing.T) {
	tests := []struct {
		name string
		box  models.BoundingBox
		want string
	}{
		{"whole numbers", models.BoundingBox{X1: 10, Y1: 700}, "(10.0, 700.0)"},
		{"rounded", models.BoundingBox{X1: 72.04, Y1: 689.96}, "(72.0, 690.0)"},
		{"origin", models.BoundingBox{}, "(0.0, 0.0)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coordinates(tt.box))
		})
	}
}

func TestBuild(t *testing.T) {
	state := models.ViewerState{
		Status: models.StatusReady,
		Query:  "alpha|beta",
		Matches: []models.Match{
			{PageNumber: 1, MatchedText: "alpha", Position: models.BoundingBox{X1: 10, Y1: 700}},
			{PageNumber: 2, MatchedText: "beta", Position: models.BoundingBox{X1: 20.25, Y1: 500}},
		},
		Highlights: []models.Highlight{
			{ID: "u1", Source: models.SourceUser},
			{ID: "s1", Source: models.SourceSearch},
			{ID: "s2", Source: models.SourceSearch},
		},
		Summary: models.ResultSummary{Count: 2, Pages: 2, Message: "2 results found on 2 pages"},
	}

	got := Build(state)

	require.Len(t, got.Entries, 2)
	assert.Equal(t, models.SidebarEntry{
		Index: 0, PageNumber: 1, MatchedText: "alpha", Coordinates: "(10.0, 700.0)", Hash: "#highlight-s1",
	}, got.Entries[0])
	assert.Equal(t, "#highlight-s2", got.Entries[1].Hash, "user highlights are skipped")
	assert.Equal(t, "(20.2, 500.0)", got.Entries[1].Coordinates)
	assert.Equal(t, state.Summary, got.Summary)
	assert.True(t, got.CanReset)
}

func TestBuild_Empty(t *testing.T) {
	got := Build(models.ViewerState{
		Status:  models.StatusReady,
		Summary: models.ResultSummary{Message: "No results found"},
	})

	assert.NotNil(t, got.Entries)
	assert.Empty(t, got.Entries)
	assert.False(t, got.CanReset)
	assert.Equal(t, "No results found", got.Summary.Message)
}
