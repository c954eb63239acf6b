// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// They carry no behaviour of their own; the services package does the work
// and the handlers package turns these into HTTP responses.
//
// Two coordinate systems show up here. Extraction space (BoundingBox) has
// its origin at the bottom-left of the page with y growing upward, like the
// PDF itself. Render space (LTWH) has its origin at the top-left with y
// growing downward, like a browser viewport.
package models

import (
	"time"
)

// BoundingBox is an axis-aligned box in page (extraction) space.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// TextFragment is one atomic run of text reported by the PDF engine.
// Fragments are never modified after extraction; a new document load
// produces a new set.
type TextFragment struct {
	Text       string      `json:"text"`
	Position   BoundingBox `json:"position"`
	PageNumber int         `json:"page_number"`
}

// Page holds the fragments of a single page in the order the engine reported them.
type Page struct {
	Number    int            `json:"number"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"` // 0 when the PDF does not declare a MediaBox
	Fragments []TextFragment `json:"fragments"`
}

// Document is the extracted text geometry of a whole PDF.
type Document struct {
	Source    string `json:"source"`
	Name      string `json:"name"`
	PageCount int    `json:"page_count"`
	Pages     []Page `json:"pages"`
}

// FragmentCount returns the number of fragments across all pages.
func (d *Document) FragmentCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Fragments)
	}
	return n
}

// PageHeights maps page number to declared page height.
func (d *Document) PageHeights() map[int]float64 {
	heights := make(map[int]float64, len(d.Pages))
	for _, p := range d.Pages {
		heights[p.Number] = p.Height
	}
	return heights
}

// Match is one occurrence of the search query inside a fragment.
type Match struct {
	PageNumber   int         `json:"page_number"`
	MatchedText  string      `json:"matched_text"`  // The occurrence itself, as written in the document
	FragmentText string      `json:"fragment_text"` // The whole fragment the occurrence was found in
	MatchIndex   int         `json:"match_index"`   // Fragment index within its page
	Occurrence   int         `json:"occurrence"`    // Ordinal of this hit inside the fragment
	Position     BoundingBox `json:"position"`
}

// BoundingRect is the rectangle shape the highlight overlay consumes.
// Width and Height are derived from the corners, never set independently.
type BoundingRect struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageNumber int     `json:"pageNumber,omitempty"`
}

// LTWH is a rectangle in render space (top-left origin).
type LTWH struct {
	Top        float64 `json:"top"`
	Left       float64 `json:"left"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageNumber int     `json:"pageNumber,omitempty"`
}

// HighlightPosition locates a highlight on a page.
type HighlightPosition struct {
	BoundingRect BoundingRect   `json:"boundingRect"`
	Rects        []BoundingRect `json:"rects"`
	PageNumber   int            `json:"pageNumber"`
	Viewport     *LTWH          `json:"viewport,omitempty"` // Render-space projection of BoundingRect
}

// HighlightContent is the text (or image) a highlight covers.
type HighlightContent struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// HighlightComment is the note shown in the highlight popup.
type HighlightComment struct {
	Text  string `json:"text"`
	Emoji string `json:"emoji"`
}

// HighlightSource tells search highlights apart from ones a user drew.
type HighlightSource string

const (
	SourceSearch HighlightSource = "search"
	SourceUser   HighlightSource = "user"
)

// Highlight is a renderable overlay object.
type Highlight struct {
	ID       string            `json:"id"`
	Position HighlightPosition `json:"position"`
	Content  HighlightContent  `json:"content"`
	Comment  HighlightComment  `json:"comment"`
	Source   HighlightSource   `json:"source"`
}

// ViewerStatus is the state of a viewer session.
// Go Pattern: String constants instead of enums.
type ViewerStatus string

const (
	StatusIdle    ViewerStatus = "idle"
	StatusLoading ViewerStatus = "loading"
	StatusReady   ViewerStatus = "ready"
)

// SourceKind says where a document came from.
type SourceKind string

const (
	SourceURL    SourceKind = "url"
	SourceUpload SourceKind = "upload"
	SourceFile   SourceKind = "file"
)

// ResultSummary is the line shown above the document ("No results found", ...).
type ResultSummary struct {
	Count   int    `json:"count"`
	Pages   int    `json:"pages"`
	Message string `json:"message"`
}

// DocumentInfo describes the currently loaded document without its fragments.
type DocumentInfo struct {
	Source        string     `json:"source"`
	Kind          SourceKind `json:"kind"`
	Name          string     `json:"name"`
	PageCount     int        `json:"page_count"`
	FragmentCount int        `json:"fragment_count"`
}

// ViewerState is a point-in-time copy of a viewer session.
type ViewerState struct {
	Status       ViewerStatus  `json:"status"`
	Generation   uint64        `json:"generation"`
	Document     *DocumentInfo `json:"document,omitempty"`
	Query        string        `json:"query"`
	Matches      []Match       `json:"matches"`
	Highlights   []Highlight   `json:"highlights"`
	Summary      ResultSummary `json:"summary"`
	LoadError    string        `json:"load_error,omitempty"`
	ScrollTarget *Highlight    `json:"scroll_target,omitempty"`
}

// DocumentLoad is one row of load history.
type DocumentLoad struct {
	ID            string     `json:"id" db:"id"`
	SessionID     string     `json:"session_id" db:"session_id"`
	Kind          SourceKind `json:"kind" db:"kind"`
	Source        string     `json:"source" db:"source"`
	Name          string     `json:"name" db:"name"`
	PageCount     int        `json:"page_count" db:"page_count"`
	FragmentCount int        `json:"fragment_count" db:"fragment_count"`
	Status        string     `json:"status" db:"status"` // "completed", "failed" or "stale"
	ErrorMessage  string     `json:"error_message,omitempty" db:"error_message"`
	DurationMS    int64      `json:"duration_ms" db:"duration_ms"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// --- Request/Response DTOs ---

// CreateSessionResponse is returned by POST /api/v1/sessions.
type CreateSessionResponse struct {
	SessionID string      `json:"session_id"`
	Token     string      `json:"token"`
	State     ViewerState `json:"state"`
}

// SetDocumentRequest is the JSON body for PUT /api/v1/sessions/:id/document.
type SetDocumentRequest struct {
	URL string `json:"url" binding:"required"`
}

// SearchRequest is the JSON body for PUT /api/v1/sessions/:id/search.
type SearchRequest struct {
	Query     string `json:"query"`
	Immediate bool   `json:"immediate"` // Skip the debounce (explicit submit)
}

// NewHighlightRequest is a selection reported by the highlight widget.
type NewHighlightRequest struct {
	Position HighlightPosition `json:"position" binding:"required"`
	Content  HighlightContent  `json:"content"`
	Comment  HighlightComment  `json:"comment"`
}

// UpdateHighlightRequest carries a partial position/content update.
type UpdateHighlightRequest struct {
	Position *HighlightPosition `json:"position,omitempty"`
	Content  *HighlightContent  `json:"content,omitempty"`
}

// NavigateRequest is the JSON body for POST /api/v1/sessions/:id/navigate.
type NavigateRequest struct {
	Hash string `json:"hash" binding:"required"`
}

// SidebarEntry is one row of the result list.
type SidebarEntry struct {
	Index       int    `json:"index"`
	PageNumber  int    `json:"page_number"`
	MatchedText string `json:"matched_text"`
	Coordinates string `json:"coordinates"` // "(x1, y1)" with one decimal
	Hash        string `json:"hash"`        // Click target, e.g. "#highlight-123"
}

// SidebarResponse is the display data for the result sidebar.
type SidebarResponse struct {
	Summary  ResultSummary  `json:"summary"`
	Entries  []SidebarEntry `json:"entries"`
	CanReset bool           `json:"can_reset"`
}

// SearchResponse is returned by the stateless search endpoint.
type SearchResponse struct {
	Document   DocumentInfo  `json:"document"`
	Query      string        `json:"query"`
	Matches    []Match       `json:"matches"`
	Highlights []Highlight   `json:"highlights"`
	Summary    ResultSummary `json:"summary"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Workers    int    `json:"workers"`
	QueuedJobs int    `json:"queued_jobs"`
	Sessions   int    `json:"sessions"`
}
