// Package pdf extracts positioned text from PDF documents.
//
// We use the ledongthuc/pdf library for decoding.
// It's a pure Go implementation — no CGO or external dependencies required.
// This makes deployment simpler (just a single binary).
//
// The library reports text one glyph at a time. We stitch consecutive glyphs
// on the same baseline back into runs, which is what the rest of the
// pipeline calls a fragment.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
)

// ErrNotPDF is returned when data does not start with the PDF magic bytes.
var ErrNotPDF = errors.New("data is not a PDF document")

// DefaultConcurrency bounds how many pages are decoded at once.
const DefaultConcurrency = 4

// Extractor turns PDF bytes into per-page text fragments.
type Extractor struct {
	concurrency int
}

// NewExtractor creates an extractor that decodes up to concurrency pages in parallel.
func NewExtractor(concurrency int) *Extractor {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Extractor{concurrency: concurrency}
}

// Extract reads every page of the PDF and returns its text geometry.
//
// Pages are decoded concurrently but always returned in page order, and
// fragments keep the order the engine reported them in. A page that cannot
// be decoded fails the whole document.
func (e *Extractor) Extract(ctx context.Context, data []byte, source string) (*models.Document, error) {
	if !ValidatePDF(data) {
		return nil, ErrNotPDF
	}

	// Open once up front to learn the page count and fail fast on a bad xref.
	first, err := openReader(data)
	if err != nil {
		return nil, err
	}
	pageCount := first.NumPage()

	doc := &models.Document{
		Source:    source,
		PageCount: pageCount,
		Pages:     make([]models.Page, pageCount),
	}
	if pageCount == 0 {
		return doc, nil
	}

	workers := e.concurrency
	if workers > pageCount {
		workers = pageCount
	}

	// Go Pattern: errgroup cancels the shared context as soon as one
	// goroutine fails, so the remaining workers stop early.
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			// Each worker gets its own reader; bytes.Reader.ReadAt is safe
			// for concurrent use but the decoder's state is not.
			r := first
			if w > 0 {
				var err error
				if r, err = openReader(data); err != nil {
					return err
				}
			}
			for num := w + 1; num <= pageCount; num += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				page, err := readPage(r, num)
				if err != nil {
					return err
				}
				doc.Pages[num-1] = page
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ValidatePDF checks if the data looks like a valid PDF by checking the magic bytes.
func ValidatePDF(data []byte) bool {
	// PDF files start with "%PDF-"
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("failed to open PDF: %v", rec)
		}
	}()

	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return r, nil
}

// readPage decodes one page. The decoder panics on malformed content
// streams, so the panic is turned back into an error here.
func readPage(r *pdf.Reader, num int) (page models.Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to decode page %d: %v", num, rec)
		}
	}()

	page = models.Page{Number: num, Fragments: []models.TextFragment{}}

	p := r.Page(num)
	if p.V.IsNull() {
		return page, nil
	}

	page.Width, page.Height = pageSize(p.V)
	page.Fragments = assembleFragments(num, p.Content().Text)
	return page, nil
}

// pageSize reads the MediaBox, following Parent links since the box is
// inheritable. Returns zeros when no box is declared.
func pageSize(v pdf.Value) (width, height float64) {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			llx, lly := box.Index(0).Float64(), box.Index(1).Float64()
			urx, ury := box.Index(2).Float64(), box.Index(3).Float64()
			return math.Abs(urx - llx), math.Abs(ury - lly)
		}
		v = v.Key("Parent")
	}
	return 0, 0
}

// Thresholds below are in units of the glyph's font size.
const (
	baselineTolerance = 0.2  // glyphs closer than this vertically share a line
	spaceGap          = 0.15 // a horizontal gap wider than this reads as a word break
	runGap            = 1.5  // a gap wider than this starts a new fragment
)

// run is a fragment under construction.
type run struct {
	text     strings.Builder
	font     string
	size     float64
	x, y     float64
	end      float64
	lastRune string
}

// assembleFragments stitches glyphs into text runs. A run continues while
// glyphs keep the same font, size and baseline and move forward without a
// large gap. Gaps big enough to be a word break become a single space.
func assembleFragments(pageNum int, glyphs []pdf.Text) []models.TextFragment {
	fragments := []models.TextFragment{}
	var cur *run

	flush := func() {
		if cur == nil {
			return
		}
		text := strings.TrimRight(cur.text.String(), " ")
		if strings.TrimSpace(text) != "" {
			fragments = append(fragments, models.TextFragment{
				Text:       text,
				PageNumber: pageNum,
				Position: models.BoundingBox{
					X1: cur.x,
					Y1: cur.y,
					X2: cur.end,
					Y2: cur.y - cur.size,
				},
			})
		}
		cur = nil
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if cur != nil && continues(cur, g) {
			gap := g.X - cur.end
			if gap > spaceGap*cur.size && cur.lastRune != " " && g.S != " " {
				cur.text.WriteString(" ")
			}
			cur.text.WriteString(g.S)
			cur.end = math.Max(cur.end, g.X+g.W)
			cur.lastRune = g.S
			continue
		}

		flush()
		if strings.TrimSpace(g.S) == "" {
			// Leading whitespace never starts a fragment.
			continue
		}
		cur = &run{font: g.Font, size: g.FontSize, x: g.X, y: g.Y, end: g.X + g.W, lastRune: g.S}
		cur.text.WriteString(g.S)
	}
	flush()

	return fragments
}

func continues(cur *run, g pdf.Text) bool {
	if g.Font != cur.font || math.Abs(g.FontSize-cur.size) > 0.01 {
		return false
	}
	size := math.Max(cur.size, 1)
	if math.Abs(g.Y-cur.y) > baselineTolerance*size {
		return false
	}
	gap := g.X - cur.end
	return gap >= -spaceGap*size && gap <= runGap*size
}
