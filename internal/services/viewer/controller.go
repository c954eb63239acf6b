// Package viewer owns the state of a single PDF viewer session.
//
// A Controller moves through three states:
//
//	idle ──Open──▶ loading ──load finished──▶ ready
//	                  ▲                         │
//	                  └─────────Open────────────┘
//
// Opening a document from any state clears matches and highlights and
// starts a new generation. Load results carry the generation they were
// started with; anything older than the current generation is dropped on
// arrival, so a slow earlier load can never overwrite a newer document.
// A failed load lands in ready with no fragments, which reads as
// "No results found".
//
// All state sits behind one mutex and is replaced whole, never mutated in
// place, so a Snapshot can be handed out without copying deeply.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/highlight"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/search"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/worker"
)

var (
	// ErrHighlightNotFound is returned when an update names an unknown highlight.
	ErrHighlightNotFound = errors.New("highlight not found")
	// ErrNoAlternate is returned by Toggle when there is nothing to switch to.
	ErrNoAlternate = errors.New("no document to toggle to")
)

// DefaultDebounce is the delay between the last keystroke and the search.
const DefaultDebounce = 500 * time.Millisecond

// Scheduler runs document loads off the caller's goroutine.
type Scheduler interface {
	Submit(job worker.Job) error
}

// Scroller asks the render layer to bring a highlight into view.
type Scroller func(h models.Highlight)

// Options configures a Controller.
type Options struct {
	// InitialSource is loaded by Clear and is what a fresh session opens.
	InitialSource pdf.Source
	// PrimaryURL and SecondaryURL are the two documents Toggle switches between.
	PrimaryURL   string
	SecondaryURL string
	Debounce     time.Duration
}

// Controller is one viewer session.
type Controller struct {
	id    string
	sched Scheduler
	opts  Options

	mu         sync.Mutex
	status     models.ViewerStatus
	generation uint64
	cancelLoad context.CancelFunc
	source     pdf.Source
	doc        *models.Document
	loadErr    string

	query      string
	matches    []models.Match
	searchHL   []models.Highlight
	userHL     []models.Highlight
	scrollTo   *models.Highlight
	scroller   Scroller
	pending    *time.Timer
	searchSeq  uint64
	lastActive time.Time
	closed     bool
}

// NewController creates an idle controller. Nothing is loaded until Open.
func NewController(id string, sched Scheduler, opts Options) *Controller {
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	return &Controller{
		id:         id,
		sched:      sched,
		opts:       opts,
		status:     models.StatusIdle,
		matches:    []models.Match{},
		searchHL:   []models.Highlight{},
		userHL:     []models.Highlight{},
		lastActive: time.Now(),
	}
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.id
}

// RegisterScroller installs the render layer's scroll handle.
func (c *Controller) RegisterScroller(fn Scroller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scroller = fn
}

// Open swaps in a new document. Matches and highlights are cleared right
// away; the current query is re-applied once the new document is ready.
func (c *Controller) Open(src pdf.Source) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("session %s is closed", c.id)
	}

	c.generation++
	gen := c.generation
	if c.cancelLoad != nil {
		c.cancelLoad()
	}

	c.status = models.StatusLoading
	c.source = src
	c.doc = nil
	c.loadErr = ""
	c.matches = []models.Match{}
	c.searchHL = []models.Highlight{}
	c.userHL = []models.Highlight{}
	c.scrollTo = nil
	c.lastActive = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelLoad = cancel
	c.mu.Unlock()

	// Submitted without the lock: a scheduler may finish the job before
	// Submit returns, and finishLoad takes the lock itself.
	err := c.sched.Submit(worker.Job{
		ID:         c.id,
		Type:       worker.JobDocumentLoad,
		Source:     src,
		Generation: gen,
		Ctx:        ctx,
		Done:       c.finishLoad,
	})
	if err == nil {
		return nil
	}

	cancel()
	c.mu.Lock()
	if gen == c.generation {
		c.cancelLoad = nil
		c.status = models.StatusReady
		c.loadErr = err.Error()
	}
	c.mu.Unlock()
	return fmt.Errorf("failed to schedule document load: %w", err)
}

// finishLoad applies a load result if it still belongs to the current generation.
func (c *Controller) finishLoad(gen uint64, res worker.Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.closed {
		log.Printf("⏭️  Session %s: dropping stale load (generation %d, current %d)", c.id, gen, c.generation)
		return false
	}

	c.cancelLoad = nil
	c.status = models.StatusReady

	if res.Err != nil {
		log.Printf("⚠️  Session %s: document load failed for %s: %v", c.id, c.source.Location, res.Err)
		c.doc = nil
		c.loadErr = res.Err.Error()
	} else {
		log.Printf("✅ Session %s: loaded %s (%d pages, %d fragments) in %s",
			c.id, c.source.Location, res.Document.PageCount, res.Document.FragmentCount(), res.Duration.Round(time.Millisecond))
		c.doc = res.Document
		c.loadErr = ""
	}

	c.recompute()
	return true
}

// Search schedules a search after the debounce delay. A newer call before
// the delay elapses replaces the pending one; a search that has started
// always runs to completion.
func (c *Controller) Search(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastActive = time.Now()
	c.searchSeq++
	seq := c.searchSeq
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}

	if c.opts.Debounce == 0 {
		c.applyQuery(query)
		return
	}

	c.pending = time.AfterFunc(c.opts.Debounce, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// A timer that fired while a newer Search held the lock is stale.
		if seq != c.searchSeq || c.closed {
			return
		}
		c.pending = nil
		c.applyQuery(query)
	})
}

// SearchNow runs a search immediately (explicit submit).
func (c *Controller) SearchNow(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastActive = time.Now()
	c.cancelPendingSearch()
	c.applyQuery(query)
}

// ResetSearch clears the query, its matches and its highlights.
func (c *Controller) ResetSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelPendingSearch()
	c.applyQuery("")
}

func (c *Controller) cancelPendingSearch() {
	c.searchSeq++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Controller) applyQuery(query string) {
	c.query = query
	c.recompute()
}

// recompute rebuilds matches and search highlights from scratch. The caller
// holds the lock.
func (c *Controller) recompute() {
	if c.status != models.StatusReady || c.doc == nil {
		c.matches = []models.Match{}
		c.searchHL = []models.Highlight{}
	} else {
		c.matches = search.Find(c.doc.Pages, search.Compile(c.query))
		c.searchHL = highlight.ProjectAll(c.matches, c.doc.PageHeights(), c.query, c.userHL...)
	}

	if c.scrollTo != nil && c.scrollTo.Source == models.SourceSearch {
		c.scrollTo = nil
	}
}

// AddHighlight stores a selection the user made in the render layer.
// Newest highlights come first.
func (c *Controller) AddHighlight(req models.NewHighlightRequest) models.Highlight {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := highlight.FromSelection(req.Position, req.Content, req.Comment)
	for c.findLocked(h.ID) != nil {
		h.ID = highlight.NewID()
	}

	c.userHL = append([]models.Highlight{h}, c.userHL...)
	c.lastActive = time.Now()
	return h
}

// UpdateHighlight merges a partial position/content update into a highlight.
func (c *Controller) UpdateHighlight(id string, position *models.HighlightPosition, content *models.HighlightContent) (models.Highlight, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, list := range []*[]models.Highlight{&c.userHL, &c.searchHL} {
		for i, h := range *list {
			if h.ID != id {
				continue
			}
			updated := highlight.Merge(h, position, content)
			next := make([]models.Highlight, len(*list))
			copy(next, *list)
			next[i] = updated
			*list = next
			return updated, nil
		}
	}
	return models.Highlight{}, ErrHighlightNotFound
}

// ResetHighlights removes every user highlight. Search highlights follow
// the query and are cleared with ResetSearch.
func (c *Controller) ResetHighlights() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userHL = []models.Highlight{}
	if c.scrollTo != nil && c.scrollTo.Source == models.SourceUser {
		c.scrollTo = nil
	}
}

// ScrollToHash looks up the highlight named by a "#highlight-<id>" hash
// and asks the registered Scroller to show it. Unknown ids are a no-op.
func (c *Controller) ScrollToHash(hash string) (models.Highlight, bool) {
	id, ok := highlight.ParseHash(hash)
	if !ok {
		return models.Highlight{}, false
	}

	c.mu.Lock()
	h := c.findLocked(id)
	if h == nil {
		c.mu.Unlock()
		return models.Highlight{}, false
	}
	target := *h
	c.scrollTo = &target
	scroller := c.scroller
	c.mu.Unlock()

	// Called without the lock so the scroller may read state back.
	if scroller != nil {
		scroller(target)
	}
	return target, true
}

// ClearScrollTarget forgets the last scroll target (the user scrolled away).
func (c *Controller) ClearScrollTarget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scrollTo = nil
}

func (c *Controller) findLocked(id string) *models.Highlight {
	for _, list := range [][]models.Highlight{c.userHL, c.searchHL} {
		for i := range list {
			if list[i].ID == id {
				return &list[i]
			}
		}
	}
	return nil
}

// Toggle switches between the primary and secondary documents.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	next := c.opts.PrimaryURL
	if c.source.Location == c.opts.PrimaryURL {
		next = c.opts.SecondaryURL
	}
	c.mu.Unlock()

	if next == "" {
		return ErrNoAlternate
	}
	return c.Open(pdf.URLSource(next))
}

// Clear goes back to the initial document (the uploaded file was removed).
// Without an initial document the session returns to idle.
func (c *Controller) Clear() error {
	if c.opts.InitialSource.Location != "" {
		return c.Open(c.opts.InitialSource)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	c.status = models.StatusIdle
	c.source = pdf.Source{}
	c.doc = nil
	c.loadErr = ""
	c.matches = []models.Match{}
	c.searchHL = []models.Highlight{}
	c.userHL = []models.Highlight{}
	c.scrollTo = nil
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() models.ViewerState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := models.ViewerState{
		Status:     c.status,
		Generation: c.generation,
		Query:      c.query,
		Matches:    c.matches,
		Highlights: c.highlightsLocked(),
		Summary:    search.Summarize(c.matches),
		LoadError:  c.loadErr,
	}
	if c.status != models.StatusIdle {
		info := &models.DocumentInfo{
			Source: c.source.Location,
			Kind:   c.source.Kind,
			Name:   c.source.Name,
		}
		if c.doc != nil {
			info.PageCount = c.doc.PageCount
			info.FragmentCount = c.doc.FragmentCount()
		}
		state.Document = info
	}
	if c.scrollTo != nil {
		target := *c.scrollTo
		state.ScrollTarget = &target
	}
	return state
}

// Highlights returns the rendered set: user highlights, then search highlights.
func (c *Controller) Highlights() []models.Highlight {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highlightsLocked()
}

func (c *Controller) highlightsLocked() []models.Highlight {
	out := make([]models.Highlight, 0, len(c.userHL)+len(c.searchHL))
	out = append(out, c.userHL...)
	return append(out, c.searchHL...)
}

// Close stops pending work. Loads still in flight are dropped when they finish.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	c.cancelPendingSearch()
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
}

func (c *Controller) touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

func (c *Controller) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}
