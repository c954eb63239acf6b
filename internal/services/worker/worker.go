// Package worker provides a background job processing system using goroutines.
//
// Go Pattern: Goroutines and channels are Go's concurrency primitives.
// A goroutine is like a lightweight thread (thousands are fine), and
// channels are typed pipes for communication between goroutines.
//
// This worker pool pattern is very common in Go:
// 1. Create a buffered channel as a job queue
// 2. Spawn N worker goroutines that read from the channel
// 3. Send jobs to the channel from your HTTP handlers
// 4. Workers process jobs concurrently
//
// Here the jobs are document loads: fetching a PDF and extracting its text
// geometry can take seconds, so it never runs on the request goroutine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf"
)

// ErrQueueFull is returned by Submit when the job queue has no room.
var ErrQueueFull = errors.New("job queue is full; try again later")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("worker pool is stopped")

// JobType identifies what kind of work a job represents.
type JobType string

const (
	JobDocumentLoad JobType = "document_load"
)

// Result is what a document load produced.
type Result struct {
	Document *models.Document
	Err      error
	Duration time.Duration
}

// Job represents a unit of work to be processed by a worker.
type Job struct {
	ID         string // Session the load belongs to
	Type       JobType
	Source     pdf.Source
	Generation uint64
	// Ctx is cancelled when a newer load supersedes this one.
	Ctx context.Context
	// Done receives the result. It reports whether the result was applied
	// (false means the load was stale by the time it finished).
	Done      func(generation uint64, res Result) bool
	CreatedAt time.Time
}

// Loader loads a document from a source.
type Loader interface {
	Load(ctx context.Context, src pdf.Source) (*models.Document, error)
}

// History records document load outcomes. It is optional.
type History interface {
	RecordDocumentLoad(ctx context.Context, l *models.DocumentLoad) error
}

// Pool manages a pool of worker goroutines.
type Pool struct {
	// Go Pattern: This buffered channel acts as our job queue.
	jobs    chan Job
	workers int
	loader  Loader
	history History

	wg sync.WaitGroup

	// Go Pattern: context.Context with cancel for graceful shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a new worker pool.
func NewPool(workers, queueSize int, loader Loader) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:    make(chan Job, queueSize), // Buffered channel
		workers: workers,
		loader:  loader,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetHistory wires an optional load history recorder.
func (p *Pool) SetHistory(h History) {
	p.history = h
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	log.Printf("🚀 Starting %d background workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully shuts down all workers.
// Go Pattern: Close the channel + cancel the context + wait for completion.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	log.Println("⏹️  Stopping workers...")
	p.cancel()
	p.wg.Wait()
	log.Println("✅ All workers stopped")
}

// Submit adds a job to the queue.
// Returns ErrQueueFull if the queue is full (non-blocking).
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.Type == "" {
		job.Type = JobDocumentLoad
	}

	// Go Pattern: `select` with `default` makes channel operations non-blocking.
	select {
	case p.jobs <- job:
		log.Printf("📥 Job queued: %s (type: %s, generation: %d)", job.ID, job.Type, job.Generation)
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueSize returns the current number of jobs in the queue.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		var err error
		switch job.Type {
		case JobDocumentLoad:
			err = p.processLoad(job)
		default:
			err = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if err != nil {
			log.Printf("❌ Worker %d: job %s failed: %v", id, job.ID, err)
		}
	}
}

// processLoad runs one document load and hands the result back.
func (p *Pool) processLoad(job Job) error {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	// Stop the load if either the pool shuts down or the job is superseded.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	start := time.Now()
	doc, err := p.loader.Load(ctx, job.Source)
	res := Result{Document: doc, Err: err, Duration: time.Since(start)}

	applied := true
	if job.Done != nil {
		applied = job.Done(job.Generation, res)
	}

	p.record(job, res, applied)
	return err
}

func (p *Pool) record(job Job, res Result, applied bool) {
	if p.history == nil {
		return
	}

	entry := &models.DocumentLoad{
		SessionID:  job.ID,
		Kind:       job.Source.Kind,
		Source:     job.Source.Location,
		Name:       job.Source.Name,
		Status:     "completed",
		DurationMS: res.Duration.Milliseconds(),
	}
	switch {
	case !applied:
		entry.Status = "stale"
	case res.Err != nil:
		entry.Status = "failed"
		entry.ErrorMessage = res.Err.Error()
	}
	if res.Document != nil {
		entry.PageCount = res.Document.PageCount
		entry.FragmentCount = res.Document.FragmentCount()
	}

	// Uses the pool context, not the job's: a superseded load is still worth recording.
	ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
	defer cancel()
	if err := p.history.RecordDocumentLoad(ctx, entry); err != nil {
		log.Printf("⚠️  Failed to record document load for %s: %v", job.ID, err)
	}
}
