package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf"
)

type fakeLoader struct {
	block chan struct{}
	err   error
}

func (f *fakeLoader) Load(ctx context.Context, src pdf.Source) (*models.Document, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.Document{Source: src.Location, PageCount: 1, Pages: []models.Page{{Number: 1}}}, nil
}

type memHistory struct {
	mu      sync.Mutex
	entries []models.DocumentLoad
}

func (m *memHistory) RecordDocumentLoad(ctx context.Context, l *models.DocumentLoad) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *l)
	return nil
}

func (m *memHistory) statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Status)
	}
	return out
}

func TestPool_ProcessesLoad(t *testing.T) {
	hist := &memHistory{}
	p := NewPool(2, 4, &fakeLoader{})
	p.SetHistory(hist)
	p.Start()
	defer p.Stop()

	done := make(chan Result, 1)
	err := p.Submit(Job{
		ID:         "s1",
		Source:     pdf.URLSource("http://example.test/a.pdf"),
		Generation: 7,
		Done: func(gen uint64, res Result) bool {
			assert.Equal(t, uint64(7), gen)
			done <- res
			return true
		},
	})
	require.NoError(t, err)

	select {
	case res := <-done:
		require.NoError(t, res.Err)
		assert.Equal(t, "http://example.test/a.pdf", res.Document.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("job never completed")
	}

	require.Eventually(t, func() bool { return len(hist.statuses()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"completed"}, hist.statuses())
}

func TestPool_RecordsFailureAndStale(t *testing.T) {
	hist := &memHistory{}
	p := NewPool(1, 4, &fakeLoader{err: errors.New("boom")})
	p.SetHistory(hist)
	p.Start()
	defer p.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, p.Submit(Job{ID: "a", Done: func(uint64, Result) bool { wg.Done(); return true }}))
	require.NoError(t, p.Submit(Job{ID: "b", Done: func(uint64, Result) bool { wg.Done(); return false }}))
	wg.Wait()

	require.Eventually(t, func() bool { return len(hist.statuses()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"failed", "stale"}, hist.statuses())
}

func TestPool_QueueFull(t *testing.T) {
	// Not started: nothing drains the queue.
	p := NewPool(1, 1, &fakeLoader{})
	require.NoError(t, p.Submit(Job{ID: "a"}))
	assert.ErrorIs(t, p.Submit(Job{ID: "b"}), ErrQueueFull)
	assert.Equal(t, 1, p.QueueSize())
}

func TestPool_CancelledJob(t *testing.T) {
	p := NewPool(1, 1, &fakeLoader{block: make(chan struct{})})
	p.Start()
	defer p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	require.NoError(t, p.Submit(Job{ID: "a", Ctx: ctx, Done: func(_ uint64, res Result) bool {
		done <- res.Err
		return false
	}}))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled job never finished")
	}
}

func TestPool_SubmitAfterStop(t *testing.T) {
	p := NewPool(1, 1, &fakeLoader{})
	p.Start()
	p.Stop()
	assert.ErrorIs(t, p.Submit(Job{ID: "a"}), ErrStopped)
}
