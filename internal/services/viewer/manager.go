package viewer

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// Manager keeps the live viewer sessions in memory. Nothing is persisted:
// a restart drops every session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Controller

	sched Scheduler
	opts  Options
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
}

// NewManager creates a session manager. Sessions idle for longer than ttl
// are closed by a background sweep; ttl <= 0 disables expiry.
func NewManager(sched Scheduler, opts Options, ttl time.Duration) *Manager {
	m := &Manager{
		sessions: make(map[string]*Controller),
		sched:    sched,
		opts:     opts,
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go m.cleanup()
	}
	return m
}

// Create starts a new session and begins loading src. An empty src uses
// the configured initial document.
func (m *Manager) Create(src pdf.Source) (*Controller, error) {
	if src.Location == "" {
		src = m.opts.InitialSource
	}

	c := NewController(uuid.New().String(), m.sched, m.opts)

	m.mu.Lock()
	m.sessions[c.ID()] = c
	m.mu.Unlock()

	if src.Location == "" {
		return c, nil
	}
	if err := c.Open(src); err != nil {
		// The session still exists; it is ready with an empty result set.
		return c, err
	}
	return c, nil
}

// Get returns a live session and marks it active.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	c, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	c.touch()
	return c, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	c.Close()
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the sweeper and closes every session.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.done) })

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}

// cleanup periodically removes idle sessions to prevent memory leaks.
func (m *Manager) cleanup() {
	interval := m.ttl / 2
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.expire(now)
		}
	}
}

func (m *Manager) expire(now time.Time) int {
	var stale []*Controller

	m.mu.Lock()
	for id, c := range m.sessions {
		if now.Sub(c.idleSince()) > m.ttl {
			stale = append(stale, c)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	if len(stale) > 0 {
		log.Printf("🧹 Expired %d idle viewer sessions", len(stale))
	}
	return len(stale)
}
