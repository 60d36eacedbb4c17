// Package reading tracks the open viewer sessions of the HTTP reader.
package reading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/boighor/internal/viewer"
)

var (
	// ErrSessionNotFound is returned for unknown or closed session ids.
	ErrSessionNotFound = errors.New("reading session not found")
	// ErrTooManySessions is returned when MaxSessions are already open.
	ErrTooManySessions = errors.New("too many open reading sessions")
)

// DefaultMaxSessions bounds open sessions when Config.MaxSessions is unset.
const DefaultMaxSessions = 32

// Config configures a Manager.
type Config struct {
	Loader    viewer.Loader
	Bookmarks viewer.BookmarkStore

	MaxSessions int
	// IdleTimeout closes sessions not used for this long when Run is active.
	IdleTimeout time.Duration

	MobileBreakpoint float64
	ZoomStep         float64
	FitMargin        float64

	Logger *slog.Logger
	// Now is overridable for tests.
	Now func() time.Time
}

// Reader is one open session.
type Reader struct {
	ID        string          `json:"id"`
	BookID    string          `json:"book_id"`
	CreatedAt time.Time       `json:"created_at"`
	Session   *viewer.Session `json:"-"`

	mu       sync.Mutex
	lastUsed time.Time
	loaded   chan struct{}
	loadErr  error
}

// Loaded is closed once the initial load finished, successfully or not.
func (r *Reader) Loaded() <-chan struct{} {
	return r.loaded
}

// LoadErr returns the load error after Loaded is closed.
func (r *Reader) LoadErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadErr
}

func (r *Reader) touch(now time.Time) {
	r.mu.Lock()
	r.lastUsed = now
	r.mu.Unlock()
}

func (r *Reader) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUsed
}

// Manager owns the open sessions.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	readers map[string]*Reader
	loads   sync.WaitGroup
}

// NewManager creates a Manager.
func NewManager(cfg Config) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{cfg: cfg, logger: cfg.Logger, readers: make(map[string]*Reader)}
}

// Open starts a session for bookID at the given viewport size and loads url
// in the background. The returned Reader is usable immediately; its state
// reports loading until the document is open.
func (m *Manager) Open(ctx context.Context, bookID, url string, width, height float64) (*Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid viewport %vx%v", width, height)
	}

	m.mu.Lock()
	if len(m.readers) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w (max %d)", ErrTooManySessions, m.cfg.MaxSessions)
	}
	now := m.cfg.Now()
	id := uuid.New().String()
	r := &Reader{
		ID:        id,
		BookID:    bookID,
		CreatedAt: now,
		lastUsed:  now,
		loaded:    make(chan struct{}),
		Session: viewer.NewSession(viewer.Config{
			Loader:           m.cfg.Loader,
			Bookmarks:        m.cfg.Bookmarks,
			Width:            width,
			Height:           height,
			MobileBreakpoint: m.cfg.MobileBreakpoint,
			ZoomStep:         m.cfg.ZoomStep,
			FitMargin:        m.cfg.FitMargin,
			Logger:           m.logger.With("session_id", id),
		}),
	}
	m.readers[id] = r
	m.loads.Add(1)
	m.mu.Unlock()

	m.logger.Info("reading session opened", "session_id", id, "book_id", bookID)

	go func() {
		defer m.loads.Done()
		// The session outlives the request that created it.
		err := r.Session.Open(context.Background(), bookID, url)
		r.mu.Lock()
		r.loadErr = err
		r.mu.Unlock()
		close(r.loaded)
	}()
	return r, nil
}

// Get returns an open session and marks it used.
func (m *Manager) Get(id string) (*Reader, error) {
	m.mu.Lock()
	r, ok := m.readers[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	r.touch(m.cfg.Now())
	return r, nil
}

// List returns open sessions, oldest first.
func (m *Manager) List() []*Reader {
	m.mu.Lock()
	out := make([]*Reader, 0, len(m.readers))
	for _, r := range m.readers {
		out = append(out, r)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.readers)
}

// Close closes and forgets a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	r, ok := m.readers[id]
	delete(m.readers, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.logger.Info("reading session closed", "session_id", id, "book_id", r.BookID)
	return r.Session.Close()
}

// CloseAll closes every session and waits for background loads to return.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	readers := m.readers
	m.readers = make(map[string]*Reader)
	m.mu.Unlock()

	for id, r := range readers {
		if err := r.Session.Close(); err != nil {
			m.logger.Warn("failed to close reading session", "session_id", id, "error", err)
		}
	}
	m.loads.Wait()
}

// Reap closes sessions idle for longer than IdleTimeout and returns how
// many were closed. A zero IdleTimeout disables reaping.
func (m *Manager) Reap() int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.cfg.Now().Add(-m.cfg.IdleTimeout)

	var stale []string
	m.mu.Lock()
	for id, r := range m.readers {
		if r.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	closed := 0
	for _, id := range stale {
		if err := m.Close(id); err == nil || !errors.Is(err, ErrSessionNotFound) {
			closed++
		}
	}
	if closed > 0 {
		m.logger.Info("reaped idle reading sessions", "count", closed)
	}
	return closed
}

// Run reaps idle sessions every interval until ctx is done, then closes
// every session.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-ticker.C:
			m.Reap()
		}
	}
}
