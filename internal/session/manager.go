// Package session holds per-conversation routing state with time-based
// eviction.
package session

import (
	"sync"
	"time"

	"github.com/civica/ventanilla/internal/domain"
	"github.com/civica/ventanilla/internal/logging"
)

// Options controls session lifecycle.
type Options struct {
	TTL           time.Duration // idle threshold for eviction; default 1h
	SweepInterval time.Duration // background sweep period; default 5m
	HistoryLength int           // max retained exchanges per session; default 40
	Clock         func() time.Time
}

// Manager owns the session map. Turns for one conversation are processed
// sequentially by the orchestrator; the lock only guards against the sweep
// and against turns of different conversations.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session

	ttl        time.Duration
	sweepEvery time.Duration
	historyLen int
	now        func() time.Time
	log        *logging.Logger

	stop chan struct{}
	once sync.Once
}

// NewManager creates a session manager. Zero-value options take the defaults
// documented on Options.
func NewManager(opts Options, log *logging.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Minute
	}
	if opts.HistoryLength <= 0 {
		opts.HistoryLength = 40
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Manager{
		sessions:   make(map[string]*domain.Session),
		ttl:        opts.TTL,
		sweepEvery: opts.SweepInterval,
		historyLen: opts.HistoryLength,
		now:        opts.Clock,
		log:        log.Sub("session"),
		stop:       make(chan struct{}),
	}
}

// Get returns the session for a conversation id, creating an empty one on
// first access. Every access refreshes the last-access timestamp.
func (m *Manager) Get(conversationID string) *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[conversationID]
	if !ok {
		s = &domain.Session{
			ConversationID: conversationID,
			LastClass:      domain.ClassificationUndecided,
		}
		m.sessions[conversationID] = s
		m.log.Debug().Str("conversation", conversationID).Msg("session created")
	}
	s.LastAccess = m.now()
	return s
}

// Append records an exchange on a session, bounded by the history cap.
func (m *Manager) Append(conversationID string, ex domain.Exchange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[conversationID]; ok {
		s.Append(ex, m.historyLen)
	}
}

// Sweep evicts every session idle longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if s.LastAccess.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.log.Info().Int("evicted", evicted).Int("remaining", len(m.sessions)).Msg("session sweep")
	}
	return evicted
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start launches the background sweep loop. It runs until Stop is called.
func (m *Manager) Start() {
	go func() {
		ticker := time.NewTicker(m.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop terminates the background sweep loop.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.stop) })
}
