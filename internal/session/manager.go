package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"itpulse/internal/assist"
	"itpulse/internal/composer"
	"itpulse/pkg/models"
)

// Manager owns the live sessions. A session exists from Start until End.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	seed     []models.Article
	improver assist.Improver
	now      func() time.Time

	// OnStart and OnEnd observe the lifecycle, e.g. for metrics.
	OnStart func(*Session)
	OnEnd   func(*Session)
}

type ManagerOption func(*Manager)

func WithImprover(i assist.Improver) ManagerOption {
	return func(m *Manager) { m.improver = i }
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager keeps a private copy of the seed articles; every session
// starts from its own copy of them.
func NewManager(seed []models.Article, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		seed:     lo.Map(seed, func(a models.Article, _ int) models.Article { return a.Clone() }),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates a session with the given initial theme.
func (m *Manager) Start(theme string) *Session {
	seq := composer.NewTimeSequencer(m.now)
	opts := []composer.Option{composer.WithSequencer(seq), composer.WithClock(m.now)}
	if m.improver != nil {
		opts = append(opts, composer.WithImprover(m.improver))
	}

	s := &Session{
		ID:        uuid.NewString(),
		StartedAt: m.now(),
		theme:     theme,
		articles:  lo.Map(m.seed, func(a models.Article, _ int) models.Article { return a.Clone() }),
		newDraft:  func() *composer.Composer { return composer.New(opts...) },
		newID:     uuid.NewString,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	log.WithFields(log.Fields{"session": s.ID, "sessions": count}).Info("Session started")
	if m.OnStart != nil {
		m.OnStart(s)
	}
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// End tears the session down. Ending an unknown session is not an error.
func (m *Manager) End(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return
	}
	log.WithFields(log.Fields{"session": id, "sessions": count}).Info("Session ended")
	if m.OnEnd != nil {
		m.OnEnd(s)
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
