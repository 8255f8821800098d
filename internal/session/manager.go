package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/jonathan/cv-refiner/internal/events"
	"github.com/jonathan/cv-refiner/internal/highlight"
	"github.com/jonathan/cv-refiner/internal/ingestion"
	"github.com/jonathan/cv-refiner/internal/store"
)

// Config holds session lifecycle settings.
type Config struct {
	// TTL is how long an untouched session stays live
	TTL time.Duration
	// CleanupInterval is how often expired sessions are torn down
	CleanupInterval time.Duration
	// SaveTimeout bounds one checkpoint write
	SaveTimeout time.Duration
	// Highlight holds the detector timings of new sessions
	Highlight highlight.Config
}

// DefaultConfig returns a one hour TTL swept every ten minutes.
func DefaultConfig() Config {
	return Config{
		TTL:             time.Hour,
		CleanupInterval: 10 * time.Minute,
		SaveTimeout:     DefaultSaveTimeout,
		Highlight:       highlight.DefaultConfig(),
	}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRepository persists sessions so they survive eviction and restarts.
func WithRepository(repo Repository) ManagerOption {
	return func(m *Manager) {
		m.repo = repo
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets the clock stores and detectors run on.
func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// Manager is the registry of live sessions. Sessions expire after the configured TTL
// without access; expiry and deletion tear the session down.
type Manager struct {
	cache  *cache.Cache
	cfg    Config
	repo   Repository
	clock  clock.Clock
	logger *zap.Logger

	// mu serializes restores so one ID never has two live sessions
	mu     sync.Mutex
	closed atomic.Bool
}

// NewManager creates a manager. Non-positive durations fall back to DefaultConfig.
func NewManager(cfg Config, opts ...ManagerOption) *Manager {
	defaults := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaults.SaveTimeout
	}
	if cfg.Highlight == (highlight.Config{}) {
		cfg.Highlight = defaults.Highlight
	}

	m := &Manager{
		cache:  cache.New(cfg.TTL, cfg.CleanupInterval),
		cfg:    cfg,
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache.OnEvicted(m.evicted)
	return m
}

func (m *Manager) evicted(key string, value interface{}) {
	s, ok := value.(*Session)
	if !ok {
		return
	}
	s.close(true)
	m.logger.Info("session closed", zap.String("session_id", key))
}

// build wires a store and detector over a fresh bus
func (m *Manager) build(id uuid.UUID, createdAt time.Time) *Session {
	logger := m.logger.With(zap.String("session_id", id.String()))
	bus := events.NewBus()
	st := store.New(store.WithBus(bus), store.WithClock(m.clock), store.WithLogger(logger))
	return &Session{
		ID:        id,
		CreatedAt: createdAt,
		Store:     st,
		Detector: highlight.New(st, bus,
			highlight.WithClock(m.clock),
			highlight.WithLogger(logger),
			highlight.WithConfig(m.cfg.Highlight),
		),
	}
}

// Create starts an empty session. With a repository the session is persisted before it is returned.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	s := m.build(uuid.New(), m.clock.Now().UTC())
	if m.repo != nil {
		if err := m.repo.SaveSession(ctx, s.record()); err != nil {
			s.close(false)
			return nil, fmt.Errorf("failed to persist new session: %w", err)
		}
		s.persister = newPersister(s, m.repo, m.cfg.SaveTimeout, m.logger)
	}
	m.cache.Set(s.ID.String(), s, cache.DefaultExpiration)
	m.logger.Info("session created", zap.String("session_id", s.ID.String()))
	return s, nil
}

// Get returns the live session with id and refreshes its TTL. A session that is no longer
// live is restored from the repository when one is configured.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	key := id.String()
	if s, ok := m.lookup(key); ok {
		return s, nil
	}
	if m.repo == nil {
		return nil, ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.lookup(key); ok {
		return s, nil
	}
	// An expired entry the janitor has not collected yet is torn down before its state is reloaded
	m.cache.Delete(key)

	s, err := m.restore(ctx, id)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, s, cache.DefaultExpiration)
	m.logger.Info("session restored",
		zap.String("session_id", key),
		zap.Int("history_len", len(s.Store.ScoreHistory())),
	)
	return s, nil
}

func (m *Manager) lookup(key string) (*Session, bool) {
	x, found := m.cache.Get(key)
	if !found {
		return nil, false
	}
	s := x.(*Session)
	if s.closed.Load() {
		return nil, false
	}
	m.cache.Set(key, s, cache.DefaultExpiration)
	return s, true
}

func (m *Manager) restore(ctx context.Context, id uuid.UUID) (*Session, error) {
	rec, err := m.repo.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrSessionNotFound
	}

	s := m.build(rec.ID, rec.CreatedAt)
	if rec.Analysis != nil {
		if err := s.Store.Restore(rec.Analysis, rec.ScoreHistory); err != nil {
			s.close(false)
			return nil, fmt.Errorf("failed to restore session %s: %w", id, err)
		}
	}
	chat, err := m.repo.LoadChatMessages(ctx, id)
	if err != nil {
		s.close(false)
		return nil, err
	}
	s.chat = chat
	if len(rec.Metadata) > 0 {
		var md ingestion.Metadata
		if err := json.Unmarshal(rec.Metadata, &md); err != nil {
			m.logger.Warn("ignoring unreadable session metadata", zap.String("session_id", id.String()), zap.Error(err))
		} else {
			s.metadata = &md
		}
	}
	s.persister = newPersister(s, m.repo, m.cfg.SaveTimeout, m.logger)
	return s, nil
}

// Delete tears the session down and removes its persisted state.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	key := id.String()
	_, live := m.cache.Get(key)
	m.cache.Delete(key)

	if m.repo == nil {
		if !live {
			return ErrSessionNotFound
		}
		return nil
	}
	if !live {
		rec, err := m.repo.LoadSession(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrSessionNotFound
		}
	}
	if err := m.repo.DeleteSession(ctx, id); err != nil {
		return err
	}
	m.logger.Info("session deleted", zap.String("session_id", key))
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.cache.ItemCount()
}

// Close tears down every live session, flushing its state, and rejects further use.
func (m *Manager) Close() {
	if m.closed.Swap(true) {
		return
	}
	m.cache.DeleteExpired()
	for key := range m.cache.Items() {
		m.cache.Delete(key)
	}
}
