// Package store provides the CV analysis state store: the single owner of a session's
// AnalysisResult and score history.
//
// Every mutation runs under one lock against a deep copy of the current result and is
// committed atomically, so observers never see a partially applied batch. Events are
// published after the lock is released, in commit order.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/jonathan/cv-refiner/internal/events"
	"github.com/jonathan/cv-refiner/internal/scoring"
	"github.com/jonathan/cv-refiner/internal/types"
)

// Store owns the current analysis of one session.
type Store struct {
	mu sync.Mutex

	// qmu guards the publish queue; it is taken inside mu and never the other way round
	qmu      sync.Mutex
	queue    []events.Event
	draining bool

	result     *types.AnalysisResult
	history    *scoring.History
	editing    string
	generation uint64
	lastUpdate time.Time

	clock  clock.Clock
	logger *zap.Logger
	bus    *events.Bus
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used for history and update timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithBus sets the bus events are published on.
func WithBus(bus *events.Bus) Option {
	return func(s *Store) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		history: scoring.NewHistory(),
		clock:   clock.New(),
		logger:  zap.NewNop(),
		bus:     events.NewBus(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bus returns the bus this store publishes on.
func (s *Store) Bus() *events.Bus {
	return s.bus
}

// Current returns a deep copy of the loaded result, or nil when nothing is loaded.
func (s *Store) Current() *types.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Clone()
}

// Loaded reports whether a result is loaded.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result != nil
}

// ScoreHistory returns the score history in chronological order.
func (s *Store) ScoreHistory() []types.ScoreHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// Generation returns the current session generation. It changes whenever the loaded analysis is
// replaced or cleared, so results computed against an earlier analysis can be rejected.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// LastUpdate returns the timestamp of the latest section or header mutation.
// It is strictly increasing across mutations.
func (s *Store) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}

// Editing returns the name of the section currently being edited, if any.
func (s *Store) Editing() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

// SetEditing marks name as the section being edited. An empty name clears the marker.
func (s *Store) SetEditing(name string) {
	s.mu.Lock()
	if s.editing == name {
		s.mu.Unlock()
		return
	}
	s.editing = name
	evt := events.Event{Type: events.EditingChanged, Generation: s.generation, At: s.clock.Now(), Editing: name}
	s.publishAndUnlock(evt)
}

// Ingest replaces the whole result and records an "Initial CV Analysis" history entry.
func (s *Store) Ingest(result *types.AnalysisResult) error {
	return s.ingest(nil, result)
}

// IngestAt is Ingest guarded against a Reset or another ingest that happened after gen was captured.
func (s *Store) IngestAt(gen uint64, result *types.AnalysisResult) error {
	return s.ingest(&gen, result)
}

func (s *Store) ingest(gen *uint64, result *types.AnalysisResult) error {
	if err := result.Validate(); err != nil {
		return err
	}

	loaded := result.Clone()
	loaded.SetOverallScore(loaded.OverallScoreValue())
	if loaded.Comprehensive != nil && loaded.Comprehensive.SectionScores == nil {
		loaded.Comprehensive.SectionScores = make(map[string]int)
	}

	s.mu.Lock()
	if gen != nil && *gen != s.generation {
		s.mu.Unlock()
		return ErrStaleGeneration
	}

	now := s.clock.Now()
	s.generation++
	s.result = loaded
	s.editing = ""
	s.stampLocked(now)
	entry := s.history.Append(now, loaded.OverallScoreValue(), loaded.SectionScores(), types.InitialAnalysisMessage)

	s.logger.Info("analysis ingested",
		zap.String("schema", string(loaded.Kind())),
		zap.Int("overall_score", entry.OverallScore),
		zap.Int("history_len", s.history.Len()),
	)

	s.publishAndUnlock(
		events.Event{Type: events.AnalysisReplaced, Generation: s.generation, At: now},
		events.Event{Type: events.ScoreHistoryAppended, Generation: s.generation, At: now, Entry: &entry},
	)
	return nil
}

// Restore installs a previously persisted result and history without recording a new entry.
func (s *Store) Restore(result *types.AnalysisResult, history []types.ScoreHistoryEntry) error {
	if err := result.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	now := s.clock.Now()
	s.generation++
	s.result = result.Clone()
	s.history.Restore(history)
	s.editing = ""
	s.stampLocked(now)
	s.publishAndUnlock(events.Event{Type: events.AnalysisReplaced, Generation: s.generation, At: now})
	return nil
}

// Reset drops the loaded result and history and starts a new generation.
// In-flight results captured against an earlier generation are rejected by the *At methods.
func (s *Store) Reset() {
	s.mu.Lock()
	s.result = nil
	s.history.Reset()
	s.editing = ""
	s.generation++
	gen := s.generation
	s.logger.Info("store reset", zap.Uint64("generation", gen))
	s.publishAndUnlock(events.Event{Type: events.AnalysisCleared, Generation: gen, At: s.clock.Now()})
}

// update runs fn against a working copy of the loaded result and commits it when fn succeeds.
// With no result loaded, or when fn reports a schema mismatch, the call logs a warning and is a no-op.
func (s *Store) update(op string, gen *uint64, fn func(t *tx) error) error {
	s.mu.Lock()
	if gen != nil && *gen != s.generation {
		s.mu.Unlock()
		return ErrStaleGeneration
	}
	if s.result == nil {
		s.mu.Unlock()
		s.logger.Warn("no analysis loaded, ignoring update", zap.String("operation", op))
		return nil
	}

	t := &tx{
		result:  s.result.Clone(),
		editing: s.editing,
		logger:  s.logger.With(zap.String("operation", op)),
	}
	if err := fn(t); err != nil {
		kind := s.result.Kind()
		s.mu.Unlock()
		if errors.Is(err, errSchemaMismatch) {
			s.logger.Warn("operation does not apply to loaded schema",
				zap.String("operation", op),
				zap.String("schema", string(kind)),
			)
			return nil
		}
		return err
	}

	evts := s.commitLocked(t)
	s.publishAndUnlock(evts...)
	return nil
}

// commitLocked installs the working copy and returns the events it produced.
func (s *Store) commitLocked(t *tx) []events.Event {
	now := s.clock.Now()
	s.result = t.result

	var evts []events.Event
	if t.patched {
		evts = append(evts, events.Event{Type: events.AnalysisPatched, Generation: s.generation, At: now})
	}
	if len(t.changed) > 0 {
		s.stampLocked(now)
		evts = append(evts, events.Event{
			Type:       events.SectionsChanged,
			Generation: s.generation,
			At:         now,
			Sections:   append([]string(nil), t.changed...),
		})
	}
	if t.historyMessage != "" {
		entry := s.history.Append(now, t.result.OverallScoreValue(), t.result.SectionScores(), t.historyMessage)
		evts = append(evts, events.Event{Type: events.ScoreHistoryAppended, Generation: s.generation, At: now, Entry: &entry})
	}
	if t.editing != s.editing {
		s.editing = t.editing
		evts = append(evts, events.Event{Type: events.EditingChanged, Generation: s.generation, At: now, Editing: t.editing})
	}
	return evts
}

// stampLocked advances lastUpdate, nudging it forward when the clock has not moved.
func (s *Store) stampLocked(now time.Time) {
	if !now.After(s.lastUpdate) {
		now = s.lastUpdate.Add(time.Nanosecond)
	}
	s.lastUpdate = now
}

// publishAndUnlock queues evts in commit order, releases the state lock and delivers the queue.
// Handlers therefore run without the state lock held and may read the store.
// Must be called with s.mu held.
func (s *Store) publishAndUnlock(evts ...events.Event) {
	s.qmu.Lock()
	s.queue = append(s.queue, evts...)
	s.qmu.Unlock()
	s.mu.Unlock()
	s.drain()
}

// drain delivers queued events. Only one goroutine drains at a time; events queued while
// another goroutine is draining are delivered by that goroutine.
func (s *Store) drain() {
	s.qmu.Lock()
	if s.draining {
		s.qmu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		batch := s.queue
		s.queue = nil
		s.qmu.Unlock()
		s.bus.Publish(batch...)
		s.qmu.Lock()
	}
	s.draining = false
	s.qmu.Unlock()
}
