package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/cv-refiner/internal/events"
)

// DefaultSaveTimeout bounds one checkpoint write
const DefaultSaveTimeout = 5 * time.Second

// persister writes session checkpoints to the repository in the background.
// Bursts of events coalesce into a single save of the latest state.
type persister struct {
	session *Session
	repo    Repository
	logger  *zap.Logger
	timeout time.Duration

	signal chan struct{}
	quit   chan struct{}
	done   chan struct{}

	unsubscribe func()
	stopOnce    sync.Once
}

func newPersister(s *Session, repo Repository, timeout time.Duration, logger *zap.Logger) *persister {
	if timeout <= 0 {
		timeout = DefaultSaveTimeout
	}
	p := &persister{
		session: s,
		repo:    repo,
		logger:  logger.With(zap.String("session_id", s.ID.String())),
		timeout: timeout,
		signal:  make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	p.unsubscribe = s.Store.Bus().Subscribe(p.handle)
	go p.run()
	return p
}

func (p *persister) handle(evt events.Event) {
	switch evt.Type {
	case events.AnalysisReplaced, events.AnalysisPatched, events.AnalysisCleared,
		events.SectionsChanged, events.ScoreHistoryAppended:
		p.notify()
	}
}

// notify schedules a save; it never blocks the publishing goroutine
func (p *persister) notify() {
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.signal:
			p.save()
		case <-p.quit:
			return
		}
	}
}

func (p *persister) save() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	rec := p.session.record()
	if err := p.repo.SaveSession(ctx, rec); err != nil {
		p.logger.Warn("failed to persist session", zap.Error(err))
		return
	}
	p.logger.Debug("session persisted",
		zap.Uint64("generation", rec.Generation),
		zap.Int("history_len", len(rec.ScoreHistory)),
	)
}

// stop detaches from the bus and waits for the worker. With flush set the latest
// state is written once more so nothing queued is lost.
func (p *persister) stop(flush bool) {
	p.stopOnce.Do(func() {
		p.unsubscribe()
		close(p.quit)
		<-p.done
		if flush {
			p.save()
		}
	})
}
