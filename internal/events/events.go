// Package events provides the synchronous, ordered notification bus shared by the store,
// the highlight detector, the SSE stream and the persistence subscriber.
package events

import (
	"sync"
	"time"

	"github.com/jonathan/cv-refiner/internal/types"
)

// Type names an event
type Type string

const (
	// AnalysisReplaced fires when a whole result is ingested
	AnalysisReplaced Type = "analysis_replaced"
	// AnalysisPatched fires after a shallow top-level merge
	AnalysisPatched Type = "analysis_patched"
	// AnalysisCleared fires when the store is reset
	AnalysisCleared Type = "analysis_cleared"
	// SectionsChanged fires after any section or header mutation
	SectionsChanged Type = "sections_changed"
	// ScoreHistoryAppended fires after a history entry is recorded
	ScoreHistoryAppended Type = "score_history_appended"
	// HighlightChanged fires when the highlight set changes
	HighlightChanged Type = "highlight_changed"
	// EditingChanged fires when the section being edited changes
	EditingChanged Type = "editing_changed"
)

// Event is one notification. Only the fields relevant to Type are set.
type Event struct {
	Type       Type                     `json:"type"`
	Generation uint64                   `json:"generation"`
	At         time.Time                `json:"at"`
	Sections   []string                 `json:"sections,omitempty"`
	Highlights []string                 `json:"highlights,omitempty"`
	Entry      *types.ScoreHistoryEntry `json:"entry,omitempty"`
	Editing    string                   `json:"editing,omitempty"`
}

// Handler receives events. Handlers run synchronously on the publishing goroutine and should not block.
type Handler func(Event)

// Bus fans events out to subscribers in subscription order.
type Bus struct {
	mu       sync.RWMutex
	next     int
	order    []int
	handlers map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.handlers[id] = h
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers each event to every subscriber, in order.
func (b *Bus) Publish(evts ...Event) {
	if len(evts) == 0 {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, evt := range evts {
		for _, h := range handlers {
			h(evt)
		}
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}
