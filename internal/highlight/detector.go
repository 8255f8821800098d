// Package highlight provides the change detector that turns store mutations into a
// time-boxed "recently updated" set of section identifiers.
//
// A detector cycles Idle -> Comparing -> Highlighting -> Idle. While highlighting, further
// changes neither reset the timer nor stack; they are compared once the cycle ends.
package highlight

import (
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/jonathan/cv-refiner/internal/events"
	"github.com/jonathan/cv-refiner/internal/store"
	"github.com/jonathan/cv-refiner/internal/types"
)

// State is the detector's position in a comparison cycle
type State string

const (
	// StateIdle means nothing is highlighted and no comparison is scheduled
	StateIdle State = "idle"
	// StateComparing means a comparison is scheduled or running
	StateComparing State = "comparing"
	// StateHighlighting means the highlight set is live until the cycle timer fires
	StateHighlighting State = "highlighting"
)

// Source provides consistent snapshots of the tracked analysis.
type Source interface {
	Snapshot() store.Snapshot
}

// Config holds detector timings.
type Config struct {
	// SectionDuration is how long changed sections stay highlighted
	SectionDuration time.Duration
	// HeaderDuration is how long a header change stays highlighted
	HeaderDuration time.Duration
	// Debounce is how long mutations must settle before comparing; 0 compares synchronously
	Debounce time.Duration
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		SectionDuration: 3 * time.Second,
		HeaderDuration:  3 * time.Second,
		Debounce:        0,
	}
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock sets the clock timers are scheduled on.
func WithClock(c clock.Clock) Option {
	return func(d *Detector) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithConfig sets the timings.
func WithConfig(cfg Config) Option {
	return func(d *Detector) {
		d.cfg = cfg
	}
}

// baseline is the previous snapshot the next comparison diffs against
type baseline struct {
	lastUpdate time.Time
	contents   map[string]string
	header     *types.CVHeader
}

func newBaseline(snap store.Snapshot) *baseline {
	if !snap.Loaded() {
		return nil
	}
	b := &baseline{lastUpdate: snap.LastUpdate, contents: make(map[string]string, len(snap.Sections))}
	for _, s := range snap.Sections {
		b.contents[s.Name] = s.Content
	}
	if snap.Header != nil {
		header := snap.Header.Clone()
		b.header = &header
	}
	return b
}

// Detector tracks one store and maintains its highlight set.
type Detector struct {
	mu     sync.Mutex
	source Source
	bus    *events.Bus
	clock  clock.Clock
	logger *zap.Logger
	cfg    Config

	state      State
	previous   *baseline
	next       *baseline
	highlights []string
	renames    map[string]string
	pending    bool
	cycle      uint64

	debounceTimer *clock.Timer
	clearTimer    *clock.Timer

	unsubscribe func()
	closed      bool

	// qmu guards the publish queue; it is taken inside mu and never the other way round
	qmu      sync.Mutex
	queue    []events.Event
	draining bool
}

// New creates a detector over source. When bus is non-nil the detector follows store events on it
// and publishes HighlightChanged events back onto it.
func New(source Source, bus *events.Bus, opts ...Option) *Detector {
	d := &Detector{
		source: source,
		bus:    bus,
		clock:  clock.New(),
		logger: zap.NewNop(),
		cfg:    DefaultConfig(),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.previous = newBaseline(source.Snapshot())
	if bus != nil {
		d.unsubscribe = bus.Subscribe(d.handle)
	}
	return d
}

func (d *Detector) handle(evt events.Event) {
	switch evt.Type {
	case events.SectionsChanged:
		d.Notify()
	case events.AnalysisReplaced, events.AnalysisCleared:
		d.Rebase()
	}
}

// Highlights returns the identifiers currently highlighted, in display order with the header last.
func (d *Detector) Highlights() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.highlights...)
}

// Renames returns the renames detected in the current cycle, keyed by new name.
func (d *Detector) Renames() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.renames))
	for k, v := range d.renames {
		out[k] = v
	}
	return out
}

// State returns the current cycle state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Notify tells the detector the tracked analysis changed.
func (d *Detector) Notify() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.state == StateHighlighting {
		d.pending = true
		d.mu.Unlock()
		return
	}
	if d.cfg.Debounce > 0 {
		d.state = StateComparing
		d.stopTimer(&d.debounceTimer)
		token := d.cycle
		d.debounceTimer = d.clock.AfterFunc(d.cfg.Debounce, func() { d.settle(token) })
		d.mu.Unlock()
		return
	}
	highlights, changed := d.compareLocked()
	d.publishAndUnlock(highlights, changed)
}

// settle runs a debounced comparison unless the detector moved on since it was scheduled
func (d *Detector) settle(token uint64) {
	d.mu.Lock()
	if d.closed || token != d.cycle || d.state != StateComparing {
		d.mu.Unlock()
		return
	}
	d.debounceTimer = nil
	highlights, changed := d.compareLocked()
	d.publishAndUnlock(highlights, changed)
}

// compareLocked diffs the current snapshot against the baseline and enters Highlighting
// when anything changed.
func (d *Detector) compareLocked() ([]string, bool) {
	d.state = StateComparing
	snap := d.source.Snapshot()
	current := newBaseline(snap)

	if d.previous == nil || current == nil {
		d.previous = current
		d.state = StateIdle
		return nil, false
	}
	if current.lastUpdate.Before(d.previous.lastUpdate) {
		d.state = StateIdle
		return nil, false
	}

	var (
		highlights    []string
		renames       = make(map[string]string)
		sectionChange bool
	)
	previousByContent := make(map[string]string, len(d.previous.contents))
	for name, content := range d.previous.contents {
		previousByContent[content] = name
	}

	for _, section := range snap.Sections {
		before, existed := d.previous.contents[section.Name]
		switch {
		case existed:
			if strings.TrimSpace(before) != strings.TrimSpace(section.Content) {
				highlights = append(highlights, section.Name)
			}
		default:
			if oldName, ok := previousByContent[section.Content]; ok {
				renames[section.Name] = oldName
			}
			highlights = append(highlights, section.Name)
		}
	}
	if len(highlights) > 0 {
		sectionChange = true
	}

	headerChange := !headersEqual(d.previous.header, current.header)
	if headerChange {
		highlights = append(highlights, types.HeaderIdentifier)
	}

	if len(highlights) == 0 {
		d.previous = current
		d.state = StateIdle
		return nil, false
	}

	duration := time.Duration(0)
	if sectionChange && d.cfg.SectionDuration > duration {
		duration = d.cfg.SectionDuration
	}
	if headerChange && d.cfg.HeaderDuration > duration {
		duration = d.cfg.HeaderDuration
	}

	d.cycle++
	token := d.cycle
	d.state = StateHighlighting
	d.highlights = highlights
	d.renames = renames
	d.next = current
	d.clearTimer = d.clock.AfterFunc(duration, func() { d.expire(token) })

	d.logger.Debug("highlight cycle started",
		zap.Strings("highlights", highlights),
		zap.Int("renames", len(renames)),
		zap.Duration("duration", duration),
	)
	return append([]string(nil), highlights...), true
}

// expire ends the cycle identified by token when its timer fires
func (d *Detector) expire(token uint64) {
	d.mu.Lock()
	if d.closed || token != d.cycle || d.state != StateHighlighting {
		d.mu.Unlock()
		return
	}
	d.clearTimer = nil
	d.finish()
}

// Clear ends the current highlight cycle immediately.
func (d *Detector) Clear() {
	d.mu.Lock()
	if d.closed || d.state != StateHighlighting {
		d.mu.Unlock()
		return
	}
	d.stopTimer(&d.clearTimer)
	d.finish()
}

// finish returns to Idle, installs the snapshot that was highlighted as the new baseline and
// runs the comparison deferred while highlighting. Called with d.mu held; releases it.
func (d *Detector) finish() {
	d.cycle++
	d.state = StateIdle
	d.highlights = nil
	d.renames = nil
	if d.next != nil {
		d.previous = d.next
		d.next = nil
	}

	if !d.pending {
		d.publishAndUnlock(nil, true)
		return
	}
	d.pending = false
	highlights, _ := d.compareLocked()
	d.publishAndUnlock(highlights, true)
}

// Rebase adopts the current snapshot as the baseline without highlighting anything.
// It is used when the whole analysis is replaced or cleared.
func (d *Detector) Rebase() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	wasHighlighting := len(d.highlights) > 0
	d.stopTimer(&d.debounceTimer)
	d.stopTimer(&d.clearTimer)
	d.cycle++
	d.state = StateIdle
	d.pending = false
	d.highlights = nil
	d.renames = nil
	d.next = nil
	d.previous = newBaseline(d.source.Snapshot())
	d.publishAndUnlock(nil, wasHighlighting)
}

// Close stops all timers and detaches from the bus.
func (d *Detector) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.stopTimer(&d.debounceTimer)
	d.stopTimer(&d.clearTimer)
	unsubscribe := d.unsubscribe
	d.unsubscribe = nil
	d.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (d *Detector) stopTimer(timer **clock.Timer) {
	if *timer != nil {
		(*timer).Stop()
		*timer = nil
	}
}

// publishAndUnlock queues a HighlightChanged event when changed, releases d.mu and delivers the
// queue. Events are queued under d.mu, so subscribers see them in the order the cycle moved.
// Must be called with d.mu held.
func (d *Detector) publishAndUnlock(highlights []string, changed bool) {
	if changed && d.bus != nil {
		d.qmu.Lock()
		d.queue = append(d.queue, events.Event{
			Type:       events.HighlightChanged,
			At:         d.clock.Now(),
			Highlights: highlights,
		})
		d.qmu.Unlock()
	}
	d.mu.Unlock()
	d.drain()
}

// drain delivers queued events from one goroutine at a time
func (d *Detector) drain() {
	d.qmu.Lock()
	if d.draining {
		d.qmu.Unlock()
		return
	}
	d.draining = true
	for len(d.queue) > 0 {
		batch := d.queue
		d.queue = nil
		d.qmu.Unlock()
		d.bus.Publish(batch...)
		d.qmu.Lock()
	}
	d.draining = false
	d.qmu.Unlock()
}

func headersEqual(a, b *types.CVHeader) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
