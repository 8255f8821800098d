package highlight

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-refiner/internal/events"
	"github.com/jonathan/cv-refiner/internal/store"
	"github.com/jonathan/cv-refiner/internal/types"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

func comprehensive() *types.AnalysisResult {
	return &types.AnalysisResult{
		Comprehensive: &types.ComprehensiveSchema{
			OriginalCVSections: []types.OriginalCVSection{
				{SectionName: "HEADER", Content: "X", Order: 1},
				{SectionName: "Experience", Content: "5 years", Order: 2},
				{SectionName: "Skills", Content: "Go", Order: 3},
			},
			CVHeader:      types.CVHeader{Name: "X"},
			SectionScores: map[string]int{"Experience": 70, "Skills": 80},
		},
	}
}

type fixture struct {
	store    *store.Store
	detector *Detector
	clock    *clock.Mock

	mu         sync.Mutex
	highlights [][]string
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	mock := clock.NewMock()
	bus := events.NewBus()
	st := store.New(store.WithClock(mock), store.WithBus(bus))
	f := &fixture{store: st, clock: mock}
	bus.Subscribe(func(e events.Event) {
		if e.Type == events.HighlightChanged {
			f.mu.Lock()
			f.highlights = append(f.highlights, e.Highlights)
			f.mu.Unlock()
		}
	})
	f.detector = New(st, bus, WithClock(mock), WithConfig(cfg))
	t.Cleanup(f.detector.Close)
	require.NoError(t, st.Ingest(comprehensive()))
	return f
}

// published returns the highlight sets delivered on the bus so far
func (f *fixture) published() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.highlights...)
}

func (f *fixture) empty() bool {
	return len(f.detector.Highlights()) == 0 && f.detector.State() == StateIdle
}

func TestDetector_HighlightLifecycle(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	assert.Empty(t, f.detector.Highlights(), "ingestion rebases without highlighting")

	require.NoError(t, f.store.UpdateSectionContent("Skills", "Go, Rust"))

	assert.Equal(t, []string{"Skills"}, f.detector.Highlights())
	assert.Equal(t, StateHighlighting, f.detector.State())

	f.clock.Add(2 * time.Second)
	assert.Equal(t, []string{"Skills"}, f.detector.Highlights())

	f.clock.Add(time.Second)
	assert.Eventually(t, f.empty, waitFor, tick)
}

func TestDetector_ExplicitClear(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.NoError(t, f.store.UpdateSectionContent("Skills", "Go, Rust"))
	require.NotEmpty(t, f.detector.Highlights())

	f.detector.Clear()

	assert.Empty(t, f.detector.Highlights())
	assert.Equal(t, StateIdle, f.detector.State())
	assert.Equal(t, [][]string{{"Skills"}, nil}, f.published())
}

func TestDetector_WhitespaceOnlyChangeIgnored(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	require.NoError(t, f.store.UpdateSectionContent("Skills", "  Go\n"))

	assert.Empty(t, f.detector.Highlights())
	assert.Equal(t, StateIdle, f.detector.State())
}

func TestDetector_ChangesWhileHighlightingAreDeferred(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.NoError(t, f.store.UpdateSectionContent("Skills", "Go, Rust"))

	f.clock.Add(2 * time.Second)
	require.NoError(t, f.store.UpdateSectionContent("Experience", "7 years"))
	assert.Equal(t, []string{"Skills"}, f.detector.Highlights(), "re-entrant change does not stack")

	f.clock.Add(time.Second)
	assert.Eventually(t, func() bool {
		got := f.detector.Highlights()
		return len(got) == 1 && got[0] == "Experience"
	}, waitFor, tick, "deferred change is compared after the cycle ends")

	f.clock.Add(3 * time.Second)
	assert.Eventually(t, f.empty, waitFor, tick)
}

func TestDetector_PublishesInCycleOrder(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.NoError(t, f.store.UpdateSectionContent("Skills", "Go, Rust"))
	require.NoError(t, f.store.UpdateSectionContent("Experience", "7 years"))

	f.clock.Add(3 * time.Second)
	assert.Eventually(t, func() bool {
		return len(f.detector.Highlights()) == 1 && f.detector.Highlights()[0] == "Experience"
	}, waitFor, tick)

	f.detector.Clear()
	require.NoError(t, f.store.UpdateSectionContent("Skills", "Go"))

	want := [][]string{{"Skills"}, {"Experience"}, nil, {"Skills"}}
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, f.published())
	}, waitFor, tick, "the last event published matches the live highlight set")
	assert.Equal(t, []string{"Skills"}, f.detector.Highlights())
}

func TestDetector_ClassifiesRenamesAndAdditions(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	_, err := f.store.ApplyChatUpdate(types.ChatUpdate{
		Renames: map[string]string{"Skills": "Technical Skills"},
		Updates: types.SectionUpdates{{SectionName: "Publications", Content: "Paper A"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Technical Skills", "Publications"}, f.detector.Highlights())
	assert.Equal(t, map[string]string{"Technical Skills": "Skills"}, f.detector.Renames())
}

func TestDetector_HeaderChange(t *testing.T) {
	f := newFixture(t, Config{SectionDuration: time.Second, HeaderDuration: 3 * time.Second})

	require.NoError(t, f.store.UpdateSectionContent("contact_info", "Email: a@b.com"))
	assert.Equal(t, []string{types.HeaderIdentifier}, f.detector.Highlights())

	f.clock.Add(time.Second)
	assert.Never(t, f.empty, 50*time.Millisecond, tick, "header highlight lasts its own duration")

	f.clock.Add(2 * time.Second)
	assert.Eventually(t, f.empty, waitFor, tick)
}

func TestDetector_ReingestRebases(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.NoError(t, f.store.UpdateSectionContent("Skills", "Go, Rust"))
	require.NotEmpty(t, f.detector.Highlights())

	result := comprehensive()
	result.Comprehensive.OriginalCVSections[2].Content = "Completely new"
	require.NoError(t, f.store.Ingest(result))

	assert.Empty(t, f.detector.Highlights())
	assert.Equal(t, StateIdle, f.detector.State())

	f.store.Reset()
	assert.Empty(t, f.detector.Highlights())
}

func TestDetector_Debounce(t *testing.T) {
	f := newFixture(t, Config{SectionDuration: 3 * time.Second, HeaderDuration: 3 * time.Second, Debounce: 500 * time.Millisecond})

	require.NoError(t, f.store.UpdateSectionContent("Skills", "Go, Rust"))
	f.clock.Add(300 * time.Millisecond)
	require.NoError(t, f.store.UpdateSectionContent("Experience", "7 years"))

	assert.Equal(t, StateComparing, f.detector.State())
	assert.Empty(t, f.detector.Highlights())

	f.clock.Add(300 * time.Millisecond)
	assert.Never(t, func() bool { return len(f.detector.Highlights()) > 0 }, 50*time.Millisecond, tick,
		"debounce window restarts on every mutation")

	f.clock.Add(200 * time.Millisecond)
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"Experience", "Skills"}, f.detector.Highlights())
	}, waitFor, tick)
}

func TestDetector_ClearThenNewCycleKeepsItsOwnTimer(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.NoError(t, f.store.UpdateSectionContent("Skills", "Go, Rust"))

	f.clock.Add(time.Second)
	f.detector.Clear()
	require.NoError(t, f.store.UpdateSectionContent("Experience", "7 years"))
	require.Equal(t, []string{"Experience"}, f.detector.Highlights())

	f.clock.Add(2 * time.Second)
	assert.Never(t, f.empty, 50*time.Millisecond, tick, "the first cycle's timer must not clear the second")

	f.clock.Add(time.Second)
	assert.Eventually(t, f.empty, waitFor, tick)
}

func TestDetector_CloseStopsTracking(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.detector.Close()

	require.NoError(t, f.store.UpdateSectionContent("Skills", "Go, Rust"))
	assert.Empty(t, f.detector.Highlights())

	f.detector.Close()
}

func TestDetector_WithoutBus(t *testing.T) {
	mock := clock.NewMock()
	st := store.New(store.WithClock(mock))
	d := New(st, nil, WithClock(mock))
	defer d.Close()

	require.NoError(t, st.Ingest(comprehensive()))
	d.Rebase()
	require.NoError(t, st.UpdateSectionContent("Experience", "7 years"))
	d.Notify()

	assert.Equal(t, []string{"Experience"}, d.Highlights())
}
