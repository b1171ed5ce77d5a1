package summarize

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nomcom-feedback/internal/entities"
	"github.com/jonathan/nomcom-feedback/internal/feedback"
	"github.com/jonathan/nomcom-feedback/internal/runstate"
	"github.com/jonathan/nomcom-feedback/internal/store"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

type stubExtractor struct {
	mu        sync.Mutex
	snapshots map[string]*types.FeedbackSnapshot
	calls     int
}

func (s *stubExtractor) Extract(_ context.Context, _ *runstate.State, nomineeID string, _ feedback.Flags) (*types.FeedbackSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	snap, ok := s.snapshots[nomineeID]
	if !ok {
		return nil, &entities.NotFoundError{Kind: "nominee", ID: nomineeID}
	}
	return snap, nil
}

type stubEntities struct {
	positions  map[string]types.Position
	byPosition map[string][]types.Nominee
}

func (s *stubEntities) Position(_ context.Context, _ *runstate.State, shortName string, _ bool) (*types.Position, error) {
	p, ok := s.positions[shortName]
	if !ok {
		return nil, &entities.NotFoundError{Kind: "position", ID: shortName}
	}
	return &p, nil
}

func (s *stubEntities) NomineesByPosition(context.Context, *runstate.State, bool) (map[string][]types.Nominee, error) {
	return s.byPosition, nil
}

// countingBackend records every request; a non-nil err makes every call fail
type countingBackend struct {
	mu       sync.Mutex
	requests []Request
	err      error
}

func (b *countingBackend) Summarize(_ context.Context, req Request) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.err != nil {
		return "", b.err
	}
	return "<p>summary of " + req.Position.ShortName + "</p>", nil
}

func (b *countingBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func fixtures() (*stubExtractor, *stubEntities) {
	ext := &stubExtractor{snapshots: map[string]*types.FeedbackSnapshot{
		"42": {
			NomineeID: "42",
			Person:    types.PersonProfile{ID: "7", Name: "Ada Lovelace"},
			FeedbackByPosition: map[string][]types.FeedbackRecord{
				"ART": {
					{AuthorName: "Bob Builder", Text: "Ada is an excellent reviewer."},
					{AuthorName: "Ada Lovelace", Text: "I will focus on review latency.", Subject: "My priorities"},
				},
				"IAB": {
					{AuthorName: "Ada Lovelace", Text: "Only self feedback here.", Subject: "Questionnaire response"},
				},
			},
		},
		"43": {
			NomineeID: "43",
			Person:    types.PersonProfile{ID: "8", Name: "Grace Hopper"},
			FeedbackByPosition: map[string][]types.FeedbackRecord{
				"IAB": {{AuthorName: "Carol", Text: "Grace knows routing."}},
			},
		},
	}}
	ents := &stubEntities{
		positions: map[string]types.Position{
			"ART": {ShortName: "ART", FullName: "Applications and Real Time (ART) AD"},
			"IAB": {ShortName: "IAB", FullName: "Internet Architecture Board, Member"},
			"SEC": {ShortName: "SEC", FullName: "Security (SEC) AD"},
		},
		byPosition: map[string][]types.Nominee{
			"ART": {{ID: "42"}},
			"IAB": {{ID: "42"}, {ID: "43"}},
		},
	}
	return ext, ents
}

func newSummarizer(backend Backend, artifacts store.Store) (*Summarizer, *stubExtractor) {
	ext, ents := fixtures()
	s := New(ext, ents, backend, artifacts, Options{
		Enabled:      true,
		SelectCounts: map[string]int{"IAB": 6},
	})
	return s, ext
}

func TestSummarizeNomineePosition_GeneratesAndCaches(t *testing.T) {
	backend := &countingBackend{}
	artifacts := store.NewMemoryStore()
	s, _ := newSummarizer(backend, artifacts)
	ctx := context.Background()

	summary, err := s.SummarizeNomineePosition(ctx, runstate.New(), "42", "ART", Flags{})
	require.NoError(t, err)
	assert.Equal(t, types.SummaryGenerated, summary.Kind)
	assert.True(t, summary.Succeeded)
	assert.Equal(t, types.SummaryScope{NomineeID: "42", Position: "ART"}, summary.Scope)
	require.Equal(t, 1, backend.calls())

	req := backend.requests[0]
	assert.Equal(t, KindSynopsis, req.Strategy.Kind)
	assert.Equal(t, "Ada Lovelace", req.Nominee)
	assert.Contains(t, req.Text, "From Bob Builder:")
	assert.NotContains(t, req.Text, "review latency", "self records are excluded")
	assert.True(t, artifacts.Has(store.NomineeSummaryKey("42", "ART")))

	// A new run serves the cached summary
	again, err := s.SummarizeNomineePosition(ctx, runstate.New(), "42", "ART", Flags{})
	require.NoError(t, err)
	assert.Equal(t, summary.Text, again.Text)
	assert.Equal(t, 1, backend.calls())
}

func TestSummarizeNomineePosition_FailureIsNotPersisted(t *testing.T) {
	backend := &countingBackend{err: errors.New("quota <exceeded>")}
	artifacts := store.NewMemoryStore()
	s, _ := newSummarizer(backend, artifacts)
	ctx := context.Background()

	summary, err := s.SummarizeNomineePosition(ctx, runstate.New(), "42", "ART", Flags{})
	require.NoError(t, err, "backend failures are results, not errors")
	assert.Equal(t, types.SummaryError, summary.Kind)
	assert.False(t, summary.Succeeded)
	assert.Contains(t, summary.Text, "<h1>Error summarizing feedback</h1>")
	assert.Contains(t, summary.Text, "quota &lt;exceeded&gt;")
	assert.False(t, artifacts.Has(store.NomineeSummaryKey("42", "ART")))

	// Next run retries
	_, err = s.SummarizeNomineePosition(ctx, runstate.New(), "42", "ART", Flags{})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls())
}

func TestSummarizeNomineePosition_FailureRetriedWithinRun(t *testing.T) {
	backend := &countingBackend{err: errors.New("unavailable")}
	artifacts := store.NewMemoryStore()
	s, _ := newSummarizer(backend, artifacts)
	ctx := context.Background()
	rs := runstate.New()

	for i := 0; i < 3; i++ {
		summary, err := s.SummarizeNomineePosition(ctx, rs, "42", "ART", Flags{})
		require.NoError(t, err)
		assert.False(t, summary.Succeeded)
	}
	assert.Equal(t, 3, backend.calls(), "each call retries the backend")
	assert.False(t, artifacts.Has(store.NomineeSummaryKey("42", "ART")))

	_, ok := rs.Memo(store.NomineeSummaryKey("42", "ART"))
	assert.False(t, ok)
}

func TestSummarizePosition_FailureRetriedWithinRun(t *testing.T) {
	backend := &countingBackend{err: errors.New("unavailable")}
	s, _ := newSummarizer(backend, store.NewMemoryStore())
	ctx := context.Background()
	rs := runstate.New()

	for i := 0; i < 2; i++ {
		summary, err := s.SummarizePosition(ctx, rs, "IAB", Flags{})
		require.NoError(t, err)
		assert.Equal(t, types.SummaryError, summary.Kind)
	}
	assert.Equal(t, 2, backend.calls())
}

func TestSummarizeNomineePosition_NoFeedbackPlaceholderIsReused(t *testing.T) {
	backend := &countingBackend{err: errors.New("must not be called")}
	artifacts := store.NewMemoryStore()
	s, _ := newSummarizer(backend, artifacts)
	ctx := context.Background()

	// IAB holds only self feedback for nominee 42
	summary, err := s.SummarizeNomineePosition(ctx, runstate.New(), "42", "IAB", Flags{})
	require.NoError(t, err)
	assert.Equal(t, types.SummaryNoFeedback, summary.Kind)
	assert.Equal(t, NoFeedbackHTML, summary.Text)
	assert.True(t, artifacts.Has(store.NomineeSummaryKey("42", "IAB")))

	_, err = s.SummarizeNomineePosition(ctx, runstate.New(), "42", "IAB", Flags{})
	require.NoError(t, err)
	assert.Equal(t, 0, backend.calls())
	assert.Equal(t, 1, artifacts.Puts(store.NomineeSummaryKey("42", "IAB")))
}

func TestSummarizeNomineePosition_RedoOncePerRun(t *testing.T) {
	backend := &countingBackend{}
	artifacts := store.NewMemoryStore()
	s, _ := newSummarizer(backend, artifacts)
	ctx := context.Background()

	_, err := s.SummarizeNomineePosition(ctx, runstate.New(), "42", "ART", Flags{})
	require.NoError(t, err)

	rs := runstate.New()
	for i := 0; i < 3; i++ {
		_, err := s.SummarizeNomineePosition(ctx, rs, "42", "ART", Flags{RedoSummary: true})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, backend.calls())
}

func TestSummarizeNomineePosition_InvalidCacheIsRebuilt(t *testing.T) {
	backend := &countingBackend{}
	artifacts := store.NewMemoryStore()
	key := store.NomineeSummaryKey("42", "ART")
	require.NoError(t, store.PutJSON(context.Background(), artifacts, key, types.Summary{
		Scope: types.SummaryScope{NomineeID: "42", Position: "ART"},
		Kind:  types.SummaryError,
		Text:  "stale",
	}))
	s, _ := newSummarizer(backend, artifacts)

	summary, err := s.SummarizeNomineePosition(context.Background(), runstate.New(), "42", "ART", Flags{})
	require.NoError(t, err)
	assert.Equal(t, types.SummaryGenerated, summary.Kind)
	assert.Equal(t, 1, backend.calls())
}

func TestSummarizeNomineePosition_UnknownPosition(t *testing.T) {
	s, _ := newSummarizer(&countingBackend{}, store.NewMemoryStore())

	_, err := s.SummarizeNomineePosition(context.Background(), runstate.New(), "42", "XYZ", Flags{})
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestSummarize_Disabled(t *testing.T) {
	ext, ents := fixtures()
	backend := &countingBackend{}
	s := New(ext, ents, backend, store.NewMemoryStore(), Options{Enabled: false})
	ctx := context.Background()

	summary, err := s.SummarizeNomineePosition(ctx, runstate.New(), "42", "ART", Flags{RedoSummary: true})
	require.NoError(t, err)
	assert.Same(t, Disabled, summary)

	summary, err = s.SummarizePosition(ctx, runstate.New(), "IAB", Flags{})
	require.NoError(t, err)
	assert.Same(t, Disabled, summary)

	assert.Equal(t, 0, ext.calls)
	assert.Equal(t, 0, backend.calls())
	assert.False(t, s.Enabled())
}

func TestSummarize_NilBackendDisables(t *testing.T) {
	ext, ents := fixtures()
	s := New(ext, ents, nil, store.NewMemoryStore(), Options{Enabled: true})
	assert.False(t, s.Enabled())
}

func TestSummarizePosition_NoNominees(t *testing.T) {
	backend := &countingBackend{}
	artifacts := store.NewMemoryStore()
	s, ext := newSummarizer(backend, artifacts)

	summary, err := s.SummarizePosition(context.Background(), runstate.New(), "SEC", Flags{RedoSummary: true})
	require.NoError(t, err)
	assert.Equal(t, types.SummaryNoNominees, summary.Kind)
	assert.Equal(t, types.SummaryScope{Position: "SEC"}, summary.Scope)
	assert.Equal(t, 0, ext.calls)
	assert.Equal(t, 0, backend.calls())
	assert.False(t, artifacts.Has(store.PositionSummaryKey("SEC")))
}

func TestSummarizePosition_GroupsByNominee(t *testing.T) {
	backend := &countingBackend{}
	artifacts := store.NewMemoryStore()
	s, _ := newSummarizer(backend, artifacts)

	summary, err := s.SummarizePosition(context.Background(), runstate.New(), "IAB", Flags{})
	require.NoError(t, err)
	assert.Equal(t, types.SummaryGenerated, summary.Kind)
	require.Equal(t, 1, backend.calls())

	req := backend.requests[0]
	assert.Equal(t, SelectMany(6), req.Strategy)
	assert.Contains(t, req.Text, "## Nominee: Grace Hopper")
	assert.NotContains(t, req.Text, "Ada Lovelace", "a nominee with only self feedback contributes nothing")
	assert.True(t, artifacts.Has(store.PositionSummaryKey("IAB")))
}

func TestSummarizePosition_SelectOne(t *testing.T) {
	backend := &countingBackend{}
	s, _ := newSummarizer(backend, store.NewMemoryStore())

	_, err := s.SummarizePosition(context.Background(), runstate.New(), "ART", Flags{})
	require.NoError(t, err)
	require.Equal(t, 1, backend.calls())
	assert.Equal(t, SelectOne(), backend.requests[0].Strategy)
}

func TestSummarizePosition_ConcurrentCallsShareWork(t *testing.T) {
	backend := &countingBackend{}
	s, _ := newSummarizer(backend, store.NewMemoryStore())
	rs := runstate.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SummarizePosition(context.Background(), rs, "IAB", Flags{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, backend.calls())
}
