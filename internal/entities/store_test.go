package entities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nomcom-feedback/internal/datatracker"
	"github.com/jonathan/nomcom-feedback/internal/datatracker/dttest"
	"github.com/jonathan/nomcom-feedback/internal/runstate"
	"github.com/jonathan/nomcom-feedback/internal/store"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

func fakeDatatracker(t *testing.T) *dttest.Server {
	t.Helper()
	srv := dttest.New("16", "2025")
	t.Cleanup(srv.Close)
	srv.Positions = []dttest.Position{
		{ID: 1, Name: "Applications and Real Time (ART) AD", IsIESGPosition: true},
		{ID: 2, Name: "Internet Architecture Board, Member"},
		{ID: 3, Name: "IETF LLC Board, Director"},
	}
	srv.Nominees = []dttest.Nominee{
		{ID: 10, PersonID: 100, Name: "Ada", Email: "ada@example.com", States: map[int]string{1: "accepted", 2: "accepted"}, Meetings: 30, Documents: []string{"rfc1", "draft-ietf-x"}},
		{ID: 11, PersonID: 101, Name: "Bob", Email: "bob@example.com", States: map[int]string{1: "declined"}},
		{ID: 12, PersonID: 102, Name: "Cy", Email: "cy@example.com", States: map[int]string{2: "pending", 3: "accepted"}},
		{ID: 13, PersonID: 103, Name: "Di", Email: "di@example.com", States: map[int]string{2: "accepted"}},
	}
	srv.Topics = []string{"Leadership", "Diversity"}
	return srv
}

func newStore(srv *dttest.Server, artifacts store.Store) *Store {
	client := datatracker.New(&datatracker.Options{BaseURL: srv.URL, NomcomID: srv.NomcomID, NomcomYear: srv.Year})
	return New(client, artifacts, nil)
}

func ids(nominees []types.Nominee) []string {
	out := make([]string, 0, len(nominees))
	for _, n := range nominees {
		out = append(out, n.ID)
	}
	return out
}

func TestActiveNominees_FilterAndGrouping(t *testing.T) {
	srv := fakeDatatracker(t)
	s := newStore(srv, store.NewMemoryStore())
	ctx := context.Background()
	rs := runstate.New()

	active, err := s.ActiveNominees(ctx, rs, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "12", "13"}, ids(active), "declined-only and pending-only nominees are inactive")

	byPosition, err := s.NomineesByPosition(ctx, rs, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"10"}, ids(byPosition["ART"]))
	assert.Equal(t, []string{"10", "13"}, ids(byPosition["IAB"]), "pending is not accepted")
	assert.Equal(t, []string{"12"}, ids(byPosition["LLC"]))

	states, err := s.NomineeStates(ctx, rs, "12", false)
	require.NoError(t, err)
	assert.Equal(t, map[string]types.PositionState{"IAB": types.StatePending, "LLC": types.StateAccepted}, states)

	accepted, err := s.AcceptedPositions(ctx, rs, "10", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ART", "IAB"}, accepted)
}

func TestActiveNominees_DeclinedCombinations(t *testing.T) {
	srv := fakeDatatracker(t)
	srv.Nominees = []dttest.Nominee{
		{ID: 20, PersonID: 200, Email: "a@example.com", States: map[int]string{1: "declined", 2: "declined"}},
		{ID: 21, PersonID: 201, Email: "b@example.com", States: map[int]string{1: "declined", 2: "accepted"}},
	}
	s := newStore(srv, store.NewMemoryStore())
	ctx := context.Background()
	rs := runstate.New()

	active, err := s.ActiveNominees(ctx, rs, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"21"}, ids(active), "one accepted position keeps a nominee active")

	byPosition, err := s.NomineesByPosition(ctx, rs, false)
	require.NoError(t, err)
	assert.Empty(t, byPosition["ART"])
	assert.Equal(t, []string{"21"}, ids(byPosition["IAB"]))
}

func TestStore_CacheHitSkipsNetwork(t *testing.T) {
	srv := fakeDatatracker(t)
	artifacts := store.NewMemoryStore()
	ctx := context.Background()

	_, err := newStore(srv, artifacts).Positions(ctx, runstate.New(), false)
	require.NoError(t, err)
	require.Equal(t, 1, srv.Hits("/api/v1/nomcom/position/"))
	assert.True(t, artifacts.Has(store.PositionsKey()))

	// New run, same artifacts: served from storage
	positions, err := newStore(srv, artifacts).Positions(ctx, runstate.New(), false)
	require.NoError(t, err)
	assert.Len(t, positions, 3)
	assert.Equal(t, 1, srv.Hits("/api/v1/nomcom/position/"))
}

func TestStore_MemoizesWithinRun(t *testing.T) {
	srv := fakeDatatracker(t)
	artifacts := store.NewMemoryStore()
	s := newStore(srv, artifacts)
	ctx := context.Background()
	rs := runstate.New()

	for i := 0; i < 3; i++ {
		_, err := s.Nominees(ctx, rs, false)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, srv.Hits("/api/v1/nomcom/nominee/"))
	assert.Equal(t, 1, artifacts.Puts(store.NomineesKey()))

	// Storage is not consulted again once memoized
	require.NoError(t, artifacts.Delete(ctx, store.NomineesKey()))
	_, err := s.Nominees(ctx, rs, false)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Hits("/api/v1/nomcom/nominee/"))
}

func TestStore_ForcedOncePerRun(t *testing.T) {
	srv := fakeDatatracker(t)
	artifacts := store.NewMemoryStore()
	s := newStore(srv, artifacts)
	ctx := context.Background()

	_, err := s.Positions(ctx, runstate.New(), false)
	require.NoError(t, err)

	rs := runstate.New()
	for i := 0; i < 3; i++ {
		_, err := s.Positions(ctx, rs, true)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, srv.Hits("/api/v1/nomcom/position/"), "one initial fetch plus one forced refetch")

	for i := 0; i < 2; i++ {
		_, err := s.PersonProfile(ctx, rs, "100", "ada@example.com", true)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, srv.Hits("/api/v1/person/person/100/"))
}

func TestNomineeProfile(t *testing.T) {
	srv := fakeDatatracker(t)
	s := newStore(srv, store.NewMemoryStore())

	profile, err := s.NomineeProfile(context.Background(), runstate.New(), "10", false)
	require.NoError(t, err)
	assert.Equal(t, "100", profile.ID)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.Equal(t, types.ActivityCounters{MeetingsAttended: 30, Documents: 2, RFCs: 1, WGDrafts: 1}, profile.Counters)
}

func TestNotFound(t *testing.T) {
	srv := fakeDatatracker(t)
	s := newStore(srv, store.NewMemoryStore())
	ctx := context.Background()
	rs := runstate.New()

	_, err := s.Nominee(ctx, rs, "999", false)
	assert.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nominee", nf.Kind)

	_, err = s.Position(ctx, rs, "XYZ", false)
	assert.True(t, errors.Is(err, ErrNotFound))

	p, err := s.Position(ctx, rs, "art", false)
	require.NoError(t, err)
	assert.Equal(t, "ART", p.ShortName)
}

func TestResolvePositionLabel(t *testing.T) {
	srv := fakeDatatracker(t)
	s := newStore(srv, store.NewMemoryStore())
	ctx := context.Background()
	rs := runstate.New()

	tests := []struct {
		label string
		want  string
		ok    bool
	}{
		{"Applications and Real Time (ART) AD", "ART", true},
		{"  internet architecture board,\n member ", "IAB", true},
		{"LLC", "LLC", true},
		{"Nonexistent Position", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		p, ok, err := s.ResolvePositionLabel(ctx, rs, tt.label, false)
		require.NoError(t, err)
		assert.Equal(t, tt.ok, ok, tt.label)
		if tt.ok {
			assert.Equal(t, tt.want, p.ShortName)
		}
	}
}

func TestTopics(t *testing.T) {
	srv := fakeDatatracker(t)
	topics, err := newStore(srv, store.NewMemoryStore()).Topics(context.Background(), runstate.New(), false)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Leadership", topics[0].Subject)
}

func TestFetchFailureIsFatal(t *testing.T) {
	srv := fakeDatatracker(t)
	artifacts := store.NewMemoryStore()
	s := newStore(srv, artifacts)

	_, err := s.PersonProfile(context.Background(), runstate.New(), "404404", "", false)
	require.Error(t, err)
	var dtErr *datatracker.Error
	assert.ErrorAs(t, err, &dtErr)
	assert.False(t, artifacts.Has(store.PersonKey("404404")))
}
