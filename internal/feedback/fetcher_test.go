package feedback

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nomcom-feedback/internal/credentials"
	"github.com/jonathan/nomcom-feedback/internal/datatracker"
	"github.com/jonathan/nomcom-feedback/internal/datatracker/dttest"
	"github.com/jonathan/nomcom-feedback/internal/runstate"
	"github.com/jonathan/nomcom-feedback/internal/store"
)

func newFetcher(t *testing.T, creds credentials.Provider) (*Fetcher, *dttest.Server, *store.MemoryStore) {
	t.Helper()
	srv := dttest.New("16", "2025")
	t.Cleanup(srv.Close)
	srv.Session = "s3cret"
	srv.Nominees = []dttest.Nominee{{ID: 42, FeedbackHTML: "<html>v1</html>"}}

	client := datatracker.New(&datatracker.Options{BaseURL: srv.URL, NomcomYear: "2025"})
	artifacts := store.NewMemoryStore()
	return NewFetcher(client, creds, artifacts, nil), srv, artifacts
}

const feedbackPath = "/nomcom/2025/private/view-feedback/nominee/42"

func TestFetchRaw_DownloadsAndCaches(t *testing.T) {
	f, srv, artifacts := newFetcher(t, credentials.Static{Session: "s3cret"})
	ctx := context.Background()

	data, err := f.FetchRaw(ctx, runstate.New(), "42", false)
	require.NoError(t, err)
	assert.Equal(t, "<html>v1</html>", string(data))
	assert.True(t, artifacts.Has(store.RawFeedbackKey("42")))

	_, err = f.FetchRaw(ctx, runstate.New(), "42", false)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Hits(feedbackPath))
}

func TestFetchRaw_ForceRedownloadsOncePerRun(t *testing.T) {
	f, srv, _ := newFetcher(t, credentials.Static{Session: "s3cret"})
	ctx := context.Background()

	_, err := f.FetchRaw(ctx, runstate.New(), "42", false)
	require.NoError(t, err)

	srv.Nominees[0].FeedbackHTML = "<html>v2</html>"
	rs := runstate.New()
	data, err := f.FetchRaw(ctx, rs, "42", true)
	require.NoError(t, err)
	assert.Equal(t, "<html>v2</html>", string(data))

	_, err = f.FetchRaw(ctx, rs, "42", true)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Hits(feedbackPath))
}

func TestFetchRaw_Errors(t *testing.T) {
	f, _, artifacts := newFetcher(t, credentials.Static{Session: "wrong"})
	_, err := f.FetchRaw(context.Background(), runstate.New(), "42", false)
	var dtErr *datatracker.Error
	require.ErrorAs(t, err, &dtErr)
	assert.Equal(t, 403, dtErr.StatusCode)
	assert.False(t, artifacts.Has(store.RawFeedbackKey("42")), "failures are not cached")

	f, _, _ = newFetcher(t, credentials.Static{})
	_, err = f.FetchRaw(context.Background(), runstate.New(), "42", false)
	assert.True(t, errors.Is(err, credentials.ErrNoSessionToken))
}

func TestFetchRaw_CacheHitNeedsNoToken(t *testing.T) {
	f, srv, artifacts := newFetcher(t, credentials.Static{})
	require.NoError(t, artifacts.Put(context.Background(), store.RawFeedbackKey("42"), []byte("cached")))

	data, err := f.FetchRaw(context.Background(), runstate.New(), "42", false)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(data))
	assert.Zero(t, srv.TotalHits())
}

// blockingPages holds the first download open until a second one arrives
type blockingPages struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingPages) FeedbackPage(_ context.Context, _ string, _ string) ([]byte, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
		select {
		case <-b.release:
		case <-time.After(2 * time.Second):
		}
		return []byte("<html>v1</html>"), nil
	}
	close(b.release)
	return []byte("<html>v2</html>"), nil
}

func TestFetchRaw_ForcedCallerDoesNotJoinUnforcedLoad(t *testing.T) {
	pages := &blockingPages{started: make(chan struct{}), release: make(chan struct{})}
	f := NewFetcher(pages, credentials.Static{Session: "s3cret"}, store.NewMemoryStore(), nil)
	ctx := context.Background()
	rs := runstate.New()

	done := make(chan []byte, 1)
	go func() {
		data, err := f.FetchRaw(ctx, rs, "42", false)
		assert.NoError(t, err)
		done <- data
	}()
	<-pages.started

	data, err := f.FetchRaw(ctx, rs, "42", true)
	require.NoError(t, err)
	assert.Equal(t, "<html>v2</html>", string(data))
	assert.Equal(t, "<html>v1</html>", string(<-done))
	assert.Equal(t, int32(2), pages.calls.Load())
}
