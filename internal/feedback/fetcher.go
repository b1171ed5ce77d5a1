package feedback

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/jonathan/nomcom-feedback/internal/credentials"
	"github.com/jonathan/nomcom-feedback/internal/logger"
	"github.com/jonathan/nomcom-feedback/internal/runstate"
	"github.com/jonathan/nomcom-feedback/internal/store"
)

// PageSource downloads a nominee's private feedback page. *datatracker.Client implements it.
type PageSource interface {
	FeedbackPage(ctx context.Context, nomineeID, sessionToken string) ([]byte, error)
}

// RawSource supplies raw feedback markup; *Fetcher implements it
type RawSource interface {
	FetchRaw(ctx context.Context, rs *runstate.State, nomineeID string, force bool) ([]byte, error)
}

// Fetcher caches the raw feedback page of each nominee
type Fetcher struct {
	src       PageSource
	creds     credentials.Provider
	artifacts store.Store
	log       logger.Logger
	group     singleflight.Group
}

// NewFetcher creates a Fetcher
func NewFetcher(src PageSource, creds credentials.Provider, artifacts store.Store, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Fetcher{src: src, creds: creds, artifacts: artifacts, log: log}
}

// FetchRaw returns the cached markup unless it is missing or forced, in which
// case the page is downloaded with the session token and persisted.
func (f *Fetcher) FetchRaw(ctx context.Context, rs *runstate.State, nomineeID string, force bool) ([]byte, error) {
	key := store.RawFeedbackKey(nomineeID)
	forced := rs.ShouldForce(key, force)

	v, err, _ := f.group.Do(runstate.FlightKey(key, forced), func() (any, error) {
		if !forced {
			data, err := f.artifacts.Get(ctx, key)
			if err == nil {
				return data, nil
			}
			if !store.IsNotFound(err) {
				return nil, err
			}
		}

		token, err := f.creds.SessionToken(ctx)
		if err != nil {
			return nil, err
		}
		f.log.Info("downloading feedback", logger.String("nominee", nomineeID), logger.Bool("forced", forced))
		data, err := f.src.FeedbackPage(ctx, nomineeID, token)
		if err != nil {
			return nil, fmt.Errorf("failed to download feedback for nominee %s: %w", nomineeID, err)
		}
		if err := f.artifacts.Put(ctx, key, data); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
