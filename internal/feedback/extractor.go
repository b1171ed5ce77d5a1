package feedback

import (
	"context"
	"encoding/json"
	"errors"

	"golang.org/x/sync/singleflight"

	"github.com/jonathan/nomcom-feedback/internal/logger"
	"github.com/jonathan/nomcom-feedback/internal/runstate"
	"github.com/jonathan/nomcom-feedback/internal/schemas"
	"github.com/jonathan/nomcom-feedback/internal/store"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

// Flags selects which inputs of an extraction are recomputed
type Flags struct {
	ForceMetadata bool
	ForceFeedback bool
	ForceParse    bool
}

// Entities is the subset of the entity store the extractor needs. *entities.Store implements it.
type Entities interface {
	NomineeProfile(ctx context.Context, rs *runstate.State, nomineeID string, force bool) (*types.PersonProfile, error)
	ResolvePositionLabel(ctx context.Context, rs *runstate.State, label string, force bool) (*types.Position, bool, error)
}

// Extractor builds and caches FeedbackSnapshots
type Extractor struct {
	raw       RawSource
	entities  Entities
	artifacts store.Store
	log       logger.Logger
	group     singleflight.Group
}

// NewExtractor creates an Extractor
func NewExtractor(raw RawSource, ents Entities, artifacts store.Store, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Extractor{raw: raw, entities: ents, artifacts: artifacts, log: log}
}

// Extract returns the nominee's snapshot. A cached snapshot is served without
// touching the fetcher unless ForceParse is set; ForceFeedback alone does not
// invalidate it.
func (e *Extractor) Extract(ctx context.Context, rs *runstate.State, nomineeID string, flags Flags) (*types.FeedbackSnapshot, error) {
	key := store.SnapshotKey(nomineeID)
	forced := rs.ShouldForce(key, flags.ForceParse)

	v, err, _ := e.group.Do(runstate.FlightKey(key, forced), func() (any, error) {
		if !forced {
			if memo, ok := runstate.Lookup[*types.FeedbackSnapshot](rs, key); ok {
				return memo, nil
			}
			cached, err := e.loadCached(ctx, key)
			if err != nil {
				return nil, err
			}
			if cached != nil {
				rs.SetMemo(key, cached)
				return cached, nil
			}
		}

		snapshot, err := e.build(ctx, rs, nomineeID, flags)
		if err != nil {
			return nil, err
		}
		if err := store.PutJSON(ctx, e.artifacts, key, snapshot); err != nil {
			return nil, err
		}
		rs.SetMemo(key, snapshot)
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.FeedbackSnapshot), nil
}

// loadCached returns nil when there is no usable cached snapshot
func (e *Extractor) loadCached(ctx context.Context, key store.Key) (*types.FeedbackSnapshot, error) {
	data, err := e.artifacts.Get(ctx, key)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if err := schemas.Validate(schemas.FeedbackSnapshot, data); err != nil {
		e.log.Warn("cached snapshot is invalid, re-parsing", logger.String("key", key.String()), logger.Error(err))
		return nil, nil
	}

	var snapshot types.FeedbackSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		e.log.Warn("cached snapshot is unreadable, re-parsing", logger.String("key", key.String()), logger.Error(err))
		return nil, nil
	}
	return &snapshot, nil
}

func (e *Extractor) build(ctx context.Context, rs *runstate.State, nomineeID string, flags Flags) (*types.FeedbackSnapshot, error) {
	markup, err := e.raw.FetchRaw(ctx, rs, nomineeID, flags.ForceFeedback)
	if err != nil {
		return nil, err
	}
	entries, err := ParseMarkup(markup)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.NomineeID = nomineeID
		}
		return nil, err
	}
	profile, err := e.entities.NomineeProfile(ctx, rs, nomineeID, flags.ForceMetadata)
	if err != nil {
		return nil, err
	}

	snapshot := &types.FeedbackSnapshot{
		NomineeID:          nomineeID,
		Person:             *profile,
		FeedbackByPosition: make(map[string][]types.FeedbackRecord),
	}
	for _, entry := range entries {
		if len(entry.Positions) == 0 {
			e.log.Warn("feedback entry has no position, dropping",
				logger.String("nominee", nomineeID), logger.String("author", entry.AuthorName))
			continue
		}
		record := types.FeedbackRecord{
			AuthorName:  entry.AuthorName,
			AuthorEmail: entry.AuthorEmail,
			Date:        entry.Date,
			Text:        entry.Text,
		}
		if entry.SelfSubmitted(profile.Email) {
			record.Subject = entry.SelfSubject()
		}
		for _, label := range entry.Positions {
			position, ok, err := e.entities.ResolvePositionLabel(ctx, rs, label, flags.ForceMetadata)
			if err != nil {
				return nil, err
			}
			if !ok {
				e.log.Warn("unknown position label, dropping record",
					logger.String("nominee", nomineeID), logger.String("label", label))
				continue
			}
			snapshot.FeedbackByPosition[position.ShortName] = append(snapshot.FeedbackByPosition[position.ShortName], record)
		}
	}

	e.log.Info("parsed feedback",
		logger.String("nominee", nomineeID),
		logger.Int("entries", len(entries)),
		logger.Int("positions", len(snapshot.FeedbackByPosition)))
	return snapshot, nil
}
