// Package summarize produces HTML summaries of community feedback, per
// nominee and position and across all nominees of a position.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/jonathan/nomcom-feedback/internal/feedback"
	"github.com/jonathan/nomcom-feedback/internal/logger"
	"github.com/jonathan/nomcom-feedback/internal/runstate"
	"github.com/jonathan/nomcom-feedback/internal/schemas"
	"github.com/jonathan/nomcom-feedback/internal/store"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

// Placeholder texts for summaries that need no backend call
const (
	NoFeedbackHTML = "<p>No community feedback has been received.</p>"
	NoNomineesHTML = "<p>No nominees have accepted this position.</p>"
	DisabledHTML   = "<p>Summaries are disabled.</p>"
)

// Disabled is returned for every request while summaries are turned off
var Disabled = &types.Summary{Kind: types.SummaryDisabled, Text: DisabledHTML, Succeeded: true}

// Flags selects which inputs of a summary are recomputed
type Flags struct {
	ForceMetadata bool
	ForceFeedback bool
	ForceParse    bool
	RedoSummary   bool
}

func (f Flags) extraction() feedback.Flags {
	return feedback.Flags{ForceMetadata: f.ForceMetadata, ForceFeedback: f.ForceFeedback, ForceParse: f.ForceParse}
}

// Extractor supplies parsed feedback. *feedback.Extractor implements it.
type Extractor interface {
	Extract(ctx context.Context, rs *runstate.State, nomineeID string, flags feedback.Flags) (*types.FeedbackSnapshot, error)
}

// Entities is the subset of the entity store the summarizer needs
type Entities interface {
	Position(ctx context.Context, rs *runstate.State, shortName string, force bool) (*types.Position, error)
	NomineesByPosition(ctx context.Context, rs *runstate.State, force bool) (map[string][]types.Nominee, error)
}

// Options configures a Summarizer
type Options struct {
	// Enabled gates every summary. When false, Disabled is returned without extraction.
	Enabled bool
	// SelectCounts maps a position short name to the number of seats being filled
	SelectCounts map[string]int
	Logger       logger.Logger
}

// Summarizer builds and caches summaries
type Summarizer struct {
	extractor    Extractor
	entities     Entities
	backend      Backend
	artifacts    store.Store
	enabled      bool
	selectCounts map[string]int
	log          logger.Logger
	group        singleflight.Group
}

// New creates a Summarizer. backend may be nil when summaries are disabled.
func New(ext Extractor, ents Entities, backend Backend, artifacts store.Store, opts Options) *Summarizer {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Summarizer{
		extractor:    ext,
		entities:     ents,
		backend:      backend,
		artifacts:    artifacts,
		enabled:      opts.Enabled && backend != nil,
		selectCounts: opts.SelectCounts,
		log:          log,
	}
}

// Enabled reports whether summaries are generated in this run
func (s *Summarizer) Enabled() bool { return s.enabled }

// SummarizeNomineePosition summarizes the community feedback about one nominee for one position
func (s *Summarizer) SummarizeNomineePosition(ctx context.Context, rs *runstate.State, nomineeID, position string, flags Flags) (*types.Summary, error) {
	if !s.enabled {
		return Disabled, nil
	}
	pos, err := s.entities.Position(ctx, rs, position, flags.ForceMetadata)
	if err != nil {
		return nil, err
	}

	scope := types.SummaryScope{NomineeID: nomineeID, Position: pos.ShortName}
	key := store.NomineeSummaryKey(nomineeID, pos.ShortName)
	return s.summarize(ctx, rs, key, scope, flags.RedoSummary, func() (Request, error) {
		snapshot, err := s.extractor.Extract(ctx, rs, nomineeID, flags.extraction())
		if err != nil {
			return Request{}, err
		}
		return Request{
			Strategy: Synopsis(),
			Position: *pos,
			Nominee:  displayName(snapshot),
			Text:     recordsText(snapshot.Community(pos.ShortName)),
		}, nil
	})
}

// SummarizePosition compares every active nominee for a position. A position
// without active nominees yields a no_nominees result without any fetch.
func (s *Summarizer) SummarizePosition(ctx context.Context, rs *runstate.State, position string, flags Flags) (*types.Summary, error) {
	if !s.enabled {
		return Disabled, nil
	}
	pos, err := s.entities.Position(ctx, rs, position, flags.ForceMetadata)
	if err != nil {
		return nil, err
	}
	byPosition, err := s.entities.NomineesByPosition(ctx, rs, flags.ForceMetadata)
	if err != nil {
		return nil, err
	}

	scope := types.SummaryScope{Position: pos.ShortName}
	nominees := byPosition[pos.ShortName]
	if len(nominees) == 0 {
		return &types.Summary{Scope: scope, Kind: types.SummaryNoNominees, Text: NoNomineesHTML, Succeeded: true}, nil
	}

	key := store.PositionSummaryKey(pos.ShortName)
	return s.summarize(ctx, rs, key, scope, flags.RedoSummary, func() (Request, error) {
		var sections []string
		for _, n := range nominees {
			snapshot, err := s.extractor.Extract(ctx, rs, n.ID, flags.extraction())
			if err != nil {
				return Request{}, err
			}
			text := recordsText(snapshot.Community(pos.ShortName))
			if text == "" {
				continue
			}
			sections = append(sections, fmt.Sprintf("## Nominee: %s\n\n%s", displayName(snapshot), text))
		}
		return Request{
			Strategy: ForPosition(pos.ShortName, s.selectCounts),
			Position: *pos,
			Text:     strings.Join(sections, "\n\n"),
		}, nil
	})
}

// summarize is the cache protocol shared by both scopes: memo, then artifact
// store, then build. Only successful results are persisted or memoized, so a
// failure is retried on the next call.
func (s *Summarizer) summarize(ctx context.Context, rs *runstate.State, key store.Key, scope types.SummaryScope, redo bool, build func() (Request, error)) (*types.Summary, error) {
	forced := rs.ShouldForce(key, redo)

	v, err, _ := s.group.Do(runstate.FlightKey(key, forced), func() (any, error) {
		if !forced {
			if memo, ok := runstate.Lookup[*types.Summary](rs, key); ok {
				return memo, nil
			}
			cached, err := s.loadCached(ctx, key)
			if err != nil {
				return nil, err
			}
			if cached != nil {
				rs.SetMemo(key, cached)
				return cached, nil
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}
		summary := s.generate(ctx, key, scope, req)
		if !summary.Succeeded {
			return summary, nil
		}
		if err := store.PutJSON(ctx, s.artifacts, key, summary); err != nil {
			return nil, err
		}
		rs.SetMemo(key, summary)
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Summary), nil
}

func (s *Summarizer) generate(ctx context.Context, key store.Key, scope types.SummaryScope, req Request) *types.Summary {
	if strings.TrimSpace(req.Text) == "" {
		s.log.Debug("no community feedback, using placeholder", logger.String("key", key.String()))
		return &types.Summary{Scope: scope, Kind: types.SummaryNoFeedback, Text: NoFeedbackHTML, Succeeded: true}
	}

	s.log.Info("summarizing feedback",
		logger.String("key", key.String()),
		logger.String("strategy", req.Strategy.String()))
	text, err := s.backend.Summarize(ctx, req)
	if err != nil {
		s.log.Warn("summarization failed", logger.String("key", key.String()), logger.Error(err))
		return &types.Summary{Scope: scope, Kind: types.SummaryError, Text: ErrorHTML(err), Succeeded: false}
	}
	return &types.Summary{Scope: scope, Kind: types.SummaryGenerated, Text: text, Succeeded: true}
}

// loadCached returns nil, nil on a miss. A cached document that no longer
// validates is logged and treated as a miss.
func (s *Summarizer) loadCached(ctx context.Context, key store.Key) (*types.Summary, error) {
	data, err := s.artifacts.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := schemas.Validate(schemas.Summary, data); err != nil {
		s.log.Warn("ignoring invalid cached summary", logger.String("key", key.String()), logger.Error(err))
		return nil, nil
	}
	var summary types.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		s.log.Warn("ignoring unreadable cached summary", logger.String("key", key.String()), logger.Error(err))
		return nil, nil
	}
	return &summary, nil
}

// ErrorHTML is the visible inline placeholder for a failed summary
func ErrorHTML(err error) string {
	return "<h1>Error summarizing feedback</h1><p>" + html.EscapeString(err.Error()) + "</p>"
}

func recordsText(records []types.FeedbackRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("From %s:\n%s", r.AuthorName, r.Text))
	}
	return strings.Join(parts, "\n\n")
}

func displayName(snapshot *types.FeedbackSnapshot) string {
	if snapshot.Person.Name != "" {
		return snapshot.Person.Name
	}
	return "Nominee " + snapshot.NomineeID
}
