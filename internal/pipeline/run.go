// Package pipeline orchestrates a run over the NomCom feedback stages:
// metadata, raw feedback, parsed feedback and summaries.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/nomcom-feedback/internal/logger"
	"github.com/jonathan/nomcom-feedback/internal/runstate"
	"github.com/jonathan/nomcom-feedback/internal/summarize"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

// ProgressCallback is called when run progress occurs
type ProgressCallback func(event ProgressEvent)

// Entities is the metadata access the orchestrator needs. *entities.Store implements it.
type Entities interface {
	Positions(ctx context.Context, rs *runstate.State, force bool) ([]types.Position, error)
	Topics(ctx context.Context, rs *runstate.State, force bool) ([]types.Topic, error)
	ActiveNominees(ctx context.Context, rs *runstate.State, force bool) ([]types.Nominee, error)
	NomineesByPosition(ctx context.Context, rs *runstate.State, force bool) (map[string][]types.Nominee, error)
	Nominee(ctx context.Context, rs *runstate.State, nomineeID string, force bool) (*types.Nominee, error)
	Position(ctx context.Context, rs *runstate.State, shortName string, force bool) (*types.Position, error)
	AcceptedPositions(ctx context.Context, rs *runstate.State, nomineeID string, force bool) ([]string, error)
}

// Summarizer is implemented by *summarize.Summarizer
type Summarizer interface {
	Enabled() bool
	SummarizeNomineePosition(ctx context.Context, rs *runstate.State, nomineeID, position string, flags summarize.Flags) (*types.Summary, error)
	SummarizePosition(ctx context.Context, rs *runstate.State, position string, flags summarize.Flags) (*types.Summary, error)
}

// Options configures an Orchestrator
type Options struct {
	// Parallelism bounds concurrent nominee work; values below 2 run sequentially
	Parallelism int
	Policy      Policy
	// Out receives "Step N/M" progress lines; defaults to os.Stdout
	Out        io.Writer
	OnProgress ProgressCallback
	Logger     logger.Logger
}

// Orchestrator runs the stages for a target
type Orchestrator struct {
	entities   Entities
	extractor  summarize.Extractor
	summarizer Summarizer
	opts       Options
	log        logger.Logger
}

// New creates an Orchestrator
func New(ents Entities, ext summarize.Extractor, sum Summarizer, opts Options) *Orchestrator {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{entities: ents, extractor: ext, summarizer: sum, opts: opts, log: log}
}

// Result is everything a run produced, keyed for rendering
type Result struct {
	RunID  uuid.UUID
	Target Target
	Flags  Flags

	Positions          []types.Position
	Topics             []types.Topic
	ActiveNominees     []types.Nominee
	NomineesByPosition map[string][]types.Nominee
	// AcceptedPositions maps a nominee id to the short names they accepted, in position order
	AcceptedPositions map[string][]string
	Snapshots         map[string]*types.FeedbackSnapshot

	SummariesEnabled bool
	// NomineeSummaries is keyed by nominee id, then position short name
	NomineeSummaries  map[string]map[string]*types.Summary
	PositionSummaries map[string]*types.Summary

	mu sync.Mutex
}

func newResult(rs *runstate.State, target Target, flags Flags) *Result {
	return &Result{
		RunID:              rs.ID,
		Target:             target,
		Flags:              flags,
		NomineesByPosition: make(map[string][]types.Nominee),
		AcceptedPositions:  make(map[string][]string),
		Snapshots:          make(map[string]*types.FeedbackSnapshot),
		NomineeSummaries:   make(map[string]map[string]*types.Summary),
		PositionSummaries:  make(map[string]*types.Summary),
	}
}

func (r *Result) addSnapshot(s *types.FeedbackSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Snapshots[s.NomineeID] = s
}

func (r *Result) addNomineeSummary(nomineeID, position string, s *types.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.NomineeSummaries[nomineeID] == nil {
		r.NomineeSummaries[nomineeID] = make(map[string]*types.Summary)
	}
	r.NomineeSummaries[nomineeID][position] = s
}

// NomineeSummary returns the summary for a nominee and position, or nil
func (r *Result) NomineeSummary(nomineeID, position string) *types.Summary {
	return r.NomineeSummaries[nomineeID][position]
}

// Position returns the position with the given short name, or nil
func (r *Result) Position(shortName string) *types.Position {
	for i := range r.Positions {
		if r.Positions[i].ShortName == shortName {
			return &r.Positions[i]
		}
	}
	return nil
}

// Run executes the stages for target with a fresh run state. Flags are
// resolved through Cascade with the configured policy first.
func (o *Orchestrator) Run(ctx context.Context, target Target, flags Flags) (*Result, error) {
	rs := runstate.New()
	flags = Cascade(flags, o.opts.Policy)
	res := newResult(rs, target, flags)
	res.SummariesEnabled = o.summarizer.Enabled()

	o.log.Info("starting run",
		logger.String("run_id", rs.ID.String()),
		logger.String("target", target.String()),
		logger.Bool("summaries", res.SummariesEnabled))

	var err error
	switch target.Kind {
	case TargetNominee:
		err = o.runNominee(ctx, rs, res, target.ID, flags)
	case TargetPosition:
		err = o.runPosition(ctx, rs, res, target.ID, flags)
	default:
		err = o.runAll(ctx, rs, res, flags)
	}
	if err != nil {
		return nil, err
	}

	o.progress(rs, "done", "Done! Processed %d nominees.", len(res.Snapshots))
	return res, nil
}

func (o *Orchestrator) runAll(ctx context.Context, rs *runstate.State, res *Result, flags Flags) error {
	o.progress(rs, "metadata", "Step 1/4: Loading positions and topics...")
	if err := o.loadPositions(ctx, rs, res, flags); err != nil {
		return err
	}
	topics, err := o.entities.Topics(ctx, rs, flags.ForceMetadata)
	if err != nil {
		return fmt.Errorf("failed to load topics: %w", err)
	}
	res.Topics = topics

	o.progress(rs, "nominees", "Step 2/4: Loading nominees and position states...")
	active, err := o.entities.ActiveNominees(ctx, rs, flags.ForceMetadata)
	if err != nil {
		return fmt.Errorf("failed to load nominees: %w", err)
	}
	byPosition, err := o.entities.NomineesByPosition(ctx, rs, flags.ForceMetadata)
	if err != nil {
		return fmt.Errorf("failed to group nominees: %w", err)
	}
	res.ActiveNominees = active
	res.NomineesByPosition = byPosition
	for _, n := range active {
		accepted, err := o.entities.AcceptedPositions(ctx, rs, n.ID, flags.ForceMetadata)
		if err != nil {
			return err
		}
		res.AcceptedPositions[n.ID] = accepted
	}

	o.progress(rs, "feedback", "Step 3/4: Extracting feedback for %d nominees...", len(active))
	if err := o.extractAll(ctx, rs, res, active, flags); err != nil {
		return err
	}

	if !res.SummariesEnabled {
		o.progress(rs, "summaries", "Step 4/4: Summaries disabled, skipping.")
		return nil
	}
	o.progress(rs, "summaries", "Step 4/4: Summarizing feedback...")
	var pairs []pair
	for _, n := range active {
		for _, pos := range res.AcceptedPositions[n.ID] {
			pairs = append(pairs, pair{nomineeID: n.ID, position: pos})
		}
	}
	if err := o.summarizePairs(ctx, rs, res, pairs, flags); err != nil {
		return err
	}
	for _, p := range res.Positions {
		if err := o.summarizePosition(ctx, rs, res, p.ShortName, flags); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runNominee(ctx context.Context, rs *runstate.State, res *Result, nomineeID string, flags Flags) error {
	o.progress(rs, "metadata", "Step 1/3: Loading positions...")
	if err := o.loadPositions(ctx, rs, res, flags); err != nil {
		return err
	}
	nominee, err := o.entities.Nominee(ctx, rs, nomineeID, flags.ForceMetadata)
	if err != nil {
		return err
	}
	accepted, err := o.entities.AcceptedPositions(ctx, rs, nominee.ID, flags.ForceMetadata)
	if err != nil {
		return err
	}
	res.ActiveNominees = []types.Nominee{*nominee}
	res.AcceptedPositions[nominee.ID] = accepted
	for _, pos := range accepted {
		res.NomineesByPosition[pos] = []types.Nominee{*nominee}
	}

	o.progress(rs, "feedback", "Step 2/3: Extracting feedback for nominee %s...", nominee.ID)
	if err := o.extractAll(ctx, rs, res, res.ActiveNominees, flags); err != nil {
		return err
	}

	if !res.SummariesEnabled {
		o.progress(rs, "summaries", "Step 3/3: Summaries disabled, skipping.")
		return nil
	}
	o.progress(rs, "summaries", "Step 3/3: Summarizing %d positions...", len(accepted))
	var pairs []pair
	for _, pos := range accepted {
		pairs = append(pairs, pair{nomineeID: nominee.ID, position: pos})
	}
	return o.summarizePairs(ctx, rs, res, pairs, flags)
}

func (o *Orchestrator) runPosition(ctx context.Context, rs *runstate.State, res *Result, shortName string, flags Flags) error {
	o.progress(rs, "metadata", "Step 1/3: Loading positions...")
	if err := o.loadPositions(ctx, rs, res, flags); err != nil {
		return err
	}
	pos, err := o.entities.Position(ctx, rs, shortName, flags.ForceMetadata)
	if err != nil {
		return err
	}
	byPosition, err := o.entities.NomineesByPosition(ctx, rs, flags.ForceMetadata)
	if err != nil {
		return fmt.Errorf("failed to group nominees: %w", err)
	}
	nominees := byPosition[pos.ShortName]
	res.ActiveNominees = nominees
	res.NomineesByPosition[pos.ShortName] = nominees
	for _, n := range nominees {
		res.AcceptedPositions[n.ID] = []string{pos.ShortName}
	}

	o.progress(rs, "feedback", "Step 2/3: Extracting feedback for %d nominees of %s...", len(nominees), pos.ShortName)
	if err := o.extractAll(ctx, rs, res, nominees, flags); err != nil {
		return err
	}

	if !res.SummariesEnabled {
		o.progress(rs, "summaries", "Step 3/3: Summaries disabled, skipping.")
		return nil
	}
	o.progress(rs, "summaries", "Step 3/3: Summarizing %s...", pos.ShortName)
	pairs := make([]pair, 0, len(nominees))
	for _, n := range nominees {
		pairs = append(pairs, pair{nomineeID: n.ID, position: pos.ShortName})
	}
	if err := o.summarizePairs(ctx, rs, res, pairs, flags); err != nil {
		return err
	}
	return o.summarizePosition(ctx, rs, res, pos.ShortName, flags)
}

func (o *Orchestrator) loadPositions(ctx context.Context, rs *runstate.State, res *Result, flags Flags) error {
	positions, err := o.entities.Positions(ctx, rs, flags.ForceMetadata)
	if err != nil {
		return fmt.Errorf("failed to load positions: %w", err)
	}
	res.Positions = positions
	return nil
}

func (o *Orchestrator) extractAll(ctx context.Context, rs *runstate.State, res *Result, nominees []types.Nominee, flags Flags) error {
	return o.forEach(ctx, len(nominees), func(ctx context.Context, i int) error {
		id := nominees[i].ID
		snapshot, err := o.extractor.Extract(ctx, rs, id, flags.extraction())
		if err != nil {
			return fmt.Errorf("failed to extract feedback for nominee %s: %w", id, err)
		}
		res.addSnapshot(snapshot)
		return nil
	})
}

type pair struct {
	nomineeID string
	position  string
}

func (o *Orchestrator) summarizePairs(ctx context.Context, rs *runstate.State, res *Result, pairs []pair, flags Flags) error {
	return o.forEach(ctx, len(pairs), func(ctx context.Context, i int) error {
		p := pairs[i]
		summary, err := o.summarizer.SummarizeNomineePosition(ctx, rs, p.nomineeID, p.position, flags.summary())
		if err != nil {
			return fmt.Errorf("failed to summarize nominee %s for %s: %w", p.nomineeID, p.position, err)
		}
		res.addNomineeSummary(p.nomineeID, p.position, summary)
		return nil
	})
}

func (o *Orchestrator) summarizePosition(ctx context.Context, rs *runstate.State, res *Result, position string, flags Flags) error {
	summary, err := o.summarizer.SummarizePosition(ctx, rs, position, flags.summary())
	if err != nil {
		return fmt.Errorf("failed to summarize position %s: %w", position, err)
	}
	res.mu.Lock()
	res.PositionSummaries[position] = summary
	res.mu.Unlock()
	return nil
}

// forEach runs fn for 0..n-1, sequentially or bounded by Parallelism.
// The first error cancels the remaining work.
func (o *Orchestrator) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if o.opts.Parallelism <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Parallelism)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return fn(gCtx, i)
		})
	}
	return g.Wait()
}

func (o *Orchestrator) progress(rs *runstate.State, step, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(o.opts.Out, msg)
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(ProgressEvent{Step: step, Message: msg, RunID: rs.ID.String()})
	}
}
