package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/nomcom-feedback/internal/config"
	"github.com/jonathan/nomcom-feedback/internal/feedback"
	"github.com/jonathan/nomcom-feedback/internal/logger"
	"github.com/jonathan/nomcom-feedback/internal/pipeline"
	"github.com/jonathan/nomcom-feedback/internal/rendering"
	"github.com/jonathan/nomcom-feedback/internal/summarize"
)

type runOptions struct {
	flags       pipeline.Flags
	summaries   string
	strictFlags bool
	noRender    bool
	parallel    int
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [nominee-id | position]",
		Short: "Fetch, parse, summarize and render feedback",
		Long: `Runs every stage for all active nominees, one nominee (numeric argument)
or one position (short name such as ART or IAB).

Cached artifacts are reused unless forced. By default --force-feedback also
re-parses; pass --strict-flags to apply each force flag literally.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipelineCmd(cmd, root, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.flags.ForceMetadata, "force-metadata", "m", false, "Refetch positions, nominees and person profiles")
	cmd.Flags().BoolVarP(&opts.flags.ForceFeedback, "force-feedback", "f", false, "Refetch raw feedback pages")
	cmd.Flags().BoolVarP(&opts.flags.ForceParse, "force-parse", "p", false, "Re-parse cached feedback pages")
	cmd.Flags().BoolVarP(&opts.flags.RedoSummary, "redo-summary", "s", false, "Regenerate summaries")
	cmd.Flags().BoolVarP(&opts.flags.ForceAll, "force-all", "a", false, "Force every stage")
	cmd.Flags().StringVar(&opts.summaries, "summaries", "", "Turn summaries on or off (persisted in settings.json)")
	cmd.Flags().BoolVar(&opts.strictFlags, "strict-flags", false, "Do not cascade force flags to later stages")
	cmd.Flags().BoolVar(&opts.noRender, "no-render", false, "Skip writing HTML pages")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 0, "Number of nominees processed concurrently (overrides config)")
	return cmd
}

func runPipelineCmd(cmd *cobra.Command, root *rootOptions, opts *runOptions, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("parallel") {
		cfg.Parallelism = opts.parallel
	}

	a, err := newApp(ctx, cmd, root, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cmd.Flags().Changed("summaries") {
		enabled, err := parseOnOff("summaries", opts.summaries)
		if err != nil {
			return err
		}
		if err := a.settings.SetSummaries(enabled); err != nil {
			return err
		}
	}

	backend, release, err := a.summaryBackend(ctx, root.newBackend)
	if err != nil {
		return err
	}
	if release != nil {
		defer func() { _ = release() }()
	}

	fetcher := feedback.NewFetcher(a.client, a.creds, a.artifacts, a.log)
	extractor := feedback.NewExtractor(fetcher, a.entities, a.artifacts, a.log)
	summarizer := summarize.New(extractor, a.entities, backend, a.artifacts, summarize.Options{
		Enabled:      backend != nil,
		SelectCounts: cfg.SelectCounts,
		Logger:       a.log,
	})

	policy := pipeline.DefaultPolicy()
	if opts.strictFlags {
		policy = pipeline.Policy{}
	}
	orchestrator := pipeline.New(a.entities, extractor, summarizer, pipeline.Options{
		Parallelism: cfg.Parallelism,
		Policy:      policy,
		Out:         a.out,
		Logger:      a.log,
	})

	target := pipeline.All()
	if len(args) == 1 {
		target = pipeline.ParseTarget(args[0])
	}
	res, err := orchestrator.Run(ctx, target, opts.flags)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		for _, n := range res.ActiveNominees {
			a.printer.PrintSnapshot(res.Snapshots[n.ID])
		}
		a.printer.PrintRunSummary(res)
	}

	if opts.noRender {
		return nil
	}
	paths, err := rendering.Render(cfg.OutputDir, res)
	if err != nil {
		return fmt.Errorf("failed to render pages: %w", err)
	}
	_, _ = fmt.Fprintf(a.out, "Rendered %d pages to %s\n", len(paths), cfg.OutputDir)
	return nil
}

// summaryBackend returns nil when summaries are disabled in settings or no API
// key is available; a missing key disables summaries for this run only.
func (a *app) summaryBackend(ctx context.Context, factory backendFactory) (summarize.Backend, func() error, error) {
	settings, err := a.settings.Load()
	if err != nil {
		return nil, nil, err
	}
	if !settings.Summaries() {
		a.log.Info("summaries disabled in settings", logger.String("path", a.settings.Path()))
		return nil, nil, nil
	}

	key, ok, err := a.creds.APIKey(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		a.log.Warn("no API key available, summaries disabled for this run",
			logger.String("provider", a.llmConfig.Label()),
			logger.String("env", a.llmConfig.APIKeyEnv()))
		return nil, nil, nil
	}

	backend, release, err := factory(ctx, a.llmConfig, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s client: %w", a.llmConfig.Label(), err)
	}
	return backend, release, nil
}

// settingsStore is used by commands that only need settings
func settingsStore(cfg config.Config) *config.SettingsStore {
	return config.NewSettingsStore(cfg.ConfigDir)
}
