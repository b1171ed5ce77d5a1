package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/nomcom-feedback/internal/config"
	"github.com/jonathan/nomcom-feedback/internal/credentials"
	"github.com/jonathan/nomcom-feedback/internal/datatracker"
	"github.com/jonathan/nomcom-feedback/internal/entities"
	"github.com/jonathan/nomcom-feedback/internal/llm"
	"github.com/jonathan/nomcom-feedback/internal/logger"
	"github.com/jonathan/nomcom-feedback/internal/observability"
	"github.com/jonathan/nomcom-feedback/internal/store"
	"github.com/jonathan/nomcom-feedback/internal/summarize"
)

// SessionEnv overrides the stored Datatracker session token
const SessionEnv = "DATATRACKER_SESSION_ID"

// app holds the wiring shared by the subcommands
type app struct {
	cfg       config.Config
	llmConfig *llm.Config
	log       logger.Logger
	out       io.Writer
	printer   *observability.Printer
	artifacts store.Store
	client    *datatracker.Client
	entities  *entities.Store
	settings  *config.SettingsStore
	creds     *credentials.FileProvider
}

// backendFactory creates the summarization backend; the returned func releases it
type backendFactory func(ctx context.Context, cfg *llm.Config, apiKey string) (summarize.Backend, func() error, error)

func llmBackend(ctx context.Context, cfg *llm.Config, apiKey string) (summarize.Backend, func() error, error) {
	client, err := llm.NewClient(ctx, cfg, apiKey)
	if err != nil {
		return nil, nil, err
	}
	return summarize.NewLLMBackend(client), client.Close, nil
}

// loadConfig resolves configuration: config file, then defaults, then environment.
// Flags are applied by the caller afterwards.
func loadConfig(opts *rootOptions) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	if opts.verbose {
		cfg.Verbose = true
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())
	cfg.ApplyEnv(opts.getenv)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newApp wires the shared components. Callers must call close.
func newApp(ctx context.Context, cmd *cobra.Command, opts *rootOptions, cfg config.Config) (*app, error) {
	log, err := logger.New(logger.Config{Level: cfg.EffectiveLogLevel(), Format: cfg.LogFormat})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	artifacts, err := store.Open(ctx, store.Options{
		Backend:     cfg.Store,
		Dir:         cfg.DataDir,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}

	client := datatracker.New(&datatracker.Options{
		BaseURL:    cfg.BaseURL,
		NomcomID:   cfg.NomcomID,
		NomcomYear: cfg.NomcomYear,
		Timeout:    cfg.Timeout(),
		Logger:     log,
	})

	llmConfig := llm.ConfigFor(cfg.LLMProvider, cfg.LLMModel)
	settings := config.NewSettingsStore(cfg.ConfigDir)
	creds := credentials.NewFileProvider(credentials.Options{
		ConfigDir:   cfg.ConfigDir,
		Settings:    settings,
		Prompt:      credentials.TerminalPrompt(cmd.InOrStdin(), cmd.ErrOrStderr()),
		Getenv:      opts.getenv,
		SessionEnv:  SessionEnv,
		APIKeyEnv:   llmConfig.APIKeyEnv(),
		APIKeyLabel: llmConfig.Label(),
	})

	return &app{
		cfg:       cfg,
		llmConfig: llmConfig,
		log:       log,
		out:       cmd.OutOrStdout(),
		printer:   observability.NewPrinter(cmd.OutOrStdout()),
		artifacts: artifacts,
		client:    client,
		entities:  entities.New(client, artifacts, log),
		settings:  settings,
		creds:     creds,
	}, nil
}

func (a *app) close() {
	if err := a.artifacts.Close(); err != nil {
		a.log.Warn("failed to close store", logger.Error(err))
	}
	_ = a.log.Sync()
}

// parseOnOff reads an on|off flag value
func parseOnOff(flag, value string) (bool, error) {
	switch value {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("--%s must be 'on' or 'off', got %q", flag, value)
	}
}
