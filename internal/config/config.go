// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	DataDir   string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`     // Artifact cache root (file backend)
	ConfigDir string `json:"config_dir,omitempty" yaml:"config_dir,omitempty"` // Holds settings.json and session_id.txt
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"` // Rendered HTML pages

	// Datatracker
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	NomcomID   string `json:"nomcom_id,omitempty" yaml:"nomcom_id,omitempty" validate:"omitempty,numeric"`
	NomcomYear string `json:"nomcom_year,omitempty" yaml:"nomcom_year,omitempty" validate:"omitempty,len=4,numeric"`

	// Storage
	Store       string `json:"store,omitempty" yaml:"store,omitempty" validate:"omitempty,oneof=file sqlite postgres"`
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL

	// Summaries
	LLMProvider  string         `json:"llm_provider,omitempty" yaml:"llm_provider,omitempty" validate:"omitempty,oneof=gemini anthropic"`
	LLMModel     string         `json:"llm_model,omitempty" yaml:"llm_model,omitempty"`
	SelectCounts map[string]int `json:"select_counts,omitempty" yaml:"select_counts,omitempty" validate:"omitempty,dive,keys,required,endkeys,min=1"`

	// Behavior
	Parallelism int    `json:"parallelism,omitempty" yaml:"parallelism,omitempty" validate:"gte=0,lte=32"`
	HTTPTimeout int    `json:"http_timeout,omitempty" yaml:"http_timeout,omitempty" validate:"gte=0"` // Seconds
	LogLevel    string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat   string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,oneof=console json"`
	Verbose     bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"` // Print detailed debug information
}

// Defaults returns the configuration used when nothing else is specified
func Defaults() Config {
	return Config{
		DataDir:      "data",
		ConfigDir:    "config",
		OutputDir:    "output",
		BaseURL:      "https://datatracker.ietf.org",
		NomcomID:     "16",
		NomcomYear:   "2025",
		Store:        "file",
		LLMProvider:  "gemini",
		SelectCounts: map[string]int{"IAB": 6},
		Parallelism:  1,
		HTTPTimeout:  30,
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// LoadConfig loads configuration from a JSON or YAML file (chosen by extension).
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ValidationError describes configuration fields that failed validation
type ValidationError struct {
	Fields []string
	Cause  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config error: invalid %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

var validate = validator.New()

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by defaults after merging.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
		} else {
			fields = []string{err.Error()}
		}
		return &ValidationError{Fields: fields, Cause: err}
	}

	if c.Store == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("config error: 'store: postgres' requires 'database_url' or DATABASE_URL")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&result.DataDir, defaults.DataDir)
	fill(&result.ConfigDir, defaults.ConfigDir)
	fill(&result.OutputDir, defaults.OutputDir)
	fill(&result.BaseURL, defaults.BaseURL)
	fill(&result.NomcomID, defaults.NomcomID)
	fill(&result.NomcomYear, defaults.NomcomYear)
	fill(&result.Store, defaults.Store)
	fill(&result.SQLitePath, defaults.SQLitePath)
	fill(&result.DatabaseURL, defaults.DatabaseURL)
	fill(&result.LLMProvider, defaults.LLMProvider)
	fill(&result.LLMModel, defaults.LLMModel)
	fill(&result.LogLevel, defaults.LogLevel)
	fill(&result.LogFormat, defaults.LogFormat)

	// Int fields: use default if zero
	if result.Parallelism == 0 {
		result.Parallelism = defaults.Parallelism
	}
	if result.HTTPTimeout == 0 {
		result.HTTPTimeout = defaults.HTTPTimeout
	}

	if result.SelectCounts == nil && defaults.SelectCounts != nil {
		result.SelectCounts = make(map[string]int, len(defaults.SelectCounts))
		for k, v := range defaults.SelectCounts {
			result.SelectCounts[k] = v
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ApplyEnv fills values that may come from the environment.
// Explicit configuration wins over the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
}

// Timeout returns the HTTP timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// EffectiveLogLevel returns debug when verbose, otherwise the configured level
func (c *Config) EffectiveLogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}
