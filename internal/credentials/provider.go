// Package credentials supplies the Datatracker session token and the
// summarization API key, prompting the user once when neither the environment
// nor the config directory has one.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jonathan/nomcom-feedback/internal/config"
)

// SessionFile is the name of the session token file inside the config directory
const SessionFile = "session_id.txt"

// ErrNoSessionToken is returned when no session token could be obtained
var ErrNoSessionToken = errors.New("no datatracker session token")

// PromptFunc asks the user a question and returns the answer.
// Implementations may block; they must honour ctx.
type PromptFunc func(ctx context.Context, question string) (string, error)

// Provider supplies credentials to the pipeline stages
type Provider interface {
	// SessionToken returns the Datatracker session token. It is an error if none can be obtained.
	SessionToken(ctx context.Context) (string, error)
	// APIKey returns the summarization API key. ok is false when no key is available,
	// which disables summaries for the run rather than failing it.
	APIKey(ctx context.Context) (key string, ok bool, err error)
}

// FileProvider reads credentials from the environment, then the config directory,
// then the prompt. Answers from the prompt are persisted.
type FileProvider struct {
	configDir   string
	settings    *config.SettingsStore
	prompt      PromptFunc
	getenv      func(string) string
	sessionEnv  string
	apiKeyEnv   string
	apiKeyLabel string

	mu        sync.Mutex
	session   string
	apiKey    string
	apiKeySet bool
}

// Options configures a FileProvider
type Options struct {
	ConfigDir string
	Settings  *config.SettingsStore
	Prompt    PromptFunc
	// Getenv defaults to os.Getenv
	Getenv func(string) string
	// SessionEnv names the environment variable holding the session token
	SessionEnv string
	// APIKeyEnv names the environment variable holding the API key (e.g. GEMINI_API_KEY)
	APIKeyEnv string
	// APIKeyLabel is used in the prompt, e.g. "Gemini"
	APIKeyLabel string
}

// NewFileProvider creates a FileProvider
func NewFileProvider(opts Options) *FileProvider {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	settings := opts.Settings
	if settings == nil {
		settings = config.NewSettingsStore(opts.ConfigDir)
	}
	label := opts.APIKeyLabel
	if label == "" {
		label = "summarization"
	}
	return &FileProvider{
		configDir:   opts.ConfigDir,
		settings:    settings,
		prompt:      opts.Prompt,
		getenv:      getenv,
		sessionEnv:  opts.SessionEnv,
		apiKeyEnv:   opts.APIKeyEnv,
		apiKeyLabel: label,
	}
}

// SessionToken returns the session token, prompting at most once per provider
func (p *FileProvider) SessionToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != "" {
		return p.session, nil
	}
	if p.sessionEnv != "" {
		if v := strings.TrimSpace(p.getenv(p.sessionEnv)); v != "" {
			p.session = v
			return v, nil
		}
	}

	path := filepath.Join(p.configDir, SessionFile)
	data, err := os.ReadFile(path)
	if err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			p.session = v
			return v, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read session token %s: %w", path, err)
	}

	if p.prompt == nil {
		return "", ErrNoSessionToken
	}
	answer, err := p.prompt(ctx, "Please enter your IETF Datatracker session ID: ")
	if err != nil {
		return "", fmt.Errorf("failed to read session token: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrNoSessionToken
	}

	if err := os.MkdirAll(p.configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(answer), 0600); err != nil {
		return "", fmt.Errorf("failed to save session token: %w", err)
	}
	p.session = answer
	return answer, nil
}

// APIKey returns the API key. An empty prompt answer or a missing prompt means no key.
func (p *FileProvider) APIKey(ctx context.Context) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.apiKeySet {
		return p.apiKey, p.apiKey != "", nil
	}
	if p.apiKeyEnv != "" {
		if v := strings.TrimSpace(p.getenv(p.apiKeyEnv)); v != "" {
			p.remember(v)
			return v, true, nil
		}
	}

	settings, err := p.settings.Load()
	if err != nil {
		return "", false, err
	}
	if settings.APIKey != "" {
		p.remember(settings.APIKey)
		return settings.APIKey, true, nil
	}

	if p.prompt == nil {
		p.remember("")
		return "", false, nil
	}
	answer, err := p.prompt(ctx, fmt.Sprintf("Please enter your %s API key: ", p.apiKeyLabel))
	if err != nil {
		return "", false, fmt.Errorf("failed to read API key: %w", err)
	}
	answer = strings.TrimSpace(answer)
	p.remember(answer)
	if answer == "" {
		return "", false, nil
	}
	if err := p.settings.SetAPIKey(answer); err != nil {
		return "", false, err
	}
	return answer, true, nil
}

func (p *FileProvider) remember(key string) {
	p.apiKey = key
	p.apiKeySet = true
}

// Static is a Provider with fixed values, used by tests and non-interactive runs
type Static struct {
	Session string
	Key     string
}

// SessionToken returns the fixed session token
func (s Static) SessionToken(context.Context) (string, error) {
	if s.Session == "" {
		return "", ErrNoSessionToken
	}
	return s.Session, nil
}

// APIKey returns the fixed API key
func (s Static) APIKey(context.Context) (string, bool, error) {
	return s.Key, s.Key != "", nil
}
