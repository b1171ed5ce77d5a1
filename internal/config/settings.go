package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SettingsFile is the name of the mutable settings file inside the config directory
const SettingsFile = "settings.json"

// Settings is mutable user state persisted between runs, separate from Config
type Settings struct {
	SummariesEnabled *bool  `json:"summaries_enabled,omitempty"`
	APIKey           string `json:"api_key,omitempty"`
}

// Summaries reports whether summaries are enabled. Unset means enabled.
func (s Settings) Summaries() bool {
	return s.SummariesEnabled == nil || *s.SummariesEnabled
}

// SettingsStore loads and saves Settings in {config_dir}/settings.json
type SettingsStore struct {
	path string
	mu   sync.Mutex
}

// NewSettingsStore creates a store for the settings file in configDir
func NewSettingsStore(configDir string) *SettingsStore {
	return &SettingsStore{path: filepath.Join(configDir, SettingsFile)}
}

// Path returns the settings file path
func (s *SettingsStore) Path() string {
	return s.path
}

// Load reads the settings; a missing file yields zero Settings
func (s *SettingsStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SettingsStore) load() (Settings, error) {
	var settings Settings
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings JSON: %w", err)
	}
	return settings, nil
}

// Update applies fn to the current settings and writes the result
func (s *SettingsStore) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load()
	if err != nil {
		return settings, err
	}
	fn(&settings)

	data, err := json.MarshalIndent(settings, "", "    ")
	if err != nil {
		return settings, fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return settings, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0600); err != nil {
		return settings, fmt.Errorf("failed to write settings %s: %w", s.path, err)
	}
	return settings, nil
}

// SetSummaries persists the summaries toggle
func (s *SettingsStore) SetSummaries(enabled bool) error {
	_, err := s.Update(func(st *Settings) { st.SummariesEnabled = &enabled })
	return err
}

// SetAPIKey persists the summarization API key
func (s *SettingsStore) SetAPIKey(key string) error {
	_, err := s.Update(func(st *Settings) { st.APIKey = key })
	return err
}
