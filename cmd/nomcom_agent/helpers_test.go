package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/nomcom-feedback/internal/datatracker/dttest"
	"github.com/jonathan/nomcom-feedback/internal/llm"
	"github.com/jonathan/nomcom-feedback/internal/summarize"
)

type stubBackend struct {
	mu    sync.Mutex
	calls int
}

func (b *stubBackend) Summarize(_ context.Context, req summarize.Request) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return fmt.Sprintf("<p>stub %s summary</p>", req.Position.ShortName), nil
}

// cliEnv is a throwaway workspace wired to a fake Datatracker
type cliEnv struct {
	t          *testing.T
	srv        *dttest.Server
	dir        string
	configPath string
	env        map[string]string
	backend    *stubBackend
	stdin      string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	fixture, err := os.ReadFile(filepath.Join("..", "..", "internal", "feedback", "testdata", "nominee_42.html"))
	require.NoError(t, err)

	srv := dttest.New("16", "2025")
	t.Cleanup(srv.Close)
	srv.Session = "s3cret"
	srv.Positions = []dttest.Position{
		{ID: 1, Name: "Applications and Real Time (ART) AD", IsIESGPosition: true},
		{ID: 2, Name: "Internet Architecture Board, Member"},
	}
	srv.Nominees = []dttest.Nominee{
		{ID: 42, PersonID: 7, Name: "Ada Lovelace", Email: "ada@example.com", States: map[int]string{1: "accepted"}, Meetings: 12, Documents: []string{"rfc9000"}, FeedbackHTML: string(fixture)},
		{ID: 43, PersonID: 8, Name: "Grace Hopper", Email: "grace@example.com", States: map[int]string{2: "accepted"}, Meetings: 40, FeedbackHTML: `<div role="tabpanel" id="comment"></div>`},
	}
	srv.Topics = []string{"Leadership", "Diversity"}

	dir := t.TempDir()
	configPath := filepath.Join(dir, "nomcom.yaml")
	cfg := fmt.Sprintf(`base_url: %s
nomcom_id: "16"
nomcom_year: "2025"
data_dir: %s
config_dir: %s
output_dir: %s
log_level: error
`, srv.URL, filepath.Join(dir, "data"), filepath.Join(dir, "config"), filepath.Join(dir, "output"))
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0644))

	return &cliEnv{
		t:          t,
		srv:        srv,
		dir:        dir,
		configPath: configPath,
		env:        map[string]string{SessionEnv: "s3cret"},
		backend:    &stubBackend{},
	}
}

func (e *cliEnv) getenv(key string) string { return e.env[key] }

func (e *cliEnv) factory(context.Context, *llm.Config, string) (summarize.Backend, func() error, error) {
	return e.backend, nil, nil
}

// run executes the CLI in-process and returns its stdout
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	root := newRootCmd(&rootOptions{getenv: e.getenv, newBackend: e.factory})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(e.stdin))
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *cliEnv) path(parts ...string) string {
	return filepath.Join(append([]string{e.dir}, parts...)...)
}
