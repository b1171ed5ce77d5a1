// Package prompts holds the summarization prompt catalog.
// Each embedded JSON file maps a prompt key to a text/template body; files are
// parsed and compiled once, on first use.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"text/template"
)

//go:embed *.json
var promptFiles embed.FS

// Catalog is the compiled set of prompts from one file
type Catalog struct {
	File      string
	templates map[string]*template.Template
}

var (
	catalogs   = make(map[string]*Catalog)
	catalogsMu sync.Mutex
)

// Load returns the compiled catalog for filename (e.g. "summarize.json")
func Load(filename string) (*Catalog, error) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()

	if c, ok := catalogs[filename]; ok {
		return c, nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	c := &Catalog{File: filename, templates: make(map[string]*template.Template, len(raw))}
	for key, body := range raw {
		tmpl, err := template.New(key).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("prompt %q in %s: %w", key, filename, err)
		}
		c.templates[key] = tmpl
	}
	catalogs[filename] = c
	return c, nil
}

// Keys lists the prompt keys in sorted order
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.templates))
	for k := range c.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render executes the prompt for key. Every placeholder must be present in data.
func (c *Catalog) Render(key string, data map[string]string) (string, error) {
	tmpl, ok := c.templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, c.File)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", key, err)
	}
	return buf.String(), nil
}

// Render loads filename and renders key in one step
func Render(filename, key string, data map[string]string) (string, error) {
	c, err := Load(filename)
	if err != nil {
		return "", err
	}
	return c.Render(key, data)
}

// Reset drops compiled catalogs. Tests use it.
func Reset() {
	catalogsMu.Lock()
	catalogs = make(map[string]*Catalog)
	catalogsMu.Unlock()
}
