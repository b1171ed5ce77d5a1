package summarize

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jonathan/nomcom-feedback/internal/llm"
	"github.com/jonathan/nomcom-feedback/internal/prompts"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

const promptFile = "summarize.json"

// Request is one summarization call
type Request struct {
	Strategy Strategy
	Position types.Position
	// Nominee is the nominee's display name; empty for position-wide summaries
	Nominee string
	Text    string
}

// Backend turns feedback text into an HTML fragment. It may fail.
type Backend interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// LLMBackend summarizes with an llm.Client
type LLMBackend struct {
	client llm.Client
}

// NewLLMBackend creates a backend over client
func NewLLMBackend(client llm.Client) *LLMBackend {
	return &LLMBackend{client: client}
}

// Summarize renders the strategy's prompt, calls the model and keeps the HTML fragment of the answer
func (b *LLMBackend) Summarize(ctx context.Context, req Request) (string, error) {
	key, tier := promptFor(req.Strategy)
	prompt, err := prompts.Render(promptFile, key, map[string]string{
		"Nominee":      req.Nominee,
		"Position":     req.Position.ShortName,
		"PositionName": req.Position.FullName,
		"Count":        strconv.Itoa(req.Strategy.Count),
		"Feedback":     req.Text,
	})
	if err != nil {
		return "", err
	}

	text, err := b.client.GenerateContent(ctx, prompt, tier)
	if err != nil {
		return "", err
	}
	fragment := llm.ExtractHTMLFragment(text)
	if fragment == "" {
		return "", fmt.Errorf("empty summary from %s", b.client.GetModel(tier))
	}
	return fragment, nil
}

func promptFor(s Strategy) (string, llm.ModelTier) {
	switch s.Kind {
	case KindSelectMany:
		return "position-select-many", llm.TierAdvanced
	case KindSelectOne:
		return "position-select-one", llm.TierAdvanced
	default:
		return "nominee-synopsis", llm.TierStandard
	}
}
