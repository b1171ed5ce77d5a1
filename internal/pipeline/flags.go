package pipeline

import (
	"github.com/jonathan/nomcom-feedback/internal/feedback"
	"github.com/jonathan/nomcom-feedback/internal/summarize"
)

// Flags are the invalidation switches of a run
type Flags struct {
	ForceAll      bool
	ForceMetadata bool
	ForceFeedback bool
	ForceParse    bool
	RedoSummary   bool
}

// Policy decides how forcing one stage propagates to the stages downstream of it.
// The zero value applies every flag literally.
type Policy struct {
	// FeedbackImpliesParse re-parses whenever raw feedback is refetched
	FeedbackImpliesParse bool
	// ParseImpliesSummary regenerates summaries whenever feedback is re-parsed
	ParseImpliesSummary bool
}

// DefaultPolicy cascades feedback into parse but leaves summaries alone,
// since regenerating them calls the summarization backend.
func DefaultPolicy() Policy {
	return Policy{FeedbackImpliesParse: true}
}

// Cascade resolves ForceAll and the policy into the effective per-stage flags.
// It is the only place flags propagate.
func Cascade(f Flags, p Policy) Flags {
	if f.ForceAll {
		return Flags{ForceAll: true, ForceMetadata: true, ForceFeedback: true, ForceParse: true, RedoSummary: true}
	}
	if p.FeedbackImpliesParse && f.ForceFeedback {
		f.ForceParse = true
	}
	if p.ParseImpliesSummary && f.ForceParse {
		f.RedoSummary = true
	}
	return f
}

func (f Flags) extraction() feedback.Flags {
	return feedback.Flags{ForceMetadata: f.ForceMetadata, ForceFeedback: f.ForceFeedback, ForceParse: f.ForceParse}
}

func (f Flags) summary() summarize.Flags {
	return summarize.Flags{
		ForceMetadata: f.ForceMetadata,
		ForceFeedback: f.ForceFeedback,
		ForceParse:    f.ForceParse,
		RedoSummary:   f.RedoSummary,
	}
}
