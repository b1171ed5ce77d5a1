package types

// SummaryKind classifies a summary result
type SummaryKind string

// Summary kinds
const (
	SummaryGenerated  SummaryKind = "generated"
	SummaryNoFeedback SummaryKind = "no_feedback"
	SummaryNoNominees SummaryKind = "no_nominees"
	SummaryDisabled   SummaryKind = "disabled"
	SummaryError      SummaryKind = "error"
)

// SummaryScope identifies what a summary covers.
// An empty NomineeID means the summary covers every nominee for the position.
type SummaryScope struct {
	NomineeID string `json:"nominee_id,omitempty"`
	Position  string `json:"position"`
}

// Summary is a generated synopsis (an HTML fragment) for a scope
type Summary struct {
	Scope     SummaryScope `json:"scope"`
	Kind      SummaryKind  `json:"kind"`
	Text      string       `json:"text"`
	Succeeded bool         `json:"succeeded"`
}
