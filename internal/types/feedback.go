package types

// FeedbackRecord is a single feedback entry about a nominee.
// Subject is set only for self-submitted feedback.
type FeedbackRecord struct {
	AuthorName  string `json:"name"`
	AuthorEmail string `json:"email"`
	Date        string `json:"date"`
	Text        string `json:"feedback"`
	Subject     string `json:"subject,omitempty"`
}

// IsSelf reports whether the record was submitted by the nominee
func (r FeedbackRecord) IsSelf() bool {
	return r.Subject != ""
}

// FeedbackSnapshot is the parsed feedback for one nominee, grouped by position short name.
// Records keep document order within each position.
type FeedbackSnapshot struct {
	NomineeID          string                      `json:"nominee_id"`
	Person             PersonProfile               `json:"person_profile"`
	FeedbackByPosition map[string][]FeedbackRecord `json:"feedback_by_position"`
}

// Community returns the records for a position that were not self-submitted
func (s *FeedbackSnapshot) Community(position string) []FeedbackRecord {
	var out []FeedbackRecord
	for _, r := range s.FeedbackByPosition[position] {
		if !r.IsSelf() {
			out = append(out, r)
		}
	}
	return out
}

// Self returns the self-submitted records for a position
func (s *FeedbackSnapshot) Self(position string) []FeedbackRecord {
	var out []FeedbackRecord
	for _, r := range s.FeedbackByPosition[position] {
		if r.IsSelf() {
			out = append(out, r)
		}
	}
	return out
}
