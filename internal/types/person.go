package types

// ActivityCounters summarizes a person's participation
type ActivityCounters struct {
	MeetingsAttended int `json:"num_meetings_attended"`
	Documents        int `json:"num_documents"`
	IndividualDrafts int `json:"num_individual_drafts"`
	WGDrafts         int `json:"num_wg_drafts"`
	RFCs             int `json:"num_rfcs"`
}

// Activity returns the combined meetings and documents count used for ranking nominees
func (c ActivityCounters) Activity() int {
	return c.MeetingsAttended + c.Documents
}

// PersonProfile is a Datatracker person resolved from a nominee's email
type PersonProfile struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Photo      string           `json:"photo,omitempty"`
	PhotoThumb string           `json:"photo_thumb,omitempty"`
	Counters   ActivityCounters `json:"activity_counters"`
}
