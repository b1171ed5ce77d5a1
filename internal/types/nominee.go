package types

import (
	"encoding/json"
	"strings"
)

// PositionState is the state of a nominee for a given position
type PositionState string

// Position states reported by the Datatracker
const (
	StateAccepted PositionState = "accepted"
	StateDeclined PositionState = "declined"
	StatePending  PositionState = "pending"
	StateUnknown  PositionState = "unknown"
)

// ParsePositionState extracts the state from a state resource URI such as
// "/api/v1/name/nomineepositionstatename/accepted/". Unrecognised values map to StateUnknown.
func ParsePositionState(uri string) PositionState {
	switch PositionState(LastPathSegment(uri)) {
	case StateAccepted:
		return StateAccepted
	case StateDeclined:
		return StateDeclined
	case StatePending:
		return StatePending
	default:
		return StateUnknown
	}
}

// Nominee identifies a candidate under consideration
type Nominee struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	ResourceURI  string          `json:"resource_uri"`
	PositionURIs []string        `json:"nominee_position"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// NomineePositionState relates a nominee to a position
type NomineePositionState struct {
	NomineeURI  string        `json:"nominee"`
	PositionURI string        `json:"position"`
	State       PositionState `json:"state"`
}

// LastPathSegment returns the last non-empty segment of a resource path,
// e.g. "/api/v1/person/person/123/" -> "123".
func LastPathSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
