// Package store provides durable keyed storage for pipeline artifacts.
// Every cached unit (metadata lists, person profiles, raw feedback, parsed
// snapshots, summaries) is addressed by a structured Key.
package store

import (
	"fmt"
	"net/url"
	"strings"
)

// Stage identifies the kind of artifact a Key addresses
type Stage string

// Artifact stages
const (
	StagePositions        Stage = "positions"
	StageNominees         Stage = "nominees"
	StageNomineePositions Stage = "nominee_positions"
	StageTopics           Stage = "topics"
	StageEmails           Stage = "emails"
	StagePersons          Stage = "persons"
	StageRawFeedback      Stage = "feedback_html"
	StageSnapshot         Stage = "feedback_json"
	StageNomineeSummary   Stage = "summary_nominee"
	StagePositionSummary  Stage = "summary_position"
)

// shape describes which parts a stage's keys carry
type shape struct {
	id       bool
	position bool
}

var stageShapes = map[Stage]shape{
	StagePositions:        {},
	StageNominees:         {},
	StageNomineePositions: {},
	StageTopics:           {},
	StageEmails:           {id: true},
	StagePersons:          {id: true},
	StageRawFeedback:      {id: true},
	StageSnapshot:         {id: true},
	StageNomineeSummary:   {id: true, position: true},
	StagePositionSummary:  {position: true},
}

// Key addresses one artifact. Stage is the tag; ID and Position are set
// according to the stage (see the constructors below).
type Key struct {
	Stage    Stage
	ID       string
	Position string
}

// PositionsKey addresses the positions list
func PositionsKey() Key { return Key{Stage: StagePositions} }

// NomineesKey addresses the nominees list
func NomineesKey() Key { return Key{Stage: StageNominees} }

// NomineePositionsKey addresses the nominee-position states list
func NomineePositionsKey() Key { return Key{Stage: StageNomineePositions} }

// TopicsKey addresses the topics list
func TopicsKey() Key { return Key{Stage: StageTopics} }

// EmailKey addresses the person id resolved for an email address
func EmailKey(email string) Key { return Key{Stage: StageEmails, ID: email} }

// PersonKey addresses a person profile
func PersonKey(personID string) Key { return Key{Stage: StagePersons, ID: personID} }

// RawFeedbackKey addresses the raw feedback markup of a nominee
func RawFeedbackKey(nomineeID string) Key { return Key{Stage: StageRawFeedback, ID: nomineeID} }

// SnapshotKey addresses the parsed feedback snapshot of a nominee
func SnapshotKey(nomineeID string) Key { return Key{Stage: StageSnapshot, ID: nomineeID} }

// NomineeSummaryKey addresses the summary for a nominee and position
func NomineeSummaryKey(nomineeID, position string) Key {
	return Key{Stage: StageNomineeSummary, ID: nomineeID, Position: position}
}

// PositionSummaryKey addresses the summary across all nominees for a position
func PositionSummaryKey(position string) Key {
	return Key{Stage: StagePositionSummary, Position: position}
}

// Validate checks that the key carries exactly the parts its stage requires
func (k Key) Validate() error {
	s, ok := stageShapes[k.Stage]
	if !ok {
		return &KeyError{Key: k, Message: "unknown stage"}
	}
	if s.id != (k.ID != "") {
		return &KeyError{Key: k, Message: "id part mismatch"}
	}
	if s.position != (k.Position != "") {
		return &KeyError{Key: k, Message: "position part mismatch"}
	}
	return nil
}

// String serializes the key as "stage[/id][/position]" with each part path-escaped.
func (k Key) String() string {
	parts := []string{string(k.Stage)}
	if k.ID != "" {
		parts = append(parts, url.PathEscape(k.ID))
	}
	if k.Position != "" {
		parts = append(parts, url.PathEscape(k.Position))
	}
	return strings.Join(parts, "/")
}

// ParseKey is the inverse of Key.String
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "/")
	k := Key{Stage: Stage(parts[0])}
	shp, ok := stageShapes[k.Stage]
	if !ok {
		return Key{}, &KeyError{Key: k, Message: fmt.Sprintf("unknown stage in %q", s)}
	}

	want := 1
	if shp.id {
		want++
	}
	if shp.position {
		want++
	}
	if len(parts) != want {
		return Key{}, &KeyError{Key: k, Message: fmt.Sprintf("expected %d parts in %q", want, s)}
	}

	rest := parts[1:]
	unescape := func(p string) (string, error) {
		v, err := url.PathUnescape(p)
		if err != nil {
			return "", &KeyError{Key: k, Message: fmt.Sprintf("bad escape in %q", s)}
		}
		return v, nil
	}
	var err error
	if shp.id {
		if k.ID, err = unescape(rest[0]); err != nil {
			return Key{}, err
		}
		rest = rest[1:]
	}
	if shp.position {
		if k.Position, err = unescape(rest[0]); err != nil {
			return Key{}, err
		}
	}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}
