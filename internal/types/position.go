// Package types provides type definitions for structured data used throughout the nomcom-feedback system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"regexp"
	"strings"
)

// Position is an open role being filled by the nomination process
type Position struct {
	ShortName          string `json:"short_name"`
	FullName           string `json:"full_name"`
	IsPrimaryBoardSeat bool   `json:"is_primary_board_seat"`
	ResourceURI        string `json:"resource_uri"`
}

// knownShortNames maps Datatracker position names to the short names used in reports
var knownShortNames = map[string]string{
	"Applications and Real Time (ART) AD": "ART",
	"Internet Architecture Board, Member": "IAB",
	"IETF LLC Board, Director":            "LLC",
	"IETF Trust, Trustee":                 "Trust",
	"IETF Chair / GEN AD":                 "GEN",
	"Internet (INT) AD":                   "INT",
	"Operations and Management (OPS) AD":  "OPS",
	"Routing (RTG) AD":                    "RTG",
	"Security (SEC) AD":                   "SEC",
	"Web and Internet Transport (WIT) AD": "WIT",
}

var acronymPattern = regexp.MustCompile(`\(([A-Za-z]{2,})\)`)

// PositionShortName derives the short name for a position's full name.
// Known names use the fixed table; otherwise a parenthesised acronym is used,
// and failing that the trimmed full name itself.
func PositionShortName(fullName string) string {
	name := strings.TrimSpace(fullName)
	if short, ok := knownShortNames[name]; ok {
		return short
	}
	if m := acronymPattern.FindStringSubmatch(name); m != nil {
		return strings.ToUpper(m[1])
	}
	return name
}

// Topic is a NomCom feedback topic (questions asked of the community)
type Topic struct {
	ID      int    `json:"id"`
	Subject string `json:"subject"`
}
