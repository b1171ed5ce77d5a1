package pipeline

import (
	"strconv"
	"strings"
)

// TargetKind selects what a run covers
type TargetKind int

// Target kinds
const (
	TargetAll TargetKind = iota
	TargetNominee
	TargetPosition
)

// Target is what a run processes: everything, one nominee or one position
type Target struct {
	Kind TargetKind
	// ID is the nominee id or position short name
	ID string
}

// All targets every active nominee and every position
func All() Target { return Target{Kind: TargetAll} }

// ForNominee targets one nominee and the positions they accepted
func ForNominee(id string) Target { return Target{Kind: TargetNominee, ID: id} }

// ForPosition targets one position and its active nominees
func ForPosition(shortName string) Target { return Target{Kind: TargetPosition, ID: shortName} }

// ParseTarget reads a command-line argument: empty means All, a number is a
// nominee id, anything else a position short name.
func ParseTarget(arg string) Target {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return All()
	}
	if _, err := strconv.Atoi(arg); err == nil {
		return ForNominee(arg)
	}
	return ForPosition(arg)
}

func (t Target) String() string {
	switch t.Kind {
	case TargetNominee:
		return "nominee " + t.ID
	case TargetPosition:
		return "position " + t.ID
	default:
		return "all"
	}
}
