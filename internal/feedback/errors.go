package feedback

import "fmt"

// ParseError reports feedback markup that could not be interpreted
type ParseError struct {
	NomineeID string
	Message   string
	Cause     error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to parse feedback for nominee %s: %s: %v", e.NomineeID, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to parse feedback for nominee %s: %s", e.NomineeID, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
