package logger

import "go.uber.org/zap"

// NewNop returns a Logger that discards everything. Used by tests and library callers
// that do not configure logging.
func NewNop() Logger {
	return &zapLogger{logger: zap.NewNop()}
}
