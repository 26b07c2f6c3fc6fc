package logger

import (
	"go.uber.org/zap"
)

// Standard field names for structured logging across the agent.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldState     = "state"
	FieldURL       = "url"
	FieldFile      = "file"

	// Heartbeat
	FieldServer     = "server"
	FieldUsers      = "users"
	FieldEnergy     = "energy"
	FieldGeneration = "generation"
	FieldDelayMS    = "delay_ms"

	// Comments bridge
	FieldDocID     = "doc_id"
	FieldCommentID = "comment_id"
	FieldBytesIn   = "bytes_in"
	FieldBytesOut  = "bytes_out"
	FieldCount     = "count"

	// Runtime bootstrap
	FieldSource  = "source"
	FieldVersion = "version"
	FieldAttempt = "attempt"

	FieldDurationMS = "duration_ms"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Manager struct {
//	    log *zap.SugaredLogger
//	}
//
//	func NewManager() *Manager {
//	    return &Manager{log: logger.ComponentLogger("heartbeat")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}

// Named returns a child of l called name, or a no-op logger when l is nil
func Named(l *zap.SugaredLogger, name string) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l.Named(name)
}
