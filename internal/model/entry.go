package model

import (
	"strings"
	"time"
)

// Level is the normalized severity of a log entry.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// IsError reports whether the level belongs in the error history.
func (l Level) IsError() bool {
	return l == LevelError || l == LevelCritical
}

// ParseLevel maps a literal level token from a source log to a Level.
// Unknown tokens and DEBUG map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WARNING", "WARN":
		return LevelWarning
	case "ERROR", "ERR":
		return LevelError
	case "CRITICAL", "CRIT", "FATAL", "ALERT", "EMERG":
		return LevelCritical
	default:
		return LevelInfo
	}
}

// LogEntry represents a single normalized log line.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Service   string         `json:"service"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Extra     map[string]any `json:"extra,omitempty"` // nil when the parser extracted nothing
}

// WithService returns a copy of the entry owned by the given service.
func (e LogEntry) WithService(service string) LogEntry {
	e.Service = service
	return e
}

// Path returns the request path carried in Extra, if any.
func (e LogEntry) Path() (string, bool) {
	if e.Extra == nil {
		return "", false
	}
	p, ok := e.Extra["path"].(string)
	if !ok || p == "" {
		return "", false
	}
	return p, true
}
