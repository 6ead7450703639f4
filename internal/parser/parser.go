package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atikulmunna/loomwatch/internal/model"
)

// Parser converts a raw log line into a normalized LogEntry.
// ok is false when the line does not match the grammar; such lines are dropped.
type Parser interface {
	Parse(raw string) (entry model.LogEntry, ok bool)
}

// now is the ingestion clock used by grammars that carry no timestamp.
var now = time.Now

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// StatusLevel maps an HTTP status code to a severity level.
func StatusLevel(code int) model.Level {
	switch {
	case code >= 500:
		return model.LevelError
	case code >= 400:
		return model.LevelWarning
	default:
		return model.LevelInfo
	}
}

// requestMessage formats the summary used by every access-log grammar.
func requestMessage(method, path string, status int) string {
	return fmt.Sprintf("%s %s → %d", method, path, status)
}

// requestExtra builds the structured fields shared by access-log grammars.
func requestExtra(method, path string, status int) map[string]any {
	return map[string]any{
		"method": method,
		"path":   path,
		"status": status,
	}
}

// atoi parses a decimal that the grammar regex already guaranteed is numeric.
func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// parseLocal parses a timestamp written in the monitored host's local time.
func parseLocal(layout, value string) (time.Time, bool) {
	t, err := time.ParseInLocation(layout, value, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// clip cuts s to n runes and appends an ellipsis when it was longer.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
