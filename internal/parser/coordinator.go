package parser

import (
	"regexp"
	"strings"

	"github.com/atikulmunna/loomwatch/internal/model"
)

// CoordinatorParser handles Python logging lines of the form
// "2025-12-10 10:30:45 - INFO - message".
type CoordinatorParser struct {
	re *regexp.Regexp
}

func NewCoordinatorParser() *CoordinatorParser {
	return &CoordinatorParser{
		re: regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) - (\w+) - (.+)`),
	}
}

func (p *CoordinatorParser) Parse(raw string) (model.LogEntry, bool) {
	m := p.re.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return model.LogEntry{}, false
	}

	ts, ok := parseLocal("2006-01-02 15:04:05", m[1])
	if !ok {
		return model.LogEntry{}, false
	}

	return model.LogEntry{
		Timestamp: ts,
		Service:   "coordinator",
		Level:     model.ParseLevel(m[2]),
		Message:   m[3],
	}, true
}
