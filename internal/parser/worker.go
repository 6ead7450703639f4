package parser

import (
	"regexp"
	"strings"

	"github.com/atikulmunna/loomwatch/internal/model"
)

// ---------------------------------------------------------------------------
// Celery Parser
// ---------------------------------------------------------------------------

// CeleryParser handles Celery worker output. Structured lines look like
//
//	[2025-12-11 20:40:00,123: INFO/MainProcess] Task app.tasks.crawl[...] succeeded
//
// Anything else non-blank (tracebacks, stray prints) is still accepted and
// classified by keywords.
type CeleryParser struct {
	re  *regexp.Regexp
	exc *regexp.Regexp
}

func NewCeleryParser() *CeleryParser {
	return &CeleryParser{
		re:  regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}),\d+:\s+(\w+)/[^\]]+\]\s+(.+)`),
		exc: regexp.MustCompile(`(\w+(?:Error|Exception)):\s*(.+)`),
	}
}

func (p *CeleryParser) Parse(raw string) (model.LogEntry, bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return model.LogEntry{}, false
	}

	if m := p.re.FindStringSubmatch(line); m != nil {
		if ts, ok := parseLocal("2006-01-02 15:04:05", m[1]); ok {
			return model.LogEntry{
				Timestamp: ts,
				Service:   "celery",
				Level:     model.ParseLevel(m[2]),
				Message:   m[3],
			}, true
		}
	}

	return p.fallback(line), true
}

// fallback classifies an unstructured line by keywords.
func (p *CeleryParser) fallback(line string) model.LogEntry {
	entry := model.LogEntry{
		Timestamp: now(),
		Service:   "celery",
		Level:     model.LevelInfo,
		Message:   line,
	}

	switch {
	case containsAny(line, "Error:", "Exception:", "Traceback", "raise "):
		entry.Level = model.LevelError
	case containsAny(strings.ToLower(line), "warning", "warn"):
		entry.Level = model.LevelWarning
	}

	if containsAny(line, "Error:", "Exception:") {
		if m := p.exc.FindStringSubmatch(line); m != nil {
			entry.Message = m[1] + ": " + m[2]
			entry.Extra = map[string]any{"exception": m[1]}
		}
	}

	return entry
}

// ---------------------------------------------------------------------------
// Crawler Parser
// ---------------------------------------------------------------------------

// CrawlerParser handles freeform crawler node output such as
//
//	Discovered 31 links from https://example.com: 7 new, 24 duplicates
type CrawlerParser struct {
	discovered *regexp.Regexp
}

func NewCrawlerParser() *CrawlerParser {
	return &CrawlerParser{
		discovered: regexp.MustCompile(`Discovered (\d+) links from (\S+?): (\d+) new, (\d+) duplicates`),
	}
}

func (p *CrawlerParser) Parse(raw string) (model.LogEntry, bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return model.LogEntry{}, false
	}

	entry := model.LogEntry{
		Timestamp: now(),
		Service:   "crawler",
		Level:     keywordLevel(line),
		Message:   line,
	}

	if m := p.discovered.FindStringSubmatch(line); m != nil {
		total, _ := atoi(m[1])
		fresh, _ := atoi(m[3])
		dupes, _ := atoi(m[4])
		entry.Extra = map[string]any{
			"total_links":     total,
			"new_links":       fresh,
			"duplicate_links": dupes,
			"source_url":      m[2],
		}
		entry.Message = "Discovered " + m[3] + " new links from " + clip(m[2], 50)
	}

	return entry, true
}

// keywordLevel detects severity from keywords in a freeform line.
func keywordLevel(line string) model.Level {
	lower := strings.ToLower(line)
	switch {
	case containsAny(lower, "error", "exception", "failed", "traceback"):
		return model.LevelError
	case containsAny(lower, "warning", "warn"):
		return model.LevelWarning
	default:
		return model.LevelInfo
	}
}
