package parser

import (
	"regexp"
	"strings"

	"github.com/atikulmunna/loomwatch/internal/model"
)

// ---------------------------------------------------------------------------
// Uvicorn Parser
// ---------------------------------------------------------------------------

// UvicornParser handles uvicorn/FastAPI access lines:
//
//	INFO:     172.18.0.7:35800 - "POST /api/v1/urls/159356/crawling HTTP/1.1" 200 OK
//
// The literal level wins unless it is INFO, in which case the status decides.
type UvicornParser struct {
	re *regexp.Regexp
}

func NewUvicornParser() *UvicornParser {
	return &UvicornParser{
		re: regexp.MustCompile(`(\w+):\s+(\S+)\s+-\s+"(\w+)\s+(\S+)\s+HTTP/[\d.]+"\s+(\d+)`),
	}
}

func (p *UvicornParser) Parse(raw string) (model.LogEntry, bool) {
	m := p.re.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return model.LogEntry{}, false
	}

	client, method, path := m[2], m[3], m[4]
	status, ok := atoi(m[5])
	if !ok {
		return model.LogEntry{}, false
	}

	level := model.ParseLevel(m[1])
	if level == model.LevelInfo {
		level = StatusLevel(status)
	}

	extra := requestExtra(method, path, status)
	extra["client"] = client

	return model.LogEntry{
		Timestamp: now(),
		Service:   "api",
		Level:     level,
		Message:   requestMessage(method, path, status),
		Extra:     extra,
	}, true
}

// ---------------------------------------------------------------------------
// Gin Parser
// ---------------------------------------------------------------------------

// GinParser handles Gin's default access lines:
//
//	[GIN] 2025/12/11 - 20:36:00 | 200 |     294.081µs |             ::1 | GET      "/api/tags"
type GinParser struct {
	re *regexp.Regexp
}

func NewGinParser() *GinParser {
	return &GinParser{
		re: regexp.MustCompile(`\[\w+\]\s+(\d{4}/\d{2}/\d{2})\s+-\s+(\d{2}:\d{2}:\d{2})\s+\|\s+(\d+)\s+\|\s*([^|]*?)\s*\|\s*([^|]*?)\s*\|\s+(\w+)\s+"([^"]+)"`),
	}
}

func (p *GinParser) Parse(raw string) (model.LogEntry, bool) {
	m := p.re.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return model.LogEntry{}, false
	}

	ts, ok := parseLocal("2006/01/02 15:04:05", m[1]+" "+m[2])
	if !ok {
		return model.LogEntry{}, false
	}
	status, ok := atoi(m[3])
	if !ok {
		return model.LogEntry{}, false
	}
	method, path := m[6], m[7]

	extra := requestExtra(method, path, status)
	extra["duration"] = m[4]
	extra["client"] = m[5]

	return model.LogEntry{
		Timestamp: ts,
		Service:   "ai_evaluator",
		Level:     StatusLevel(status),
		Message:   requestMessage(method, path, status),
		Extra:     extra,
	}, true
}

// ---------------------------------------------------------------------------
// Nginx Access Parser
// ---------------------------------------------------------------------------

// NginxAccessParser handles combined-format access lines. Only the request
// line and status are extracted; the bracketed timestamp is ignored.
type NginxAccessParser struct {
	re *regexp.Regexp
}

func NewNginxAccessParser() *NginxAccessParser {
	return &NginxAccessParser{
		re: regexp.MustCompile(`"(\w+) (\S+) HTTP/[\d.]+" (\d{3})`),
	}
}

func (p *NginxAccessParser) Parse(raw string) (model.LogEntry, bool) {
	m := p.re.FindStringSubmatch(raw)
	if m == nil {
		return model.LogEntry{}, false
	}

	method, path := m[1], m[2]
	status, ok := atoi(m[3])
	if !ok {
		return model.LogEntry{}, false
	}

	return model.LogEntry{
		Timestamp: now(),
		Service:   "nginx",
		Level:     StatusLevel(status),
		Message:   requestMessage(method, path, status),
		Extra:     requestExtra(method, path, status),
	}, true
}

// ---------------------------------------------------------------------------
// Nginx Error Parser
// ---------------------------------------------------------------------------

// NginxErrorParser handles error log lines:
//
//	2025/12/10 10:30:45 [error] 123#123: *456 connect() failed
type NginxErrorParser struct {
	re *regexp.Regexp
}

func NewNginxErrorParser() *NginxErrorParser {
	return &NginxErrorParser{
		re: regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}) \[(\w+)\] .+?: (.+)`),
	}
}

func (p *NginxErrorParser) Parse(raw string) (model.LogEntry, bool) {
	m := p.re.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return model.LogEntry{}, false
	}

	ts, ok := parseLocal("2006/01/02 15:04:05", m[1])
	if !ok {
		return model.LogEntry{}, false
	}

	return model.LogEntry{
		Timestamp: ts,
		Service:   "nginx",
		Level:     model.ParseLevel(strings.ToUpper(m[2])),
		Message:   m[3],
	}, true
}
