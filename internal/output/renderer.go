package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/atikulmunna/loomwatch/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Renderer writes normalized entries to an output stream.
type Renderer interface {
	Render(entry model.LogEntry) error
}

// New returns the renderer for a --output format name ("text" or "json").
func New(format string, w io.Writer) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return NewTextRenderer(w), nil
	case "json":
		return NewJSONRenderer(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleInfo     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))             // gray
	styleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))             // yellow
	styleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
	styleCritical = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("196")).
			Bold(true) // white on red
	styleService = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true) // cyan
)

// TextRenderer prints one colorized line per entry:
//
//	15:04:05 ERROR    [celery] ValueError: bad input
type TextRenderer struct {
	w io.Writer
}

func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(entry model.LogEntry) error {
	tag := LevelStyle(entry.Level).Render(fmt.Sprintf("%-8s", entry.Level))
	svc := styleService.Render("[" + entry.Service + "]")
	ts := entry.Timestamp.Format("15:04:05")

	_, err := fmt.Fprintf(r.w, "%s %s %s %s\n", ts, tag, svc, entry.Message)
	return err
}

// LevelStyle returns the color used for a severity.
func LevelStyle(level model.Level) lipgloss.Style {
	switch level {
	case model.LevelWarning:
		return styleWarn
	case model.LevelError:
		return styleError
	case model.LevelCritical:
		return styleCritical
	default:
		return styleInfo
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each entry as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(entry model.LogEntry) error {
	return r.enc.Encode(entry)
}

// ---------------------------------------------------------------------------
// Level filter
// ---------------------------------------------------------------------------

// LevelFilter keeps entries whose level is in the set. An empty filter keeps
// everything.
type LevelFilter map[model.Level]bool

// ParseLevelFilter reads a comma-separated list such as "error,warning".
// Aliases accepted by model.ParseLevel (warn, fatal, ...) work too.
func ParseLevelFilter(list string) LevelFilter {
	f := LevelFilter{}
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			f[model.ParseLevel(part)] = true
		}
	}
	return f
}

func (f LevelFilter) Allows(entry model.LogEntry) bool {
	if len(f) == 0 {
		return true
	}
	return f[entry.Level]
}
