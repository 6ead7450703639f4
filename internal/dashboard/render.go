// Package dashboard draws the terminal dashboard. Render is a pure function
// of a View; the bubbletea program in program.go only gathers the data.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/atikulmunna/loomwatch/internal/aggregator"
	"github.com/atikulmunna/loomwatch/internal/model"
	"github.com/atikulmunna/loomwatch/internal/output"
	"github.com/atikulmunna/loomwatch/internal/resources"
	"github.com/charmbracelet/lipgloss"
)

const (
	LayoutCompact  = "compact"
	LayoutExtended = "extended"
)

const (
	Title        = "LOOMWATCH MONITORING DASHBOARD"
	defaultWidth = 100

	errorWidth = 40
	logWidth   = 50
	pathWidth  = 30
	barWidth   = 20
)

// View is everything one frame needs.
type View struct {
	Snapshot  aggregator.Snapshot
	Resources *resources.Usage // nil when sampling failed
	Layout    string
	Width     int
	Height    int // terminal rows; 0 means unbounded
	Now       time.Time
	Refresh   time.Duration
	MaxErrors int
	Watched   []string // status panel rows in order; all known services when empty
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("25")).
			Padding(0, 1)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	footerStyle = lipgloss.NewStyle().Faint(true).Italic(true)
)

// Truncate shortens s to n runes, appending "..." when anything was cut.
func Truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Render draws one frame. Every panel has an explicit empty state, so any
// snapshot renders.
func Render(v View) string {
	width := v.Width
	if width <= 0 {
		width = defaultWidth
	}
	refresh := v.Refresh
	if refresh <= 0 {
		refresh = time.Second
	}

	var rows []string
	rows = append(rows, renderHeader(v, width))

	if v.Layout == LayoutExtended {
		col := width / 3
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			panel("System Status", statusBody(v), col),
			panel("Request Stats", requestBody(v.Snapshot), col),
			panel("AI Processing", processingBody(v.Snapshot.Stats), width-2*col),
		))
	} else {
		col := width / 2
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			panel("System Status", statusBody(v), col),
			panel("Request Stats", requestBody(v.Snapshot), width-col),
		))
	}

	col := width / 2
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
		panel(errorsTitle(v), errorsBody(v.Snapshot.Errors), col),
		panel("Resource Usage", resourceBody(v.Resources), width-col),
	))

	logs := v.Snapshot.Logs
	if v.Height > 0 {
		logs = fitLogs(logs, v.Height-lipgloss.Height(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	}
	rows = append(rows,
		panel("Live Log Stream", logsBody(logs), width),
		footerStyle.Render(fmt.Sprintf("Press q or Ctrl+C to quit | Refreshing every %s", refresh)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// fitLogs keeps the newest entries that fit in the rows left below the
// upper panels. The log panel needs three rows of chrome (borders and
// title) and the footer one; at least one entry is always kept.
func fitLogs(logs []model.LogEntry, remaining int) []model.LogEntry {
	n := remaining - 4
	if n < 1 {
		n = 1
	}
	if len(logs) > n {
		return logs[:n]
	}
	return logs
}

func panel(title, body string, width int) string {
	// Border takes two columns.
	return panelStyle.Width(width - 2).Render(titleStyle.Render(title) + "\n" + body)
}

func renderHeader(v View, width int) string {
	line := Title
	if !v.Now.IsZero() {
		line += "  " + v.Now.Format("2006-01-02 15:04:05")
	}
	if v.Snapshot.Uptime != "" {
		line += "  up " + v.Snapshot.Uptime
	}
	return headerStyle.Width(width).Render(line)
}

func statusBody(v View) string {
	rows := v.Snapshot.Services
	if len(v.Watched) > 0 {
		byName := make(map[string]aggregator.ServiceHealth, len(rows))
		for _, s := range rows {
			byName[s.Name] = s
		}
		rows = make([]aggregator.ServiceHealth, 0, len(v.Watched))
		for _, name := range v.Watched {
			s, ok := byName[name]
			if !ok {
				s = aggregator.ServiceHealth{Name: name, Status: aggregator.HealthUnknown}
			}
			rows = append(rows, s)
		}
	}
	if len(rows) == 0 {
		return dimStyle.Render("No services configured")
	}

	lines := make([]string, 0, len(rows))
	for _, s := range rows {
		lines = append(lines, fmt.Sprintf("%s %-16s %s", healthIcon(s.Status), s.Name, s.Status))
	}
	return strings.Join(lines, "\n")
}

func healthIcon(status string) string {
	switch status {
	case aggregator.HealthHealthy:
		return "✅"
	case aggregator.HealthStale:
		return "🟡"
	default:
		return "🔴"
	}
}

func requestBody(s aggregator.Snapshot) string {
	if s.TotalRequests == 0 {
		return dimStyle.Render("No requests yet")
	}
	lines := []string{fmt.Sprintf("Total: %d", s.TotalRequests)}
	for _, p := range s.TopPaths {
		lines = append(lines, fmt.Sprintf("%-*s %d", pathWidth, Truncate(p.Path, pathWidth), p.Count))
	}
	return strings.Join(lines, "\n")
}

func errorsTitle(v View) string {
	if v.MaxErrors > 0 {
		return fmt.Sprintf("Errors (last %d)", v.MaxErrors)
	}
	return "Errors"
}

func errorsBody(entries []model.LogEntry) string {
	if len(entries) == 0 {
		return dimStyle.Render("No errors")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("%s [%s] %s",
			e.Timestamp.Format("15:04:05"), e.Service, Truncate(e.Message, errorWidth))))
	}
	return strings.Join(lines, "\n")
}

func resourceBody(u *resources.Usage) string {
	if u == nil {
		return dimStyle.Render("Resource data unavailable")
	}
	return strings.Join([]string{
		fmt.Sprintf("CPU  %s %5.1f%%", bar(u.CPUPercent), u.CPUPercent),
		fmt.Sprintf("RAM  %s %5.1f%% (%.1f/%.1f GB)", bar(u.MemPercent), u.MemPercent, u.MemUsedGB, u.MemTotalGB),
		fmt.Sprintf("Disk %s %5.1f%% (%.1f/%.1f GB)", bar(u.DiskPercent), u.DiskPercent, u.DiskUsedGB, u.DiskTotalGB),
	}, "\n")
}

func processingBody(ws *model.WorkerStats) string {
	if ws == nil {
		return dimStyle.Render("Connecting to coordinator…")
	}
	pct := ws.CompletionPercent()
	return strings.Join([]string{
		fmt.Sprintf("Pending:    %d", ws.PendingPages),
		fmt.Sprintf("Processing: %d", ws.ProcessingPages),
		fmt.Sprintf("Evaluated:  %d", ws.EvaluatedPages),
		fmt.Sprintf("Failed:     %d", ws.FailedPages),
		fmt.Sprintf("Workers:    %d", ws.WorkersActive),
		fmt.Sprintf("%s %5.1f%%", bar(pct), pct),
	}, "\n")
}

func logsBody(entries []model.LogEntry) string {
	if len(entries) == 0 {
		return dimStyle.Render("Waiting for logs...")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, output.LevelStyle(e.Level).Render(fmt.Sprintf("%s [%s] %s",
			e.Timestamp.Format("15:04:05"), e.Service, Truncate(e.Message, logWidth))))
	}
	return strings.Join(lines, "\n")
}

// bar draws a fixed-width percentage bar.
func bar(pct float64) string {
	filled := int(pct / 100 * barWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}
