package dashboard

import (
	"context"
	"time"

	"github.com/atikulmunna/loomwatch/internal/aggregator"
	"github.com/atikulmunna/loomwatch/internal/resources"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// Source provides dashboard state.
type Source interface {
	Snapshot() aggregator.Snapshot
}

// Sampler provides host resource readings.
type Sampler interface {
	Sample() (resources.Usage, error)
}

type Options struct {
	Layout    string
	Refresh   time.Duration
	MaxErrors int
	Watched   []string
	Sampler   Sampler // optional
	Log       zerolog.Logger
}

type tickMsg time.Time

// Model is the bubbletea model. Every tick it samples resources, copies the
// aggregator snapshot and schedules the next tick.
type Model struct {
	src      Source
	opts     Options
	view     View
	ready    bool
	quitting bool
}

func NewModel(src Source, opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = time.Second
	}
	return Model{
		src:  src,
		opts: opts,
		view: View{
			Layout:    opts.Layout,
			Refresh:   opts.Refresh,
			MaxErrors: opts.MaxErrors,
			Watched:   opts.Watched,
		},
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return tickMsg(time.Now()) }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.view.Width = msg.Width
		m.view.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		m.refresh(time.Time(msg))
		return m, tick(m.opts.Refresh)
	}
	return m, nil
}

func (m *Model) refresh(now time.Time) {
	m.view.Now = now
	m.view.Snapshot = m.src.Snapshot()
	m.view.Resources = nil
	if m.opts.Sampler != nil {
		if u, err := m.opts.Sampler.Sample(); err == nil {
			m.view.Resources = &u
		} else {
			m.opts.Log.Debug().Err(err).Msg("resource sample failed")
		}
	}
	m.ready = true
}

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	if !m.ready {
		return Title + "\n\nStarting...\n"
	}
	return Render(m.view)
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, src Source, opts Options) error {
	p := tea.NewProgram(NewModel(src, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
