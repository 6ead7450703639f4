// Package engine builds the source workers described by the configuration
// and supervises them until shutdown.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/atikulmunna/loomwatch/internal/config"
	"github.com/atikulmunna/loomwatch/internal/hub"
	"github.com/atikulmunna/loomwatch/internal/model"
	"github.com/atikulmunna/loomwatch/internal/parser"
	"github.com/atikulmunna/loomwatch/internal/stream"
	"github.com/atikulmunna/loomwatch/internal/tailer"
	"github.com/atikulmunna/loomwatch/internal/watcher"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	TypeFile   = "file"
	TypeStream = "stream"
)

// Source describes one running worker.
type Source struct {
	Service string
	Kind    parser.Kind
	Type    string
	Target  string // file path or stream identifier
}

type worker interface {
	Run(ctx context.Context) error
}

type Engine struct {
	workers []worker
	sources []Source
	watcher *watcher.Watcher
	offsets *tailer.Offsets
	log     zerolog.Logger
}

// New creates one worker per file (after glob expansion) and one per live
// stream. Every worker publishes parsed entries to out.
func New(cfg *config.Config, out chan<- model.LogEntry, log zerolog.Logger) (*Engine, error) {
	e := &Engine{
		offsets: tailer.NewOffsets(),
		log:     log.With().Str("component", "engine").Logger(),
	}

	w, err := watcher.New(log)
	if err != nil {
		e.log.Warn().Err(err).Msg("file notifications unavailable, polling only")
	} else {
		e.watcher = w
	}

	for _, service := range sortedKeys(cfg.LogFiles) {
		pattern := cfg.LogFiles[service]
		paths, err := watcher.Expand(pattern)
		if err != nil {
			return nil, fmt.Errorf("expand %s pattern %q: %w", service, pattern, err)
		}
		if len(paths) == 0 {
			e.log.Warn().Str("service", service).Str("pattern", pattern).Msg("pattern matched no files")
		}
		kind := cfg.ParserKind(service)
		for _, path := range paths {
			p, err := parser.New(kind)
			if err != nil {
				return nil, fmt.Errorf("service %s: %w", service, err)
			}
			opts := tailer.Options{Interval: cfg.Tail.PollInterval}
			if e.watcher != nil {
				wake, err := e.watcher.Watch(path)
				if err != nil {
					e.log.Debug().Err(err).Str("path", path).Msg("cannot watch directory, polling only")
				} else {
					opts.Wake = wake
				}
			}
			pub := hub.NewPublisher(service, p, out)
			e.workers = append(e.workers, tailer.New(path, pub, e.offsets, log, opts))
			e.sources = append(e.sources, Source{Service: service, Kind: kind, Type: TypeFile, Target: path})
		}
	}

	for _, service := range sortedKeys(cfg.DockerContainers) {
		source := cfg.DockerContainers[service]
		kind := cfg.ParserKind(service)
		p, err := parser.New(kind)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", service, err)
		}
		pub := hub.NewPublisher(service, p, out)
		st := stream.New(source, cfg.Stream.Command, pub, log)
		e.log.Debug().Str("service", service).Strs("command", st.Command()).Msg("stream source")
		e.workers = append(e.workers, st)
		e.sources = append(e.sources, Source{Service: service, Kind: kind, Type: TypeStream, Target: source})
	}

	return e, nil
}

// Sources lists every worker in start order.
func (e *Engine) Sources() []Source {
	return append([]Source(nil), e.sources...)
}

// Run starts every worker and blocks until all of them have exited. File
// workers only stop on cancellation.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if e.watcher != nil {
		g.Go(func() error {
			e.watcher.Start(ctx)
			return nil
		})
	}
	for _, w := range e.workers {
		w := w
		g.Go(func() error { return w.Run(ctx) })
	}

	e.log.Info().Int("workers", len(e.workers)).Msg("sources started")
	err := g.Wait()
	e.log.Info().Interface("offsets", e.offsets.All()).Msg("all sources stopped")
	return err
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
