package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/atikulmunna/loomwatch/internal/aggregator"
	"github.com/atikulmunna/loomwatch/internal/config"
	"github.com/atikulmunna/loomwatch/internal/dashboard"
	"github.com/atikulmunna/loomwatch/internal/engine"
	"github.com/atikulmunna/loomwatch/internal/hub"
	"github.com/atikulmunna/loomwatch/internal/logging"
	"github.com/atikulmunna/loomwatch/internal/model"
	"github.com/atikulmunna/loomwatch/internal/poller"
	"github.com/atikulmunna/loomwatch/internal/resources"
	"github.com/atikulmunna/loomwatch/internal/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const defaultConfig = "config.yaml"

var (
	layoutFlag string
	listenFlag string
)

// rootCmd runs the dashboard.
var rootCmd = &cobra.Command{
	Use:   "loomwatch [config.yaml]",
	Short: "Real-time multi-service log monitor",
	Long: `Loomwatch tails service log files and live container output, normalizes
every line into a common record and shows errors, request statistics,
service health and worker progress on a terminal dashboard.

Examples:
  loomwatch
  loomwatch /etc/loomwatch/config.yaml
  loomwatch config.yaml --layout extended --http :9090`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDashboard,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&layoutFlag, "layout", "", "dashboard layout: compact, extended (overrides config)")
	rootCmd.Flags().StringVar(&listenFlag, "http", "", "status server address, e.g. :9090 (overrides config)")
}

// loadConfig reads the config named by args, printing usage when it is missing.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	path := defaultConfig
	if len(args) > 0 {
		path = args[0]
	}
	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrNotFound) {
		_ = cmd.Usage()
	}
	return cfg, err
}

// pipeline is the shared ingestion path: workers -> hub -> sink.
type pipeline struct {
	hub    *hub.Hub
	engine *engine.Engine
}

func newPipeline(cfg *config.Config, sink chan<- model.LogEntry, log zerolog.Logger) (*pipeline, error) {
	h := hub.New(sink, log)
	eng, err := engine.New(cfg, h.Input(), log)
	if err != nil {
		return nil, err
	}
	for _, s := range eng.Sources() {
		log.Info().
			Str("service", s.Service).
			Str("type", s.Type).
			Str("parser", string(s.Kind)).
			Str("target", s.Target).
			Msg("source configured")
	}
	return &pipeline{hub: h, engine: eng}, nil
}

func (p *pipeline) start(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error {
		p.hub.Start(ctx)
		return nil
	})
	g.Go(func() error { return p.engine.Run(ctx) })
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openLog(cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	log, closer, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return log, closer, nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if layoutFlag != "" {
		cfg.Dashboard.Layout = layoutFlag
	}
	if listenFlag != "" {
		cfg.HTTP.Listen = listenFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	log, closer, err := openLog(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	entries := make(chan model.LogEntry, 1024)
	agg := aggregator.New(entries, aggregator.Options{
		MaxErrors:  cfg.Dashboard.MaxErrors,
		MaxLogs:    cfg.Dashboard.MaxLogs,
		TopPaths:   cfg.Dashboard.TopPaths,
		StaleAfter: cfg.Dashboard.StaleAfter,
		Services:   cfg.Watched(),
	})

	p, err := newPipeline(cfg, entries, log)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		agg.Start(gctx)
		return nil
	})
	p.start(gctx, g)

	if cfg.Coordinator.URL != "" {
		sp := poller.New(cfg.Coordinator.URL, agg, log, poller.Options{
			Interval: cfg.Coordinator.PollInterval,
			Timeout:  cfg.Coordinator.Timeout,
		})
		log.Info().Str("url", sp.URL()).Msg("polling worker stats")
		g.Go(func() error { return sp.Run(gctx) })
	}

	if cfg.HTTP.Listen != "" {
		srv := server.New(cfg.HTTP.Listen, agg, p.hub, log)
		g.Go(func() error { return srv.Run(gctx) })
	}

	log.Info().Str("layout", cfg.Dashboard.Layout).Msg("dashboard starting")
	uiErr := dashboard.Run(gctx, agg, dashboard.Options{
		Layout:    cfg.Dashboard.Layout,
		Refresh:   cfg.Dashboard.Refresh,
		MaxErrors: cfg.Dashboard.MaxErrors,
		Watched:   cfg.Watched(),
		Sampler:   resources.NewSampler("/"),
		Log:       log,
	})

	// Quitting the dashboard stops everything else.
	cancel()
	werr := g.Wait()
	log.Info().Msg("shutdown complete")

	if uiErr != nil {
		return uiErr
	}
	return werr
}
