package cmd

import (
	"fmt"
	"os"

	"github.com/atikulmunna/loomwatch/internal/model"
	"github.com/atikulmunna/loomwatch/internal/output"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	outputFmt   string
	levelFilter string
)

var streamCmd = &cobra.Command{
	Use:   "stream [config.yaml]",
	Short: "Print normalized entries from every source as they arrive",
	Long: `Run the same sources as the dashboard, but print each normalized entry
to stdout instead of drawing panels. Useful for piping into other tools.

Examples:
  loomwatch stream
  loomwatch stream config.yaml --level error,warning
  loomwatch stream config.yaml --output json | jq .message`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStream,
}

func init() {
	streamCmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format: text, json")
	streamCmd.Flags().StringVarP(&levelFilter, "level", "l", "", "filter by severity (comma-separated: info,warning,error,critical)")
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	renderer, err := output.New(outputFmt, os.Stdout)
	if err != nil {
		return err
	}
	filter := output.ParseLevelFilter(levelFilter)

	log, closer, err := openLog(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	entries := make(chan model.LogEntry, 1024)
	p, err := newPipeline(cfg, entries, log)
	if err != nil {
		return err
	}

	sources := p.engine.Sources()
	if len(sources) == 0 {
		return fmt.Errorf("no sources configured: add log_files or docker_containers")
	}
	fmt.Fprintf(os.Stderr, "loomwatch following %d source(s):\n", len(sources))
	for _, s := range sources {
		fmt.Fprintf(os.Stderr, "   • %-14s %-6s %s\n", s.Service, s.Type, s.Target)
	}
	fmt.Fprintln(os.Stderr)

	ctx, stop := signalContext()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	p.start(gctx, g)

	for {
		select {
		case <-gctx.Done():
			fmt.Fprintln(os.Stderr, "\nloomwatch shutting down...")
			return g.Wait()
		case entry := <-entries:
			if !filter.Allows(entry) {
				continue
			}
			if err := renderer.Render(entry); err != nil {
				log.Warn().Err(err).Msg("render failed")
			}
		}
	}
}
