// Package stream follows the live output of an external process, by
// default `docker logs -f` for a container.
package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/atikulmunna/loomwatch/internal/metrics"
	"github.com/rs/zerolog"
)

// Placeholder is replaced by the configured source identifier in every
// argument of the command template.
const Placeholder = "{source}"

// DefaultCommand follows a container's output from now on.
var DefaultCommand = []string{"docker", "logs", "-f", "--tail", "0", Placeholder}

// stopGrace is how long a child gets to exit after SIGTERM before it is killed.
const stopGrace = 2 * time.Second

// Publisher receives every line the process writes.
type Publisher interface {
	Publish(ctx context.Context, line string) error
}

// ProcessStream runs one long-lived process and publishes its output lines.
type ProcessStream struct {
	source string
	argv   []string
	pub    Publisher
	log    zerolog.Logger
}

// New creates a ProcessStream for source using the given command template.
// An empty template falls back to DefaultCommand.
func New(source string, template []string, pub Publisher, log zerolog.Logger) *ProcessStream {
	if len(template) == 0 {
		template = DefaultCommand
	}
	return &ProcessStream{
		source: source,
		argv:   Expand(template, source),
		pub:    pub,
		log:    log.With().Str("component", "stream").Str("source", source).Logger(),
	}
}

// Expand substitutes the source identifier into a command template.
func Expand(template []string, source string) []string {
	argv := make([]string, len(template))
	for i, arg := range template {
		argv[i] = strings.ReplaceAll(arg, Placeholder, source)
	}
	return argv
}

// Command returns the argv this stream runs.
func (s *ProcessStream) Command() []string { return s.argv }

// Run starts the process and publishes its stdout and stderr until the
// stream ends or the context is cancelled. A process that cannot be started
// is logged and Run returns nil; the child is always reaped before returning.
func (s *ProcessStream) Run(ctx context.Context) error {
	metrics.WorkerStarted()
	defer metrics.WorkerStopped()

	r, w, err := os.Pipe()
	if err != nil {
		s.log.Error().Err(err).Msg("cannot create pipe")
		return nil
	}
	defer r.Close()

	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	cmd.Stdout = w
	cmd.Stderr = w
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = stopGrace

	if err := cmd.Start(); err != nil {
		w.Close()
		s.log.Error().Err(err).Strs("command", s.argv).Msg("cannot start log stream")
		return nil
	}
	// The child holds its own copy; closing ours lets EOF through when it exits.
	w.Close()

	s.log.Info().Int("pid", cmd.Process.Pid).Msg("following log stream")
	s.read(ctx, r)

	err = cmd.Wait()
	switch {
	case ctx.Err() != nil:
		s.log.Debug().Msg("log stream stopped")
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.log.Warn().Int("exit_code", exitErr.ExitCode()).Msg("log stream exited")
		} else {
			s.log.Warn().Err(err).Msg("log stream failed")
		}
	default:
		s.log.Info().Msg("log stream ended")
	}
	return nil
}

// read publishes lines until EOF. After cancellation it keeps draining so
// the child never blocks on a full pipe while it shuts down.
func (s *ProcessStream) read(ctx context.Context, r io.Reader) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if text := strings.TrimRight(line, "\r\n"); strings.TrimSpace(text) != "" && ctx.Err() == nil {
			_ = s.pub.Publish(ctx, text)
		}
		if err != nil {
			return
		}
	}
}
