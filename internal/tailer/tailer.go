package tailer

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atikulmunna/loomwatch/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Publisher receives every complete line read from the file.
type Publisher interface {
	Publish(ctx context.Context, line string) error
}

// Options tunes a FileTailer.
type Options struct {
	Interval time.Duration   // poll cadence, DefaultInterval when zero
	Wake     <-chan struct{} // optional early wake-up, e.g. from the watcher
}

// FileTailer reads newly appended lines from one file, starting at the size
// the file had when the tailer started.
type FileTailer struct {
	path     string
	interval time.Duration
	wake     <-chan struct{}
	pub      Publisher
	offsets  *Offsets
	log      zerolog.Logger
	missing  bool
}

// New creates a FileTailer for path.
func New(path string, pub Publisher, offsets *Offsets, log zerolog.Logger, opts Options) *FileTailer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &FileTailer{
		path:     path,
		interval: opts.Interval,
		wake:     opts.Wake,
		pub:      pub,
		offsets:  offsets,
		log:      log.With().Str("component", "tailer").Str("path", path).Logger(),
	}
}

// Run polls the file until the context is cancelled. Missing or unreadable
// files are treated as having nothing new, so Run only returns on shutdown.
func (t *FileTailer) Run(ctx context.Context) error {
	metrics.WorkerStarted()
	defer metrics.WorkerStopped()

	t.offsets.Set(t.path, t.startOffset())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-t.wake:
		}
		if err := t.poll(ctx); err != nil {
			return nil
		}
	}
}

// startOffset is the current file size, or 0 when the file is absent.
func (t *FileTailer) startOffset() int64 {
	info, err := os.Stat(t.path)
	if err != nil {
		t.log.Debug().Err(err).Msg("file not available yet, starting at offset 0")
		t.missing = true
		return 0
	}
	return info.Size()
}

// poll reads from the last offset to EOF and publishes complete lines. A
// trailing partial line is left in place for the next cycle. It only fails
// when the context is cancelled mid-publish.
func (t *FileTailer) poll(ctx context.Context) error {
	offset, _ := t.offsets.Get(t.path)

	f, err := os.Open(t.path)
	if err != nil {
		if !t.missing {
			t.log.Debug().Err(err).Msg("file unavailable")
			t.missing = true
		}
		return nil
	}
	defer f.Close()

	if t.missing {
		t.log.Info().Msg("file available")
		t.missing = false
	}

	info, err := f.Stat()
	if err != nil {
		return nil
	}
	if info.Size() < offset {
		t.log.Info().Int64("offset", offset).Int64("size", info.Size()).Msg("file truncated or rotated, rewinding")
		offset = 0
		t.offsets.Set(t.path, 0)
	}
	if info.Size() == offset {
		return nil
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		t.log.Warn().Err(err).Msg("seek failed")
		return nil
	}

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				t.log.Warn().Err(err).Msg("read error")
			}
			return nil
		}

		offset += int64(len(line))
		t.offsets.Set(t.path, offset)

		text := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		if err := t.pub.Publish(ctx, text); err != nil {
			return err
		}
	}
}
