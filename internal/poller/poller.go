// Package poller fetches worker statistics from the coordinator service.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atikulmunna/loomwatch/internal/metrics"
	"github.com/atikulmunna/loomwatch/internal/model"
	"github.com/rs/zerolog"
)

// StatsPath is the coordinator endpoint reporting queue and worker counts.
const StatsPath = "/coordinator/worker-stats"

const (
	DefaultInterval = time.Second
	DefaultTimeout  = 2 * time.Second
)

// Sink receives every successful fetch.
type Sink interface {
	MergeStats(ws model.WorkerStats)
}

type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

// StatsPoller fetches worker statistics on a fixed interval. Failed fetches
// are never forwarded, so the sink keeps the last good snapshot.
type StatsPoller struct {
	url      string
	client   *http.Client
	interval time.Duration
	sink     Sink
	log      zerolog.Logger
}

// New creates a StatsPoller for the coordinator at baseURL.
func New(baseURL string, sink Sink, log zerolog.Logger, opts Options) *StatsPoller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &StatsPoller{
		url:      strings.TrimRight(baseURL, "/") + StatsPath,
		client:   &http.Client{Timeout: opts.Timeout},
		interval: opts.Interval,
		sink:     sink,
		log:      log.With().Str("component", "poller").Logger(),
	}
}

// URL returns the full endpoint being polled.
func (p *StatsPoller) URL() string { return p.url }

// Run fetches immediately and then on every tick until ctx is cancelled.
func (p *StatsPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *StatsPoller) poll(ctx context.Context) {
	ws, err := p.FetchOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.StatsPoll("error")
		p.log.Debug().Err(err).Msg("worker stats unavailable")
		return
	}
	metrics.StatsPoll("ok")
	p.sink.MergeStats(ws)
}

// FetchOnce performs a single request. Transport errors, non-2xx responses
// and undecodable bodies are all reported as errors.
func (p *StatsPoller) FetchOnce(ctx context.Context) (model.WorkerStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return model.WorkerStats{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return model.WorkerStats{}, fmt.Errorf("fetch worker stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.WorkerStats{}, fmt.Errorf("fetch worker stats: unexpected status %d", resp.StatusCode)
	}

	var ws model.WorkerStats
	if err := json.NewDecoder(resp.Body).Decode(&ws); err != nil {
		return model.WorkerStats{}, fmt.Errorf("decode worker stats: %w", err)
	}
	ws.FetchedAt = time.Now()
	return ws, nil
}
