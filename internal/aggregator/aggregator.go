package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/atikulmunna/loomwatch/internal/model"
)

// Health labels reported per service.
const (
	HealthHealthy = "healthy"
	HealthUnknown = "unknown"
	HealthStale   = "stale"
)

// Options tunes the bounded collections.
type Options struct {
	MaxErrors  int           // error history capacity
	MaxLogs    int           // recent log stream capacity
	TopPaths   int           // number of request paths kept in a snapshot
	StaleAfter time.Duration // 0 keeps a service healthy forever once seen
	Services   []string      // services always listed in the health grid, in order
}

// PathCount is one row of the request stats panel.
type PathCount struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

// ServiceHealth is one row of the status grid.
type ServiceHealth struct {
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen,omitempty"`
}

// Snapshot is a consistent point-in-time copy of the dashboard state.
type Snapshot struct {
	Uptime        string             `json:"uptime"`
	TotalEvents   int64              `json:"total_events"`
	LevelCounts   map[string]int64   `json:"level_counts"`
	Errors        []model.LogEntry   `json:"errors"` // newest first
	Logs          []model.LogEntry   `json:"logs"`   // newest first
	TopPaths      []PathCount        `json:"top_paths"`
	TotalRequests int64              `json:"total_requests"`
	Services      []ServiceHealth    `json:"services"`
	Stats         *model.WorkerStats `json:"stats,omitempty"` // nil until the first successful fetch
}

type pathCounter struct {
	count int64
	order int // first-seen position, breaks ties
}

// Aggregator owns the dashboard state. Only the Start goroutine mutates it;
// Snapshot may be called from any goroutine.
type Aggregator struct {
	mu          sync.RWMutex
	opts        Options
	startTime   time.Time
	totalEvents int64
	levelCounts map[string]int64
	errors      *Ring[model.LogEntry]
	recent      *Ring[model.LogEntry]
	paths       map[string]*pathCounter
	lastSeen    map[string]time.Time
	seenOrder   []string
	stats       *model.WorkerStats

	entries <-chan model.LogEntry
	updates chan model.WorkerStats
	clock   func() time.Time
}

// New creates an Aggregator that consumes entries from the given channel.
func New(entries <-chan model.LogEntry, opts Options) *Aggregator {
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 10
	}
	if opts.MaxLogs <= 0 {
		opts.MaxLogs = 5
	}
	if opts.TopPaths <= 0 {
		opts.TopPaths = 5
	}
	return &Aggregator{
		opts:        opts,
		startTime:   time.Now(),
		levelCounts: make(map[string]int64),
		errors:      NewRing[model.LogEntry](opts.MaxErrors),
		recent:      NewRing[model.LogEntry](opts.MaxLogs),
		paths:       make(map[string]*pathCounter),
		lastSeen:    make(map[string]time.Time),
		entries:     entries,
		updates:     make(chan model.WorkerStats, 1),
		clock:       time.Now,
	}
}

// Start consumes entries and stats updates. Blocks until the context is
// cancelled or the entry channel is closed.
func (a *Aggregator) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-a.entries:
			if !ok {
				return
			}
			a.record(entry)
		case ws := <-a.updates:
			a.mergeStats(ws)
		}
	}
}

// MergeStats hands a freshly fetched stats snapshot to the owner goroutine.
// It replaces the previous snapshot wholesale. When an older update is still
// queued, the newer one supersedes it.
func (a *Aggregator) MergeStats(ws model.WorkerStats) {
	for {
		select {
		case a.updates <- ws:
			return
		default:
		}
		select {
		case <-a.updates:
		default:
		}
	}
}

// record adds an entry to every collection it belongs to.
func (a *Aggregator) record(entry model.LogEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalEvents++
	a.levelCounts[string(entry.Level)]++
	a.recent.Push(entry)
	if entry.Level.IsError() {
		a.errors.Push(entry)
	}

	if _, seen := a.lastSeen[entry.Service]; !seen {
		a.seenOrder = append(a.seenOrder, entry.Service)
	}
	a.lastSeen[entry.Service] = a.clock()

	if path, ok := entry.Path(); ok {
		pc, exists := a.paths[path]
		if !exists {
			pc = &pathCounter{order: len(a.paths)}
			a.paths[path] = pc
		}
		pc.count++
	}
}

// mergeStats replaces the external stats snapshot.
func (a *Aggregator) mergeStats(ws model.WorkerStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats = &ws
}

// Snapshot returns a consistent copy of the current state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	counts := make(map[string]int64, len(a.levelCounts))
	for k, v := range a.levelCounts {
		counts[k] = v
	}

	var stats *model.WorkerStats
	if a.stats != nil {
		s := *a.stats
		stats = &s
	}

	top, total := a.topPaths()

	return Snapshot{
		Uptime:        time.Since(a.startTime).Truncate(time.Second).String(),
		TotalEvents:   a.totalEvents,
		LevelCounts:   counts,
		Errors:        a.errors.NewestFirst(),
		Logs:          a.recent.NewestFirst(),
		TopPaths:      top,
		TotalRequests: total,
		Services:      a.health(),
		Stats:         stats,
	}
}

// topPaths selects the K most requested paths, ties broken by first-seen order.
func (a *Aggregator) topPaths() ([]PathCount, int64) {
	type row struct {
		PathCount
		order int
	}

	rows := make([]row, 0, len(a.paths))
	var total int64
	for p, pc := range a.paths {
		rows = append(rows, row{PathCount{Path: p, Count: pc.count}, pc.order})
		total += pc.count
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].order < rows[j].order
	})

	if len(rows) > a.opts.TopPaths {
		rows = rows[:a.opts.TopPaths]
	}
	out := make([]PathCount, len(rows))
	for i, r := range rows {
		out[i] = r.PathCount
	}
	return out, total
}

// health lists configured services first, then any other service that has
// logged, in first-seen order.
func (a *Aggregator) health() []ServiceHealth {
	now := a.clock()
	listed := make(map[string]bool, len(a.opts.Services))
	out := make([]ServiceHealth, 0, len(a.opts.Services)+len(a.seenOrder))

	status := func(name string) ServiceHealth {
		seen, ok := a.lastSeen[name]
		switch {
		case !ok:
			return ServiceHealth{Name: name, Status: HealthUnknown}
		case a.opts.StaleAfter > 0 && now.Sub(seen) > a.opts.StaleAfter:
			return ServiceHealth{Name: name, Status: HealthStale, LastSeen: seen}
		default:
			return ServiceHealth{Name: name, Status: HealthHealthy, LastSeen: seen}
		}
	}

	for _, name := range a.opts.Services {
		if listed[name] {
			continue
		}
		listed[name] = true
		out = append(out, status(name))
	}
	for _, name := range a.seenOrder {
		if !listed[name] {
			out = append(out, status(name))
		}
	}
	return out
}
