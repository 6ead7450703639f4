// Package metrics exposes the monitor's own ingestion counters in
// Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	linesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loomwatch_lines_ingested_total",
		Help: "Log lines parsed into entries, by service and level",
	}, []string{"service", "level"})

	linesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loomwatch_lines_dropped_total",
		Help: "Log lines no grammar recognized, by service",
	}, []string{"service"})

	subscriberDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loomwatch_subscriber_drops_total",
		Help: "Entries dropped because a stream subscriber was too slow",
	})

	statsPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loomwatch_stats_polls_total",
		Help: "Coordinator worker-stats polls, by result",
	}, []string{"result"})

	activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loomwatch_source_workers",
		Help: "Source workers currently running",
	})
)

// LineIngested counts a successfully parsed line.
func LineIngested(service, level string) {
	linesIngested.WithLabelValues(service, level).Inc()
}

// LineDropped counts a line no grammar recognized.
func LineDropped(service string) {
	linesDropped.WithLabelValues(service).Inc()
}

// SubscriberDrop counts an entry dropped for a slow subscriber.
func SubscriberDrop() {
	subscriberDrops.Inc()
}

// StatsPoll counts a worker-stats poll with result "ok" or "error".
func StatsPoll(result string) {
	statsPolls.WithLabelValues(result).Inc()
}

// WorkerStarted and WorkerStopped track running source workers.
func WorkerStarted() { activeWorkers.Inc() }
func WorkerStopped() { activeWorkers.Dec() }

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
