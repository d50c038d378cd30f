// Package metrics exposes basin's Prometheus instrumentation and implements
// the storage layer's MetricsHook.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry and the instruments used across the server.
type Metrics struct {
	registry *prometheus.Registry

	commandsTotal  *prometheus.CounterVec
	commandErrors  *prometheus.CounterVec
	entriesAdded   prometheus.Counter
	entriesRead    prometheus.Counter
	connectionsNow prometheus.Gauge

	storageWriteBytes  prometheus.Counter
	storageReadBytes   prometheus.Counter
	storageCommits     prometheus.Counter
	storageCommitSecs  prometheus.Histogram
	storageCommitBytes prometheus.Histogram
}

// New creates a registry with basin's instruments plus the standard process
// and Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "basin", Subsystem: "resp", Name: "commands_total",
			Help: "Commands processed, by command name.",
		}, []string{"command"}),
		commandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "basin", Subsystem: "resp", Name: "command_errors_total",
			Help: "Commands that returned an error reply, by command name.",
		}, []string{"command"}),
		entriesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basin", Subsystem: "stream", Name: "entries_added_total",
			Help: "Stream entries appended.",
		}),
		entriesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basin", Subsystem: "stream", Name: "entries_read_total",
			Help: "Stream entries returned by range reads.",
		}),
		connectionsNow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "basin", Subsystem: "resp", Name: "connections",
			Help: "Currently open client connections.",
		}),
		storageWriteBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basin", Subsystem: "storage", Name: "write_bytes_total",
			Help: "Bytes written through the storage wrapper.",
		}),
		storageReadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basin", Subsystem: "storage", Name: "read_bytes_total",
			Help: "Bytes read through the storage wrapper.",
		}),
		storageCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basin", Subsystem: "storage", Name: "batch_commits_total",
			Help: "Batches committed.",
		}),
		storageCommitSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "basin", Subsystem: "storage", Name: "batch_commit_seconds",
			Help:    "Batch commit latency.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		storageCommitBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "basin", Subsystem: "storage", Name: "batch_commit_bytes",
			Help:    "Batch sizes at commit.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}),
	}
	reg.MustRegister(
		m.commandsTotal, m.commandErrors,
		m.entriesAdded, m.entriesRead, m.connectionsNow,
		m.storageWriteBytes, m.storageReadBytes,
		m.storageCommits, m.storageCommitSecs, m.storageCommitBytes,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCommand records one processed command.
func (m *Metrics) ObserveCommand(name string, failed bool) {
	m.commandsTotal.WithLabelValues(name).Inc()
	if failed {
		m.commandErrors.WithLabelValues(name).Inc()
	}
}

// ObserveEntriesAdded counts appended entries.
func (m *Metrics) ObserveEntriesAdded(n int) { m.entriesAdded.Add(float64(n)) }

// ObserveEntriesRead counts entries returned to readers.
func (m *Metrics) ObserveEntriesRead(n int) { m.entriesRead.Add(float64(n)) }

// ConnOpened / ConnClosed track the live connection gauge.
func (m *Metrics) ConnOpened() { m.connectionsNow.Inc() }
func (m *Metrics) ConnClosed() { m.connectionsNow.Dec() }

// Storage metrics hook (pebblestore.MetricsHook).

func (m *Metrics) ObserveWrite(elapsed time.Duration, bytes int) {
	m.storageWriteBytes.Add(float64(bytes))
}

func (m *Metrics) ObserveRead(elapsed time.Duration, bytes int) {
	m.storageReadBytes.Add(float64(bytes))
}

func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	m.storageCommits.Inc()
	m.storageCommitSecs.Observe(elapsed.Seconds())
	m.storageCommitBytes.Observe(float64(bytes))
}
