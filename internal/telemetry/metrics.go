// Package telemetry provides Prometheus metrics for the ingestion pipeline,
// live feed, coordinate resolver and query engine, plus the optional HTTP
// endpoint that exposes them in realtime mode.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every metric family the application registers.
type Metrics struct {
	Ingest *IngestMetrics
	Feed   *FeedMetrics
	Query  *QueryMetrics

	registry *prometheus.Registry
}

// NewMetrics creates all metric families on a fresh registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	ingest, err := NewIngestMetrics(registry)
	if err != nil {
		return nil, err
	}
	feed, err := NewFeedMetrics(registry)
	if err != nil {
		return nil, err
	}
	query, err := NewQueryMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Ingest:   ingest,
		Feed:     feed,
		Query:    query,
		registry: registry,
	}, nil
}

// Registry returns the underlying registry for the metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IngestMetrics tracks records flowing through the single-writer pipeline.
type IngestMetrics struct {
	RecordsProcessed *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
	WriteErrors      prometheus.Counter
}

// NewIngestMetrics creates and registers the ingest metric family.
func NewIngestMetrics(registry *prometheus.Registry) (*IngestMetrics, error) {
	m := &IngestMetrics{
		RecordsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_records_processed_total",
			Help: "Records handled by the pipeline, by adapter and reconcile outcome",
		}, []string{"adapter", "action"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_queue_depth",
			Help: "Items currently waiting in the pipeline queue",
		}),
		WriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_write_errors_total",
			Help: "Store writes that failed after reconciliation",
		}),
	}
	for _, c := range []prometheus.Collector{m.RecordsProcessed, m.QueueDepth, m.WriteErrors} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register ingest metrics: %w", err)
		}
	}
	return m, nil
}

// FeedMetrics tracks the live feed subscription.
type FeedMetrics struct {
	ConnectionStatus  prometheus.Gauge
	MessagesAccepted  prometheus.Counter
	MessagesRejected  prometheus.Counter
	ReconnectAttempts prometheus.Counter
}

// NewFeedMetrics creates and registers the live feed metric family.
func NewFeedMetrics(registry *prometheus.Registry) (*FeedMetrics, error) {
	m := &FeedMetrics{
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feed_connection_status",
			Help: "Live feed connection status (1 connected, 0 disconnected)",
		}),
		MessagesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_messages_accepted_total",
			Help: "Feed messages normalized into hotspot records",
		}),
		MessagesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_messages_rejected_total",
			Help: "Feed messages dropped as malformed, duplicate or out of scope",
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_reconnect_attempts_total",
			Help: "Broker reconnection attempts",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.ConnectionStatus, m.MessagesAccepted, m.MessagesRejected, m.ReconnectAttempts,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register feed metrics: %w", err)
		}
	}
	return m, nil
}

// QueryMetrics tracks hotspot searches.
type QueryMetrics struct {
	SearchLatency prometheus.Histogram
	ResultCount   prometheus.Histogram
}

// NewQueryMetrics creates and registers the query metric family.
func NewQueryMetrics(registry *prometheus.Registry) (*QueryMetrics, error) {
	m := &QueryMetrics{
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "query_search_latency_seconds",
			Help:    "End-to-end hotspot search latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		ResultCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "query_result_count",
			Help:    "Result rows returned per search",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	for _, c := range []prometheus.Collector{m.SearchLatency, m.ResultCount} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register query metrics: %w", err)
		}
	}
	return m, nil
}
