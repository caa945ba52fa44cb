// Package ingest owns all writes to the spatial store. Every adapter
// (journal tailer, live feed, bulk importer) funnels normalized records
// into one bounded queue consumed by a single writer goroutine, so the
// reconcile-then-write critical section is never raced.
package ingest

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/logging"
	"github.com/tphakala/ringscout/internal/telemetry"
)

var (
	logger      *slog.Logger
	closeLogger func() error
)

func init() {
	var err error
	logger, closeLogger, err = logging.NewFileLogger("logs/ingest.log", "ingest", slog.LevelInfo)
	if err != nil || logger == nil {
		logger = logging.ForService("ingest")
		closeLogger = func() error { return nil }
	}
}

const defaultQueueSize = 256

// work is one queued write. Exactly one of the fields is set.
type work struct {
	record     *datastore.Hotspot
	visit      *visitWork
	annotation *datastore.RingAnnotation
}

type visitWork struct {
	systemName    string
	systemAddress int64
	arrivedAt     time.Time
}

// Pipeline is the single-writer ingestion funnel. It satisfies both the
// journal session sink and the live feed record sink.
type Pipeline struct {
	store   datastore.Interface
	metrics *telemetry.IngestMetrics

	queue chan work
	done  chan struct{}

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// New creates a pipeline over the given store. metrics may be nil when the
// telemetry endpoint is disabled.
func New(store datastore.Interface, metrics *telemetry.IngestMetrics) *Pipeline {
	return &Pipeline{
		store:   store,
		metrics: metrics,
		queue:   make(chan work, defaultQueueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the writer goroutine. Call exactly once.
func (p *Pipeline) Start() {
	go p.run()
}

// Close stops accepting new work, drains everything already queued and
// waits for the writer to finish. Safe to call once after Start.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	// Enqueues that passed the closed check before it flipped may still be
	// sending; the channel must not close underneath them.
	p.inflight.Wait()
	close(p.queue)
	<-p.done
	_ = closeLogger()
}

// Record enqueues one hotspot record for reconciliation.
func (p *Pipeline) Record(rec *datastore.Hotspot) {
	p.enqueue(work{record: rec})
}

// Visit enqueues a system arrival.
func (p *Pipeline) Visit(systemName string, systemAddress int64, at time.Time) {
	p.enqueue(work{visit: &visitWork{
		systemName:    systemName,
		systemAddress: systemAddress,
		arrivedAt:     at,
	}})
}

// Annotation enqueues a ring annotation merge.
func (p *Pipeline) Annotation(ann *datastore.RingAnnotation) {
	p.enqueue(work{annotation: ann})
}

// enqueue blocks when the queue is full; adapters are slower than the
// writer in steady state, so backpressure only appears during bulk import.
func (p *Pipeline) enqueue(w work) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		logger.Warn("work submitted after pipeline close, dropped")
		return
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	p.queue <- w
	p.inflight.Done()
	if p.metrics != nil {
		p.metrics.QueueDepth.Set(float64(len(p.queue)))
	}
}

func (p *Pipeline) run() {
	defer close(p.done)
	for w := range p.queue {
		p.process(&w)
		if p.metrics != nil {
			p.metrics.QueueDepth.Set(float64(len(p.queue)))
		}
	}
}

// process applies one unit of work. A failed write is logged and dropped;
// one bad record never halts ingestion of the records behind it.
func (p *Pipeline) process(w *work) {
	switch {
	case w.record != nil:
		action, err := p.store.Upsert(w.record)
		if err != nil {
			logger.Warn("record write failed",
				"system", w.record.SystemName,
				"ring", w.record.RingName,
				"material", w.record.Material,
				"error", err)
			if p.metrics != nil {
				p.metrics.WriteErrors.Inc()
			}
			return
		}
		if p.metrics != nil {
			p.metrics.RecordsProcessed.
				WithLabelValues(string(w.record.Origin), action.String()).Inc()
		}

	case w.visit != nil:
		counted, err := p.store.RecordVisit(
			w.visit.systemName, w.visit.systemAddress, w.visit.arrivedAt)
		if err != nil {
			logger.Warn("visit write failed", "system", w.visit.systemName, "error", err)
			if p.metrics != nil {
				p.metrics.WriteErrors.Inc()
			}
			return
		}
		if counted {
			logger.Debug("visit recorded", "system", w.visit.systemName)
		}

	case w.annotation != nil:
		if err := p.store.UpsertAnnotation(w.annotation); err != nil {
			logger.Warn("annotation write failed",
				"system", w.annotation.SystemName,
				"ring", w.annotation.RingName,
				"error", err)
			if p.metrics != nil {
				p.metrics.WriteErrors.Inc()
			}
		}
	}
}
