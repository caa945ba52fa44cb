package telemetry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/ringscout/internal/logging"
)

// Endpoint serves the /metrics HTTP scrape target in realtime mode.
type Endpoint struct {
	server *http.Server
	logger *slog.Logger
}

// NewEndpoint builds the scrape server on the given listen address.
func NewEndpoint(listen string, metrics *Metrics) *Endpoint {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	return &Endpoint{
		server: &http.Server{
			Addr:              listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logging.ForService("telemetry"),
	}
}

// Start serves in a background goroutine until Shutdown.
func (e *Endpoint) Start() {
	go func() {
		e.logger.Info("metrics endpoint listening", "addr", e.server.Addr)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.logger.Error("metrics endpoint failed", "error", err)
		}
	}()
}

// Shutdown stops the scrape server, waiting briefly for in-flight scrapes.
func (e *Endpoint) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
