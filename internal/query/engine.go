// Package query combines coordinate resolution, the radius query and the
// result-capping policy behind the hotspot search. It is the only read
// surface consumers use; none of them touch the store directly.
package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/tphakala/ringscout/internal/conf"
	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/logging"
	"github.com/tphakala/ringscout/internal/resolver"
	"github.com/tphakala/ringscout/internal/ring"
	"github.com/tphakala/ringscout/internal/telemetry"
)

// PositionResolver yields coordinates for a reference system name.
type PositionResolver interface {
	Resolve(ctx context.Context, systemName string) (*resolver.Position, error)
}

// Request describes one hotspot search. Zero values fall back to the
// configured search defaults.
type Request struct {
	ReferenceSystem string
	MaxDistanceLy   float64
	RingTypes       []ring.Type
	Material        string
	MinHotspots     int
	Reserve         ring.ReserveLevel
	Limit           int
}

// Response is a capped, distance-ordered result set. Truncated reports
// whether the cap cut anything off.
type Response struct {
	Origin    resolver.Position
	Results   []datastore.Result
	Truncated bool
}

// Engine executes hotspot searches.
type Engine struct {
	store    datastore.Interface
	resolver PositionResolver
	defaults conf.SearchSettings
	metrics  *telemetry.QueryMetrics
	logger   *slog.Logger
}

// New creates a search engine. metrics may be nil.
func New(store datastore.Interface, res PositionResolver, defaults conf.SearchSettings, metrics *telemetry.QueryMetrics) *Engine {
	return &Engine{
		store:    store,
		resolver: res,
		defaults: defaults,
		metrics:  metrics,
		logger:   logging.ForService("query"),
	}
}

// FindHotspots resolves the reference system and returns every matching
// hotspot within range, nearest first. An empty result set is a valid
// outcome; a reference system that cannot be resolved is an error.
func (e *Engine) FindHotspots(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	if req.ReferenceSystem == "" {
		return nil, errors.Newf("reference system name is empty").
			Component("query").
			Category(errors.CategoryValidation).
			Build()
	}
	maxDistance := req.MaxDistanceLy
	if maxDistance <= 0 {
		maxDistance = e.defaults.MaxDistanceLy
	}
	limit := req.Limit
	if limit <= 0 {
		limit = e.defaults.ResultCap
	}

	pos, err := e.resolver.Resolve(ctx, req.ReferenceSystem)
	if err != nil {
		return nil, errors.New(err).
			Component("query").
			Category(errors.CategoryCoordinateLookup).
			Context("system", req.ReferenceSystem).
			Build()
	}

	results, err := e.store.RadiusQuery(
		[3]float64{pos.X, pos.Y, pos.Z},
		maxDistance,
		datastore.Filters{
			RingTypes:   req.RingTypes,
			Material:    req.Material,
			MinHotspots: req.MinHotspots,
			Reserve:     req.Reserve,
		})
	if err != nil {
		return nil, err
	}

	capped, truncated := capResults(results, limit)

	if e.metrics != nil {
		e.metrics.SearchLatency.Observe(time.Since(start).Seconds())
		e.metrics.ResultCount.Observe(float64(len(capped)))
	}
	e.logger.Debug("search complete",
		"system", req.ReferenceSystem,
		"radius_ly", maxDistance,
		"results", len(capped),
		"truncated", truncated)

	return &Response{Origin: *pos, Results: capped, Truncated: truncated}, nil
}

// capResults applies the result cap without ever dropping a zero-distance
// row: hotspots in the reference system itself always survive, even when
// they alone exceed the cap. Results arrive sorted by distance, so the
// zero-distance rows form a prefix.
func capResults(results []datastore.Result, limit int) (capped []datastore.Result, truncated bool) {
	if len(results) <= limit {
		return results, false
	}
	cut := limit
	for cut < len(results) && results[cut].DistanceLy == 0 {
		cut++
	}
	return results[:cut], cut < len(results)
}
