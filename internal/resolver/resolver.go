// Package resolver turns a star-system name into 3-D galactic coordinates,
// consulting the local coordinate cache, then any coordinates already stored
// with hotspot or bundled data, then the remote lookup service.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/edsm"
	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/logging"
	"github.com/tphakala/ringscout/internal/ring"
)

// RemoteLookup is the remote coordinate service dependency.
type RemoteLookup interface {
	SystemCoordinates(ctx context.Context, systemName string) (*edsm.Coordinates, error)
}

// Position is a resolved system position with provenance.
type Position struct {
	X, Y, Z float64
	Source  ring.CoordSource
}

// Resolver resolves system names to coordinates.
type Resolver struct {
	store    datastore.Interface
	remote   RemoteLookup
	cacheTTL time.Duration
	logger   *slog.Logger

	// now is injectable for TTL tests.
	now func() time.Time
}

// New creates a Resolver. remote may be nil, in which case resolution is
// local-only and unknown systems fail with a not-found error.
func New(store datastore.Interface, remote RemoteLookup, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		store:    store,
		remote:   remote,
		cacheTTL: cacheTTL,
		logger:   logging.ForService("resolver"),
		now:      time.Now,
	}
}

// Resolve returns the coordinates for a system name. Cache entries within
// the TTL are served as-is; stale entries are re-fetched remotely with the
// stale value kept as fallback when the remote lookup fails. Successful
// remote lookups are written back to the cache table.
func (r *Resolver) Resolve(ctx context.Context, systemName string) (*Position, error) {
	if systemName == "" {
		return nil, errors.Newf("system name is required").
			Component("resolver").
			Category(errors.CategoryValidation).
			Build()
	}

	cached, err := r.store.GetCoordinate(systemName)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		age := r.now().Sub(cached.FetchedAt)
		// Journal and bundled coordinates are ground truth and never
		// expire; only remote lookups go stale.
		if cached.Source != ring.CoordEDSM || age <= r.cacheTTL {
			return &Position{X: cached.X, Y: cached.Y, Z: cached.Z, Source: cached.Source}, nil
		}
	}

	pos, remoteErr := r.resolveRemote(ctx, systemName)
	if remoteErr == nil {
		return pos, nil
	}

	if cached != nil {
		// Stale beats nothing; the remote service is advisory.
		r.logger.Warn("Remote lookup failed, serving stale cached coordinates",
			"system", systemName, "error", remoteErr.Error())
		return &Position{X: cached.X, Y: cached.Y, Z: cached.Z, Source: cached.Source}, nil
	}

	return nil, remoteErr
}

func (r *Resolver) resolveRemote(ctx context.Context, systemName string) (*Position, error) {
	if r.remote == nil {
		return nil, errors.Newf("system %q has no locally known coordinates", systemName).
			Component("resolver").
			Category(errors.CategoryNotFound).
			Build()
	}

	coords, err := r.remote.SystemCoordinates(ctx, systemName)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryNotFound) {
			return nil, err
		}
		return nil, errors.New(err).
			Component("resolver").
			Category(errors.CategoryCoordinateLookup).
			Context("system", systemName).
			Build()
	}

	if saveErr := r.store.SaveCoordinate(&datastore.SystemCoordinate{
		SystemName: systemName,
		X:          coords.X,
		Y:          coords.Y,
		Z:          coords.Z,
		Source:     ring.CoordEDSM,
		FetchedAt:  r.now().UTC(),
	}); saveErr != nil {
		// Resolution still succeeded; the cache write is best effort.
		r.logger.Warn("Failed to cache resolved coordinates",
			"system", systemName, "error", saveErr.Error())
	}

	return &Position{X: coords.X, Y: coords.Y, Z: coords.Z, Source: ring.CoordEDSM}, nil
}

// RecordJournalPosition stores ground-truth coordinates observed in the
// local journal, keeping the cache primed for systems the player visits.
func (r *Resolver) RecordJournalPosition(systemName string, systemAddress int64, x, y, z float64) {
	err := r.store.SaveCoordinate(&datastore.SystemCoordinate{
		SystemName:    systemName,
		SystemAddress: systemAddress,
		X:             x,
		Y:             y,
		Z:             z,
		Source:        ring.CoordJournal,
		FetchedAt:     r.now().UTC(),
	})
	if err != nil {
		r.logger.Warn("Failed to record journal coordinates",
			"system", systemName, "error", err.Error())
	}
}
