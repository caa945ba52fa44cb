package query_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ringscout/internal/conf"
	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/query"
	"github.com/tphakala/ringscout/internal/reconcile"
	"github.com/tphakala/ringscout/internal/resolver"
	"github.com/tphakala/ringscout/internal/ring"
)

type fakeResolver struct {
	positions map[string]resolver.Position
}

func (f *fakeResolver) Resolve(_ context.Context, name string) (*resolver.Position, error) {
	pos, ok := f.positions[name]
	if !ok {
		return nil, errors.Newf("system %q not resolvable", name).
			Category(errors.CategoryNotFound).
			Build()
	}
	return &pos, nil
}

func newTestStore(t *testing.T) datastore.Interface {
	t.Helper()
	settings := &conf.Settings{}
	settings.Database.Path = filepath.Join(t.TempDir(), "test.db")
	settings.Database.SpatialIndex.Enabled = true
	settings.Database.SpatialIndex.CellSizeLy = 100
	store := datastore.New(settings, reconcile.New())
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedHotspot(t *testing.T, store datastore.Interface, system, material string, x, y, z float64, ringType ring.Type) {
	t.Helper()
	rec := &datastore.Hotspot{
		SystemName: system,
		BodyName:   "2",
		RingName:   "A Ring",
		Material:   material,
		Count:      2,
		RingType:   ringType,
		X:          &x, Y: &y, Z: &z,
		CoordSource: ring.CoordJournal,
		Origin:      ring.OriginJournal,
		ScannedAt:   time.Now().UTC(),
	}
	_, err := store.Upsert(rec)
	require.NoError(t, err)
}

func defaults() conf.SearchSettings {
	return conf.SearchSettings{MaxDistanceLy: 100, ResultCap: 50}
}

func TestFindHotspotsOrderedByDistance(t *testing.T) {
	store := newTestStore(t)
	seedHotspot(t, store, "Origin", "Platinum", 0, 0, 0, ring.TypeMetallic)
	seedHotspot(t, store, "Near", "Platinum", 10, 0, 0, ring.TypeMetallic)
	seedHotspot(t, store, "Far", "Platinum", 0, 60, 0, ring.TypeIcy)
	seedHotspot(t, store, "OutOfRange", "Platinum", 500, 0, 0, ring.TypeMetallic)

	res := &fakeResolver{positions: map[string]resolver.Position{
		"Origin": {X: 0, Y: 0, Z: 0, Source: ring.CoordJournal},
	}}
	engine := query.New(store, res, defaults(), nil)

	resp, err := engine.FindHotspots(context.Background(), &query.Request{
		ReferenceSystem: "Origin",
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "Origin", resp.Results[0].Hotspot.SystemName)
	assert.Zero(t, resp.Results[0].DistanceLy)
	assert.Equal(t, "Near", resp.Results[1].Hotspot.SystemName)
	assert.InDelta(t, 10.0, resp.Results[1].DistanceLy, 1e-9)
	assert.Equal(t, "Far", resp.Results[2].Hotspot.SystemName)
	assert.False(t, resp.Truncated)
}

func TestFindHotspotsEmptyRegionIsNotAnError(t *testing.T) {
	store := newTestStore(t)
	res := &fakeResolver{positions: map[string]resolver.Position{
		"Origin": {X: 0, Y: 0, Z: 0},
	}}
	engine := query.New(store, res, defaults(), nil)

	resp, err := engine.FindHotspots(context.Background(), &query.Request{
		ReferenceSystem: "Origin",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestFindHotspotsUnresolvableReference(t *testing.T) {
	store := newTestStore(t)
	engine := query.New(store, &fakeResolver{}, defaults(), nil)

	_, err := engine.FindHotspots(context.Background(), &query.Request{
		ReferenceSystem: "Nowhere",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCoordinateLookup))
}

func TestFindHotspotsEmptyName(t *testing.T) {
	store := newTestStore(t)
	engine := query.New(store, &fakeResolver{}, defaults(), nil)

	_, err := engine.FindHotspots(context.Background(), &query.Request{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestFindHotspotsFilters(t *testing.T) {
	store := newTestStore(t)
	seedHotspot(t, store, "Near", "Platinum", 10, 0, 0, ring.TypeMetallic)
	seedHotspot(t, store, "Near", "Tritium", 10, 0, 0, ring.TypeIcy)

	res := &fakeResolver{positions: map[string]resolver.Position{
		"Origin": {X: 0, Y: 0, Z: 0},
	}}
	engine := query.New(store, res, defaults(), nil)

	resp, err := engine.FindHotspots(context.Background(), &query.Request{
		ReferenceSystem: "Origin",
		Material:        "Tritium",
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Tritium", resp.Results[0].Hotspot.Material)

	resp, err = engine.FindHotspots(context.Background(), &query.Request{
		ReferenceSystem: "Origin",
		RingTypes:       []ring.Type{ring.TypeMetallic},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, ring.TypeMetallic, resp.Results[0].Hotspot.RingType)
}

func TestFindHotspotsCapAfterSort(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 10; i++ {
		seedHotspot(t, store, fmt.Sprintf("Sys %d", i), "Platinum",
			float64(i+1), 0, 0, ring.TypeMetallic)
	}

	res := &fakeResolver{positions: map[string]resolver.Position{
		"Origin": {X: 0, Y: 0, Z: 0},
	}}
	engine := query.New(store, res, defaults(), nil)

	resp, err := engine.FindHotspots(context.Background(), &query.Request{
		ReferenceSystem: "Origin",
		Limit:           3,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Truncated)
	// The cap keeps the nearest rows, not the first inserted.
	assert.Equal(t, "Sys 0", resp.Results[0].Hotspot.SystemName)
	assert.Equal(t, "Sys 2", resp.Results[2].Hotspot.SystemName)
}

func TestFindHotspotsZeroDistanceSurvivesCap(t *testing.T) {
	store := newTestStore(t)
	// Five hotspots in the reference system itself.
	materials := []string{"Platinum", "Painite", "Tritium", "Gold", "Silver"}
	for _, m := range materials {
		seedHotspot(t, store, "Origin", m, 0, 0, 0, ring.TypeMetallic)
	}
	seedHotspot(t, store, "Near", "Platinum", 5, 0, 0, ring.TypeMetallic)

	res := &fakeResolver{positions: map[string]resolver.Position{
		"Origin": {X: 0, Y: 0, Z: 0},
	}}
	engine := query.New(store, res, defaults(), nil)

	resp, err := engine.FindHotspots(context.Background(), &query.Request{
		ReferenceSystem: "Origin",
		Limit:           2,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 5, "in-system rows are never cut by the cap")
	assert.True(t, resp.Truncated)
	for _, r := range resp.Results {
		assert.Zero(t, r.DistanceLy)
	}
}
