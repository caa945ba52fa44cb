package resolver

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ringscout/internal/conf"
	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/edsm"
	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/reconcile"
	"github.com/tphakala/ringscout/internal/ring"
)

type fakeRemote struct {
	coords map[string]edsm.Coordinates
	calls  int
	err    error
}

func (f *fakeRemote) SystemCoordinates(_ context.Context, name string) (*edsm.Coordinates, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.coords[name]
	if !ok {
		return nil, errors.Newf("system %q not known", name).
			Category(errors.CategoryNotFound).
			Build()
	}
	return &c, nil
}

func newStore(t *testing.T) datastore.Interface {
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

func TestResolveFromCache(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SaveCoordinate(&datastore.SystemCoordinate{
		SystemName: "Paesia",
		X:          64.8125, Y: 48.75, Z: -27.625,
		Source:    ring.CoordJournal,
		FetchedAt: time.Now().UTC(),
	}))

	remote := &fakeRemote{}
	r := New(store, remote, time.Hour)

	pos, err := r.Resolve(context.Background(), "Paesia")
	require.NoError(t, err)
	assert.Equal(t, 64.8125, pos.X)
	assert.Equal(t, ring.CoordJournal, pos.Source)
	assert.Zero(t, remote.calls, "local hit never reaches the remote service")
}

func TestResolveRemoteFallbackAndWriteBack(t *testing.T) {
	store := newStore(t)
	remote := &fakeRemote{coords: map[string]edsm.Coordinates{
		"Delkar": {X: 41.3, Y: -5.2, Z: 20.0},
	}}
	r := New(store, remote, time.Hour)

	pos, err := r.Resolve(context.Background(), "Delkar")
	require.NoError(t, err)
	assert.Equal(t, ring.CoordEDSM, pos.Source)
	assert.Equal(t, 1, remote.calls)

	// The result landed in the cache table; a second resolve is local.
	pos, err = r.Resolve(context.Background(), "Delkar")
	require.NoError(t, err)
	assert.Equal(t, 41.3, pos.X)
	assert.Equal(t, 1, remote.calls)
}

func TestResolveStaleRemoteEntryRefetched(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SaveCoordinate(&datastore.SystemCoordinate{
		SystemName: "Delkar",
		X:          1, Y: 1, Z: 1,
		Source:    ring.CoordEDSM,
		FetchedAt: time.Now().Add(-2 * time.Hour).UTC(),
	}))

	remote := &fakeRemote{coords: map[string]edsm.Coordinates{
		"Delkar": {X: 41.3, Y: -5.2, Z: 20.0},
	}}
	r := New(store, remote, time.Hour)

	pos, err := r.Resolve(context.Background(), "Delkar")
	require.NoError(t, err)
	assert.Equal(t, 41.3, pos.X, "stale entry re-fetched")
	assert.Equal(t, 1, remote.calls)
}

func TestResolveJournalCoordinatesNeverExpire(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SaveCoordinate(&datastore.SystemCoordinate{
		SystemName: "Paesia",
		X:          64.8125, Y: 48.75, Z: -27.625,
		Source:    ring.CoordJournal,
		FetchedAt: time.Now().Add(-100 * time.Hour).UTC(),
	}))

	remote := &fakeRemote{}
	r := New(store, remote, time.Hour)

	pos, err := r.Resolve(context.Background(), "Paesia")
	require.NoError(t, err)
	assert.Equal(t, ring.CoordJournal, pos.Source)
	assert.Zero(t, remote.calls)
}

func TestResolveStaleServedWhenRemoteDown(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.SaveCoordinate(&datastore.SystemCoordinate{
		SystemName: "Delkar",
		X:          1, Y: 2, Z: 3,
		Source:    ring.CoordEDSM,
		FetchedAt: time.Now().Add(-2 * time.Hour).UTC(),
	}))

	remote := &fakeRemote{err: errors.Newf("connection refused").
		Category(errors.CategoryNetwork).Build()}
	r := New(store, remote, time.Hour)

	pos, err := r.Resolve(context.Background(), "Delkar")
	require.NoError(t, err)
	assert.Equal(t, 1.0, pos.X, "stale beats nothing")
}

func TestResolveUnknownSystem(t *testing.T) {
	store := newStore(t)
	remote := &fakeRemote{}
	r := New(store, remote, time.Hour)

	_, err := r.Resolve(context.Background(), "Not A System")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

func TestResolveNoRemoteConfigured(t *testing.T) {
	store := newStore(t)
	r := New(store, nil, time.Hour)

	_, err := r.Resolve(context.Background(), "Anywhere")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

func TestRecordJournalPosition(t *testing.T) {
	store := newStore(t)
	r := New(store, nil, time.Hour)

	r.RecordJournalPosition("Paesia", 3107509474002, 64.8125, 48.75, -27.625)

	pos, err := r.Resolve(context.Background(), "Paesia")
	require.NoError(t, err)
	assert.Equal(t, ring.CoordJournal, pos.Source)
	assert.Equal(t, -27.625, pos.Z)
}
