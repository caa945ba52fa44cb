package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpatialIndexInsertAndCandidates(t *testing.T) {
	si := newSpatialIndex(100)
	si.Insert("Sol", 0, 0, 0)
	si.Insert("Paesia", 64.8125, 48.75, -27.625)
	si.Insert("Far Away", 5000, 0, 0)

	got := si.Candidates([3]float64{0, 0, 0}, 200)
	names := map[string]float64{}
	for _, c := range got {
		names[c.name] = c.distance
	}
	assert.Len(t, names, 2)
	assert.Equal(t, 0.0, names["Sol"])
	assert.InDelta(t, 85.70, names["Paesia"], 0.01)
	assert.NotContains(t, names, "Far Away")
}

func TestSpatialIndexReposition(t *testing.T) {
	si := newSpatialIndex(100)
	si.Insert("Drifter", 0, 0, 0)
	si.Insert("Drifter", 1000, 1000, 1000)

	assert.Equal(t, 1, si.Len())
	assert.Empty(t, si.Candidates([3]float64{0, 0, 0}, 50))
	assert.Len(t, si.Candidates([3]float64{1000, 1000, 1000}, 50), 1)
}

func TestSpatialIndexRemove(t *testing.T) {
	si := newSpatialIndex(100)
	si.Insert("Gone", 10, 10, 10)
	si.Remove("Gone")
	si.Remove("Never Existed") // no-op

	assert.Zero(t, si.Len())
	assert.Empty(t, si.Candidates([3]float64{10, 10, 10}, 100))
}

func TestSpatialIndexNegativeCoordinates(t *testing.T) {
	// Cell math must floor, not truncate toward zero.
	si := newSpatialIndex(100)
	si.Insert("Below Plane", -50, -150, -250)

	got := si.Candidates([3]float64{-50, -150, -250}, 1)
	assert.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].distance)
}

func TestSpatialIndexBoundaryRadius(t *testing.T) {
	// A system exactly at max distance is included.
	si := newSpatialIndex(100)
	si.Insert("Edge", 300, 0, 0)

	assert.Len(t, si.Candidates([3]float64{0, 0, 0}, 300), 1)
	assert.Empty(t, si.Candidates([3]float64{0, 0, 0}, 299.999))
}
