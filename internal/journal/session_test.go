package journal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/ring"
)

type captureSink struct {
	records     []*datastore.Hotspot
	visits      []string
	annotations []*datastore.RingAnnotation
}

func (c *captureSink) Record(h *datastore.Hotspot) { c.records = append(c.records, h) }
func (c *captureSink) Visit(name string, _ int64, _ time.Time) {
	c.visits = append(c.visits, name)
}
func (c *captureSink) Annotation(a *datastore.RingAnnotation) {
	c.annotations = append(c.annotations, a)
}

func arrivalEvent() *SystemArrival {
	pos := [3]float64{64.8125, 48.75, -27.625}
	return &SystemArrival{
		Timestamp:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		JournalEvent:  "FSDJump",
		StarSystem:    "Paesia",
		SystemAddress: 3107509474002,
		StarPos:       &pos,
	}
}

func scanEvent() *BodyScan {
	return &BodyScan{
		Timestamp:     time.Date(2026, 5, 1, 12, 10, 0, 0, time.UTC),
		BodyName:      "Paesia 2",
		SystemAddress: 3107509474002,
		DistanceLS:    912.5,
		ReserveLevel:  "PristineResources",
		Rings: []RingInfo{{
			Name:         "Paesia 2 A Ring",
			RingClass:    "eRingClass_Metalic",
			MassMT:       44934000000,
			InnerRadiusM: 108800000,
			OuterRadiusM: 115180000,
		}},
	}
}

func signalsEvent() *HotspotSignals {
	return &HotspotSignals{
		Timestamp:     time.Date(2026, 5, 1, 12, 15, 0, 0, time.UTC),
		BodyName:      "Paesia 2 A Ring",
		SystemAddress: 3107509474002,
		Signals:       []Signal{{Type: "Platinum", Count: 2}},
	}
}

func TestSessionCrossReferencesScanAndSignals(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink)

	s.HandleEvent(arrivalEvent())
	s.HandleEvent(scanEvent())
	s.HandleEvent(signalsEvent())

	require.Len(t, sink.records, 1)
	rec := sink.records[0]
	assert.Equal(t, "Paesia", rec.SystemName)
	assert.Equal(t, "2", rec.BodyName)
	assert.Equal(t, "A Ring", rec.RingName)
	assert.Equal(t, "Platinum", rec.Material)
	assert.Equal(t, 2, rec.Count)
	assert.Equal(t, ring.TypeMetallic, rec.RingType)
	require.NotNil(t, rec.RingMassMT)
	assert.Equal(t, 44934000000.0, *rec.RingMassMT)
	require.NotNil(t, rec.X)
	assert.Equal(t, 64.8125, *rec.X)
	assert.Equal(t, ring.CoordJournal, rec.CoordSource)
	require.NotNil(t, rec.LSDistance)
	assert.Equal(t, 912.5, *rec.LSDistance)
	assert.Equal(t, ring.OriginJournal, rec.Origin)
}

func TestSessionScanEntryConsumedBySignals(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink)

	s.HandleEvent(arrivalEvent())
	s.HandleEvent(scanEvent())
	s.HandleEvent(signalsEvent())
	require.Len(t, sink.records, 1)

	// A second signals event for the same ring no longer finds physical
	// data, but still produces a record.
	s.HandleEvent(signalsEvent())
	require.Len(t, sink.records, 2)
	assert.Nil(t, sink.records[1].RingMassMT)
	assert.Equal(t, ring.TypeUnknown, sink.records[1].RingType)
}

func TestSessionSignalsWithoutScan(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink)

	s.HandleEvent(arrivalEvent())
	s.HandleEvent(signalsEvent())

	require.Len(t, sink.records, 1)
	assert.Nil(t, sink.records[0].RingMassMT)
	assert.Equal(t, ring.TypeUnknown, sink.records[0].RingType)
	require.NotNil(t, sink.records[0].X, "coordinates still come from the arrival")
}

func TestSessionSignalsWithoutArrivalSkipped(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink)

	s.HandleEvent(signalsEvent())
	assert.Empty(t, sink.records)
}

func TestSessionEmitsVisits(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink)

	s.HandleEvent(arrivalEvent())
	docked := arrivalEvent()
	docked.JournalEvent = "Docked"
	docked.StarPos = nil
	s.HandleEvent(docked)

	// Both arrivals forwarded; the store de-duplicates them.
	assert.Equal(t, []string{"Paesia", "Paesia"}, sink.visits)
}

func TestSessionReserveLevelAnnotation(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink)

	s.HandleEvent(arrivalEvent())
	s.HandleEvent(scanEvent())

	require.Len(t, sink.annotations, 1)
	assert.Equal(t, ring.ReservePristine, sink.annotations[0].ReserveLevel)
	assert.Equal(t, "2", sink.annotations[0].BodyName)
	assert.Equal(t, "A Ring", sink.annotations[0].RingName)
}

func TestSessionOverlapAnnotation(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink)

	s.HandleEvent(arrivalEvent())
	multi := signalsEvent()
	multi.Signals = append(multi.Signals, Signal{Type: "Painite", Count: 1})
	s.HandleEvent(multi)

	require.Len(t, sink.records, 2)
	require.Len(t, sink.annotations, 1)
	assert.True(t, sink.annotations[0].Overlap)
}

func TestSessionLookupBounded(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink)
	s.HandleEvent(arrivalEvent())

	for i := 0; i < maxTrackedRings+10; i++ {
		scan := scanEvent()
		scan.Rings[0].Name = fmt.Sprintf("Paesia %d A Ring", i)
		scan.ReserveLevel = ""
		s.HandleEvent(scan)
	}
	assert.LessOrEqual(t, len(s.rings), maxTrackedRings)
}

func TestSessionReset(t *testing.T) {
	sink := &captureSink{}
	s := NewSession(sink)
	s.HandleEvent(arrivalEvent())
	s.HandleEvent(scanEvent())

	s.Reset()
	assert.Empty(t, s.rings)

	// After reset the system context is gone; signals are skipped.
	s.HandleEvent(signalsEvent())
	assert.Empty(t, sink.records)
}
