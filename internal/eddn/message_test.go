package eddn

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ringscout/internal/conf"
	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/ring"
)

const signalsPayload = `{
	"$schemaRef": "https://eddn.edcd.io/schemas/journal/1",
	"header": {"gatewayTimestamp": "2024-04-02T18:05:00Z", "uploaderID": "abc"},
	"message": {
		"timestamp": "2024-04-02T18:04:58Z",
		"event": "SAASignalsFound",
		"StarSystem": "Paesia",
		"SystemAddress": 3107509474002,
		"StarPos": [64.8125, 48.75, -27.625],
		"BodyName": "Paesia 2 A Ring",
		"Signals": [
			{"Type": "Platinum", "Count": 2},
			{"Type": "Painite", "Count": 1}
		]
	}
}`

func TestNormalizeSignals(t *testing.T) {
	records, err := Normalize([]byte(signalsPayload))
	require.NoError(t, err)
	require.Len(t, records, 2)

	rec := records[0]
	assert.Equal(t, "Paesia", rec.SystemName)
	assert.Equal(t, "2", rec.BodyName)
	assert.Equal(t, "A Ring", rec.RingName)
	assert.Equal(t, "Platinum", rec.Material)
	assert.Equal(t, 2, rec.Count)
	assert.Equal(t, int64(3107509474002), rec.SystemAddress)
	assert.Equal(t, ring.OriginLiveFeed, rec.Origin)
	require.True(t, rec.HasCoords())
	assert.Equal(t, 64.8125, *rec.X)
	assert.Equal(t, ring.CoordJournal, rec.CoordSource)
	assert.Equal(t, time.Date(2024, 4, 2, 18, 4, 58, 0, time.UTC), rec.ScannedAt)

	assert.Equal(t, "Painite", records[1].Material)
}

func TestNormalizeIgnoresOtherSchemas(t *testing.T) {
	records, err := Normalize([]byte(`{
		"$schemaRef": "https://eddn.edcd.io/schemas/commodity/3",
		"message": {"event": "Market"}
	}`))
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestNormalizeIgnoresOtherJournalEvents(t *testing.T) {
	records, err := Normalize([]byte(`{
		"$schemaRef": "https://eddn.edcd.io/schemas/journal/1",
		"message": {"event": "FSDJump", "StarSystem": "Sol", "StarPos": [0,0,0]}
	}`))
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestNormalizeMalformedEnvelope(t *testing.T) {
	_, err := Normalize([]byte(`{"$schemaRef": `))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFeedMessage))
}

func TestNormalizeMissingSystem(t *testing.T) {
	_, err := Normalize([]byte(`{
		"$schemaRef": "https://eddn.edcd.io/schemas/journal/1",
		"message": {"event": "SAASignalsFound", "BodyName": "2 A Ring", "Signals": [{"Type": "Gold", "Count": 1}]}
	}`))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFeedMessage))
}

func TestNormalizeSkipsNonRingBodies(t *testing.T) {
	// Surface signals report the planet itself, not a ring.
	records, err := Normalize([]byte(`{
		"$schemaRef": "https://eddn.edcd.io/schemas/journal/1",
		"message": {
			"event": "SAASignalsFound",
			"StarSystem": "Paesia",
			"BodyName": "Paesia 2",
			"Signals": [{"Type": "$SAA_SignalType_Biological;", "Count": 4}]
		}
	}`))
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestNormalizeDropsUnlocalisedCategorySignals(t *testing.T) {
	records, err := Normalize([]byte(`{
		"$schemaRef": "https://eddn.edcd.io/schemas/journal/1",
		"message": {
			"event": "SAASignalsFound",
			"StarSystem": "Paesia",
			"BodyName": "Paesia 2 A Ring",
			"Signals": [
				{"Type": "$SAA_SignalType_Guardian;", "Count": 1},
				{"Type": "Tritium", "Count": 3},
				{"Type": "Bromellite", "Count": 0}
			]
		}
	}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Tritium", records[0].Material)
}

type captureSink struct {
	records []*datastore.Hotspot
}

func (c *captureSink) Record(rec *datastore.Hotspot) {
	c.records = append(c.records, rec)
}

func testListener(sink RecordSink) *Listener {
	settings := &conf.Settings{}
	settings.Main.Name = "test"
	settings.LiveFeed.SeenCacheSize = 16
	return NewListener(settings, sink, nil)
}

func TestHandleSuppressesDuplicates(t *testing.T) {
	sink := &captureSink{}
	l := testListener(sink)

	l.Handle([]byte(signalsPayload))
	l.Handle([]byte(signalsPayload))

	assert.Len(t, sink.records, 2, "second relay of the same scan is dropped")
}

func TestHandleSkipsMalformedAndContinues(t *testing.T) {
	sink := &captureSink{}
	l := testListener(sink)

	l.Handle([]byte(`not json`))
	l.Handle([]byte(signalsPayload))

	assert.Len(t, sink.records, 2)
}

func TestSeenCacheCapacityFlush(t *testing.T) {
	sink := &captureSink{}
	l := testListener(sink)

	for i := 0; i < 100; i++ {
		payload := fmt.Sprintf(`{
			"$schemaRef": "https://eddn.edcd.io/schemas/journal/1",
			"message": {
				"event": "SAASignalsFound",
				"StarSystem": "Paesia",
				"BodyName": "Paesia %d A Ring",
				"Signals": [{"Type": "Platinum", "Count": 1}]
			}
		}`, i)
		l.Handle([]byte(payload))
	}

	assert.Len(t, sink.records, 100)
	assert.LessOrEqual(t, l.seen.entries.ItemCount(), 16)
}

func TestConnectCanceledContext(t *testing.T) {
	l := testListener(&captureSink{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Connect(ctx)
	assert.Error(t, err, "a dead context must not start a broker dial")
	assert.False(t, l.IsConnected())
}
