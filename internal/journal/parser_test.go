package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineFSDJump(t *testing.T) {
	line := []byte(`{"timestamp":"2026-05-01T12:00:00Z","event":"FSDJump","StarSystem":"Paesia","SystemAddress":3107509474002,"StarPos":[64.8125,48.75,-27.625]}`)

	ev, err := ParseLine(line)
	require.NoError(t, err)
	arrival, ok := ev.(*SystemArrival)
	require.True(t, ok)
	assert.Equal(t, "Paesia", arrival.StarSystem)
	assert.Equal(t, int64(3107509474002), arrival.SystemAddress)
	require.NotNil(t, arrival.StarPos)
	assert.Equal(t, 64.8125, arrival.StarPos[0])
	assert.Equal(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), arrival.Time())
}

func TestParseLineDockedHasNoStarPos(t *testing.T) {
	line := []byte(`{"timestamp":"2026-05-01T12:05:00Z","event":"Docked","StarSystem":"Paesia","SystemAddress":3107509474002,"StationName":"Cleve Hub"}`)

	ev, err := ParseLine(line)
	require.NoError(t, err)
	arrival, ok := ev.(*SystemArrival)
	require.True(t, ok)
	assert.Equal(t, "Docked", arrival.JournalEvent)
	assert.Nil(t, arrival.StarPos)
}

func TestParseLineScanWithRings(t *testing.T) {
	line := []byte(`{"timestamp":"2026-05-01T12:10:00Z","event":"Scan","BodyName":"Paesia 2","SystemAddress":3107509474002,"DistanceFromArrivalLS":912.5,"ReserveLevel":"PristineResources","Rings":[{"Name":"Paesia 2 A Ring","RingClass":"eRingClass_Metalic","MassMT":44934000000,"InnerRad":108800000,"OuterRad":115180000}]}`)

	ev, err := ParseLine(line)
	require.NoError(t, err)
	scan, ok := ev.(*BodyScan)
	require.True(t, ok)
	require.Len(t, scan.Rings, 1)
	assert.Equal(t, "Paesia 2 A Ring", scan.Rings[0].Name)
	assert.Equal(t, 44934000000.0, scan.Rings[0].MassMT)
	assert.Equal(t, "PristineResources", scan.ReserveLevel)
}

func TestParseLineScanWithoutRingsIgnored(t *testing.T) {
	line := []byte(`{"timestamp":"2026-05-01T12:10:00Z","event":"Scan","BodyName":"Paesia 1","SystemAddress":3107509474002}`)

	ev, err := ParseLine(line)
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestParseLineSignals(t *testing.T) {
	line := []byte(`{"timestamp":"2026-05-01T12:15:00Z","event":"SAASignalsFound","BodyName":"Paesia 2 A Ring","SystemAddress":3107509474002,"Signals":[{"Type":"Platinum","Count":2},{"Type":"$Painite_Name;","Type_Localised":"Painite","Count":1}]}`)

	ev, err := ParseLine(line)
	require.NoError(t, err)
	sig, ok := ev.(*HotspotSignals)
	require.True(t, ok)
	require.Len(t, sig.Signals, 2)
	assert.Equal(t, "Platinum", sig.Signals[0].Type)
	assert.Equal(t, 2, sig.Signals[0].Count)
	assert.Equal(t, "Painite", sig.Signals[1].Type, "localised name preferred")
}

func TestParseLineUnknownEventIgnored(t *testing.T) {
	line := []byte(`{"timestamp":"2026-05-01T12:00:00Z","event":"Music","MusicTrack":"Exploration"}`)

	ev, err := ParseLine(line)
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestParseLineMalformedJSON(t *testing.T) {
	_, err := ParseLine([]byte(`{"timestamp":"2026-05-01T12:00:00Z","event":"FSDJump",`))
	assert.Error(t, err)
}

func TestParseLineArrivalMissingSystem(t *testing.T) {
	_, err := ParseLine([]byte(`{"timestamp":"2026-05-01T12:00:00Z","event":"FSDJump"}`))
	assert.Error(t, err)
}

func TestParseLineCollected(t *testing.T) {
	line := []byte(`{"timestamp":"2026-05-01T13:00:00Z","event":"MiningRefined","Type":"$platinum_name;","Type_Localised":"Platinum"}`)

	ev, err := ParseLine(line)
	require.NoError(t, err)
	col, ok := ev.(*MaterialCollected)
	require.True(t, ok)
	assert.Equal(t, "Platinum", col.Name)
}
