// Package journal consumes the game's append-only session journal: an
// external process writes one JSON event per line, this package tails the
// active file and turns relevant lines into typed domain events.
package journal

import "time"

// EventKind identifies a parsed journal event type.
type EventKind string

const (
	KindSystemArrival     EventKind = "system-arrival"
	KindBodyScan          EventKind = "body-scan"
	KindHotspotSignals    EventKind = "hotspot-signals"
	KindMaterialCollected EventKind = "material-collected"
)

// Event is a typed journal event.
type Event interface {
	Kind() EventKind
	Time() time.Time
}

// SystemArrival is emitted for every journal event that confirms presence in
// a system: FSD jump, carrier jump, docking, and the location line written
// on game load. Visit counting de-duplicates across these.
type SystemArrival struct {
	Timestamp     time.Time
	JournalEvent  string // FSDJump, CarrierJump, Docked, Location
	StarSystem    string
	SystemAddress int64
	StarPos       *[3]float64 // galactic coordinates, not on every event type
}

func (e *SystemArrival) Kind() EventKind { return KindSystemArrival }
func (e *SystemArrival) Time() time.Time { return e.Timestamp }

// RingInfo is the per-ring physical data carried by a body scan.
type RingInfo struct {
	Name         string  // full ring body name, e.g. "Paesia 2 A Ring"
	RingClass    string  // raw journal class, e.g. "eRingClass_Metalic"
	MassMT       float64 `json:"MassMT"`
	InnerRadiusM float64 `json:"InnerRad"`
	OuterRadiusM float64 `json:"OuterRad"`
}

// BodyScan is emitted for a body composition scan that includes rings. It
// arrives before the per-ring hotspot signals and supplies the mass, radii
// and class the signal event lacks.
type BodyScan struct {
	Timestamp     time.Time
	BodyName      string
	SystemAddress int64
	DistanceLS    float64
	ReserveLevel  string // journal spelling, e.g. "PristineResources"
	Rings         []RingInfo
}

func (e *BodyScan) Kind() EventKind { return KindBodyScan }
func (e *BodyScan) Time() time.Time { return e.Timestamp }

// Signal is one material hotspot signal within a ring.
type Signal struct {
	Type  string // material name
	Count int
}

// HotspotSignals is emitted when ring surface signals resolve, carrying the
// per-material hotspot counts for one ring.
type HotspotSignals struct {
	Timestamp     time.Time
	BodyName      string // full ring body name
	SystemAddress int64
	Signals       []Signal
}

func (e *HotspotSignals) Kind() EventKind { return KindHotspotSignals }
func (e *HotspotSignals) Time() time.Time { return e.Timestamp }

// MaterialCollected is emitted when a commodity or material is refined or
// collected; consumers use it for session reporting only.
type MaterialCollected struct {
	Timestamp time.Time
	Name      string
	Category  string
}

func (e *MaterialCollected) Kind() EventKind { return KindMaterialCollected }
func (e *MaterialCollected) Time() time.Time { return e.Timestamp }
