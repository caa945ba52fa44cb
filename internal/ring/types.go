// Package ring defines the closed enumerations and physical calculations
// shared by every component that handles ring and hotspot data.
package ring

import "strings"

// Type classifies a ring by composition. Unknown is a first-class member so
// that "not yet observed" is distinguishable from any observed value.
type Type string

const (
	TypeMetallic  Type = "Metallic"
	TypeRocky     Type = "Rocky"
	TypeIcy       Type = "Icy"
	TypeMetalRich Type = "Metal Rich"
	TypeUnknown   Type = ""
)

// Known reports whether the ring type carries an observed value.
func (t Type) Known() bool {
	return t != TypeUnknown
}

// ParseType normalizes a ring class string from any of the ingestion sources.
// The game journal uses eRingClass_* identifiers, community datasets use the
// display names. Unrecognized input maps to TypeUnknown.
func ParseType(s string) Type {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "eRingClass_")
	switch strings.ToLower(strings.ReplaceAll(s, " ", "")) {
	case "metallic", "metalic": // the journal misspells it
		return TypeMetallic
	case "rocky":
		return TypeRocky
	case "icy":
		return TypeIcy
	case "metalrich", "metalrich;":
		return TypeMetalRich
	default:
		return TypeUnknown
	}
}

// ReserveLevel is a ring's relative abundance classification.
type ReserveLevel string

const (
	ReservePristine ReserveLevel = "Pristine"
	ReserveMajor    ReserveLevel = "Major"
	ReserveCommon   ReserveLevel = "Common"
	ReserveLow      ReserveLevel = "Low"
	ReserveDepleted ReserveLevel = "Depleted"
	ReserveUnknown  ReserveLevel = ""
)

// ParseReserveLevel normalizes a reserve level string, accepting both the
// journal identifiers (PristineResources) and plain display names.
func ParseReserveLevel(s string) ReserveLevel {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Resources")
	switch strings.ToLower(s) {
	case "pristine":
		return ReservePristine
	case "major":
		return ReserveMajor
	case "common":
		return ReserveCommon
	case "low":
		return ReserveLow
	case "depleted":
		return ReserveDepleted
	default:
		return ReserveUnknown
	}
}

// CoordSource records where a system's coordinates were obtained.
type CoordSource string

const (
	CoordJournal CoordSource = "journal"
	CoordEDSM    CoordSource = "edsm"
	CoordBundled CoordSource = "bundled"
	CoordUnknown CoordSource = ""
)

// Origin identifies which ingestion adapter produced a record. It drives the
// fidelity ranking used when two sources disagree on a non-empty field.
type Origin string

const (
	OriginJournal  Origin = "journal"
	OriginImport   Origin = "import"
	OriginLiveFeed Origin = "livefeed"
)

// Fidelity returns the trust rank of an origin. Locally parsed journal data
// outranks the bulk community dataset, which outranks the live feed.
func (o Origin) Fidelity() int {
	switch o {
	case OriginJournal:
		return 3
	case OriginImport:
		return 2
	case OriginLiveFeed:
		return 1
	default:
		return 0
	}
}
