// model.go this code defines the data model for the application
package datastore

import (
	"time"

	"github.com/tphakala/ringscout/internal/ring"
)

// Hotspot represents one material hotspot within one ring. The logical
// identity is (SystemName, BodyName, RingName, Material); SystemAddress is
// the game-assigned ID preferred as a join key when available, since display
// names are not guaranteed unique across the galaxy.
//
// Optional physical attributes are pointers so that "not observed" is
// distinguishable from a legitimate zero.
type Hotspot struct {
	ID            uint   `gorm:"primaryKey"`
	SystemAddress int64  `gorm:"index:idx_hotspots_sysaddr"`
	SystemName    string `gorm:"index:idx_hotspots_identity,unique,priority:1;index:idx_hotspots_sysname"`
	BodyName      string `gorm:"index:idx_hotspots_identity,unique,priority:2"`
	RingName      string `gorm:"index:idx_hotspots_identity,unique,priority:3"`
	Material      string `gorm:"index:idx_hotspots_identity,unique,priority:4;index:idx_hotspots_material"`

	Count    int       // hotspots of this material in the ring, from the most recent scan
	RingType ring.Type `gorm:"type:varchar(20)"`

	RingMassMT   *float64 // megatons
	InnerRadiusM *float64 // meters
	OuterRadiusM *float64 // meters
	Density      *float64 // derived, see ring.Density
	LSDistance   *float64 // light seconds from arrival star

	X *float64
	Y *float64
	Z *float64

	CoordSource ring.CoordSource `gorm:"type:varchar(16)"`
	Origin      ring.Origin      `gorm:"type:varchar(16)"` // adapter that last touched the record
	ScannedAt   time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCoords reports whether all three coordinates are present.
func (h *Hotspot) HasCoords() bool {
	return h.X != nil && h.Y != nil && h.Z != nil
}

// SystemCoordinate caches a 3-D position for a system name with provenance
// and fetch time. Entries older than the resolver TTL are re-fetched.
type SystemCoordinate struct {
	ID            uint   `gorm:"primaryKey"`
	SystemName    string `gorm:"uniqueIndex:idx_syscoords_name"`
	SystemAddress int64  `gorm:"index:idx_syscoords_sysaddr"`
	X             float64
	Y             float64
	Z             float64
	Source        ring.CoordSource `gorm:"type:varchar(16)"`
	FetchedAt     time.Time
}

// SystemVisit is the per-system arrival counter. It has a lifecycle separate
// from hotspot scans: incremented on confirmed arrival events only, with
// de-duplication against repeated events for the same arrival.
type SystemVisit struct {
	ID            uint   `gorm:"primaryKey"`
	SystemName    string `gorm:"uniqueIndex:idx_visits_name"`
	SystemAddress int64  `gorm:"index:idx_visits_sysaddr"`
	Count         int
	LastArrivalAt time.Time
}

// RingAnnotation carries per-ring user or adapter supplied tags: a
// multi-material overlap marker, a resource-extraction-site classification
// and the reserve level. Annotations coexist with Hotspot rows for the same
// ring and are additive, never conflicting.
type RingAnnotation struct {
	ID         uint   `gorm:"primaryKey"`
	SystemName string `gorm:"index:idx_annotations_ring,unique,priority:1"`
	BodyName   string `gorm:"index:idx_annotations_ring,unique,priority:2"`
	RingName   string `gorm:"index:idx_annotations_ring,unique,priority:3"`

	Overlap      bool              // ring has overlapping hotspots of different materials
	ResSite      string            // resource extraction site classification, free text
	ReserveLevel ring.ReserveLevel `gorm:"type:varchar(16)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ImportRun tracks bulk import progress so a re-run after partial completion
// resumes instead of replaying from the start.
type ImportRun struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	DatasetChecksum string `gorm:"uniqueIndex:idx_importruns_checksum"`
	DatasetPath     string
	LineOffset      int64 // number of input lines already applied

	Inserted int64
	Updated  int64
	Skipped  int64
	Failed   int64

	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
