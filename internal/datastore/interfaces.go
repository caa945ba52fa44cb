// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/ringscout/internal/conf"
	"github.com/tphakala/ringscout/internal/ring"
)

// Action is the reconciliation outcome for an incoming record.
type Action int

const (
	ActionSkip Action = iota
	ActionInsert
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	default:
		return "skip"
	}
}

// Decision is a reconciler verdict: the action plus, for updates, the names
// of the columns that actually change.
type Decision struct {
	Action Action
	Fields []string
}

// Reconciler decides whether an incoming hotspot record should insert,
// update or be discarded given the existing record for the same identity.
// All writes go through a Reconciler; adapters never overwrite rows directly.
type Reconciler interface {
	Reconcile(existing, incoming *Hotspot) Decision
}

// Filters narrows a radius query.
type Filters struct {
	RingTypes   []ring.Type
	Material    string
	MinHotspots int
	Reserve     ring.ReserveLevel
}

// Result is one radius query row with its straight-line distance from the
// query origin in light years.
type Result struct {
	Hotspot    Hotspot
	DistanceLy float64
}

// Stats summarizes store contents for startup logging and the CLI.
type Stats struct {
	Hotspots    int64
	Systems     int64
	Coordinates int64
	Visits      int64
	Annotations int64
	ByRingType  map[ring.Type]int64
}

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error

	// Upsert routes the incoming record through the Reconciler and persists
	// the verdict. The returned Action reports what was done.
	Upsert(incoming *Hotspot) (Action, error)

	// GetHotspot fetches the record for an identity, or nil when absent.
	GetHotspot(systemName, bodyName, ringName, material string) (*Hotspot, error)

	// RadiusQuery returns all matching records within maxDistanceLy of the
	// origin, ordered by distance ascending with ties broken by system name.
	RadiusQuery(origin [3]float64, maxDistanceLy float64, filters Filters) ([]Result, error)

	// RecordVisit increments the arrival counter for a system unless the
	// arrival duplicates the last recorded one. Returns whether it counted.
	RecordVisit(systemName string, systemAddress int64, arrivedAt time.Time) (bool, error)

	// RemoveRing hard-deletes all hotspot rows and annotations for a ring.
	// This is the only hard delete path, reserved for confirmed-erroneous
	// entries such as rings removed by a game update.
	RemoveRing(systemName, bodyName, ringName string) (int64, error)

	SaveCoordinate(coord *SystemCoordinate) error
	GetCoordinate(systemName string) (*SystemCoordinate, error)

	UpsertAnnotation(ann *RingAnnotation) error
	GetAnnotation(systemName, bodyName, ringName string) (*RingAnnotation, error)

	GetImportRun(checksum string) (*ImportRun, error)
	SaveImportRun(run *ImportRun) error

	GetStats() (Stats, error)
}

// DataStore implements Interface using a GORM database. A single mutex
// serializes the upsert critical section; readers go through SQLite's own
// WAL-mode locking and need no application-level read lock.
type DataStore struct {
	DB *gorm.DB

	reconciler Reconciler
	index      *spatialIndex
	writeMu    sync.Mutex
}

// New creates a DataStore for the configured database backend.
func New(settings *conf.Settings, reconciler Reconciler) Interface {
	var index *spatialIndex
	if settings.Database.SpatialIndex.Enabled {
		index = newSpatialIndex(settings.Database.SpatialIndex.CellSizeLy)
	}
	return &SQLiteStore{
		DataStore: DataStore{reconciler: reconciler, index: index},
		Settings:  settings,
	}
}
