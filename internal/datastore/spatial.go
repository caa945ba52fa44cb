package datastore

import (
	"math"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/tphakala/ringscout/internal/ring"
)

// spatialIndex is a uniform grid over galactic (x, y, z) coordinates in
// light years. Each populated system occupies one cell; a radius query
// visits only the cells intersecting the bounding cube of the search sphere
// instead of computing a distance for every stored system.
//
// At the tens-of-thousands-of-systems scale this store operates on, a grid
// with ~100 ly cells keeps candidate sets small for typical search radii
// while staying trivial to maintain incrementally on upsert.
type spatialIndex struct {
	cellSize float64

	mu      sync.RWMutex
	cells   map[cellKey][]string // cell -> system names
	systems map[string]point     // system name -> position
}

type cellKey struct{ cx, cy, cz int }

type point struct{ x, y, z float64 }

func newSpatialIndex(cellSizeLy float64) *spatialIndex {
	return &spatialIndex{
		cellSize: cellSizeLy,
		cells:    make(map[cellKey][]string),
		systems:  make(map[string]point),
	}
}

func (si *spatialIndex) keyFor(x, y, z float64) cellKey {
	return cellKey{
		cx: int(math.Floor(x / si.cellSize)),
		cy: int(math.Floor(y / si.cellSize)),
		cz: int(math.Floor(z / si.cellSize)),
	}
}

// Insert adds or repositions a system.
func (si *spatialIndex) Insert(systemName string, x, y, z float64) {
	si.mu.Lock()
	defer si.mu.Unlock()

	if old, ok := si.systems[systemName]; ok {
		if old.x == x && old.y == y && old.z == z {
			return
		}
		si.removeFromCell(systemName, si.keyFor(old.x, old.y, old.z))
	}

	si.systems[systemName] = point{x, y, z}
	key := si.keyFor(x, y, z)
	si.cells[key] = append(si.cells[key], systemName)
}

// Remove drops a system from the index.
func (si *spatialIndex) Remove(systemName string) {
	si.mu.Lock()
	defer si.mu.Unlock()

	p, ok := si.systems[systemName]
	if !ok {
		return
	}
	delete(si.systems, systemName)
	si.removeFromCell(systemName, si.keyFor(p.x, p.y, p.z))
}

func (si *spatialIndex) removeFromCell(systemName string, key cellKey) {
	names := si.cells[key]
	for i, n := range names {
		if n == systemName {
			names[i] = names[len(names)-1]
			si.cells[key] = names[:len(names)-1]
			break
		}
	}
	if len(si.cells[key]) == 0 {
		delete(si.cells, key)
	}
}

// Len returns the number of indexed systems.
func (si *spatialIndex) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.systems)
}

// candidate is a system within query range.
type candidate struct {
	name     string
	distance float64
}

// Candidates returns all indexed systems within maxDist of the origin.
func (si *spatialIndex) Candidates(origin [3]float64, maxDist float64) []candidate {
	si.mu.RLock()
	defer si.mu.RUnlock()

	lo := si.keyFor(origin[0]-maxDist, origin[1]-maxDist, origin[2]-maxDist)
	hi := si.keyFor(origin[0]+maxDist, origin[1]+maxDist, origin[2]+maxDist)

	var out []candidate
	for cx := lo.cx; cx <= hi.cx; cx++ {
		for cy := lo.cy; cy <= hi.cy; cy++ {
			for cz := lo.cz; cz <= hi.cz; cz++ {
				for _, name := range si.cells[cellKey{cx, cy, cz}] {
					p := si.systems[name]
					d := dist3(origin, p.x, p.y, p.z)
					if d <= maxDist {
						out = append(out, candidate{name: name, distance: d})
					}
				}
			}
		}
	}
	return out
}

func dist3(origin [3]float64, x, y, z float64) float64 {
	dx := x - origin[0]
	dy := y - origin[1]
	dz := z - origin[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// loadSpatialIndex populates the index from stored hotspot coordinates.
func (ds *DataStore) loadSpatialIndex() error {
	var rows []struct {
		SystemName string
		X, Y, Z    float64
	}
	err := ds.DB.Model(&Hotspot{}).
		Select("system_name, x, y, z").
		Where("x IS NOT NULL AND y IS NOT NULL AND z IS NOT NULL").
		Group("system_name").
		Scan(&rows).Error
	if err != nil {
		return wrapDBErr(err)
	}
	for _, r := range rows {
		ds.index.Insert(r.SystemName, r.X, r.Y, r.Z)
	}
	return nil
}

// inClauseChunk bounds the size of generated IN (...) lists.
const inClauseChunk = 400

// RadiusQuery returns all matching records whose straight-line distance from
// the origin is at most maxDistanceLy. Results are ordered by distance
// ascending, ties broken by system name, so output is deterministic.
//
// Candidate systems come from the spatial index when one is enabled;
// otherwise a full linear scan over stored coordinates produces the same set,
// just slower.
func (ds *DataStore) RadiusQuery(origin [3]float64, maxDistanceLy float64, filters Filters) ([]Result, error) {
	candidates, err := ds.candidateSystems(origin, maxDistanceLy)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	distByName := make(map[string]float64, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		distByName[c.name] = c.distance
		names = append(names, c.name)
	}

	var results []Result
	for start := 0; start < len(names); start += inClauseChunk {
		end := min(start+inClauseChunk, len(names))

		q := ds.DB.Model(&Hotspot{}).Where("system_name IN ?", names[start:end])
		q = applyFilters(q, filters)

		var rows []Hotspot
		if err := q.Find(&rows).Error; err != nil {
			return nil, wrapDBErr(err)
		}
		for i := range rows {
			results = append(results, Result{
				Hotspot:    rows[i],
				DistanceLy: distByName[rows[i].SystemName],
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceLy != results[j].DistanceLy {
			return results[i].DistanceLy < results[j].DistanceLy
		}
		return results[i].Hotspot.SystemName < results[j].Hotspot.SystemName
	})

	return results, nil
}

// candidateSystems returns systems within range, from the index or by scan.
func (ds *DataStore) candidateSystems(origin [3]float64, maxDist float64) ([]candidate, error) {
	if ds.index != nil {
		return ds.index.Candidates(origin, maxDist), nil
	}

	// Linear fallback: identical answers, full table distance computation.
	var rows []struct {
		SystemName string
		X, Y, Z    float64
	}
	err := ds.DB.Model(&Hotspot{}).
		Select("system_name, x, y, z").
		Where("x IS NOT NULL AND y IS NOT NULL AND z IS NOT NULL").
		Group("system_name").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapDBErr(err)
	}

	var out []candidate
	for _, r := range rows {
		if d := dist3(origin, r.X, r.Y, r.Z); d <= maxDist {
			out = append(out, candidate{name: r.SystemName, distance: d})
		}
	}
	return out, nil
}

// applyFilters narrows a hotspot query by the optional search filters.
// Reserve level lives on the ring annotation rows.
func applyFilters(q *gorm.DB, filters Filters) *gorm.DB {
	if len(filters.RingTypes) > 0 {
		q = q.Where("ring_type IN ?", filters.RingTypes)
	}
	if filters.Material != "" {
		q = q.Where("material = ?", filters.Material)
	}
	if filters.MinHotspots > 0 {
		q = q.Where("count >= ?", filters.MinHotspots)
	}
	if filters.Reserve != ring.ReserveUnknown {
		q = q.Where(`EXISTS (
			SELECT 1 FROM ring_annotations ra
			WHERE ra.system_name = hotspots.system_name
			  AND ra.body_name = hotspots.body_name
			  AND ra.ring_name = hotspots.ring_name
			  AND ra.reserve_level = ?)`, filters.Reserve)
	}
	return q
}
