package datastore

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/ring"
)

// visitDedupWindow is how close together two arrival events for the same
// system may be and still count as one arrival. The journal emits several
// event types for a single arrival (jump, dock, location on load).
const visitDedupWindow = 2 * time.Minute

// Upsert routes the incoming record through the Reconciler and persists the
// verdict. Only the fields the reconciler lists are written on update, so
// trustworthy existing values are never clobbered.
func (ds *DataStore) Upsert(incoming *Hotspot) (Action, error) {
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	existing, err := ds.GetHotspot(incoming.SystemName, incoming.BodyName, incoming.RingName, incoming.Material)
	if err != nil {
		return ActionSkip, err
	}

	decision := ds.reconciler.Reconcile(existing, incoming)

	switch decision.Action {
	case ActionInsert:
		if err := ds.DB.Create(incoming).Error; err != nil {
			return ActionSkip, errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("system", incoming.SystemName).
				Build()
		}
		ds.indexRecord(incoming)
		return ActionInsert, nil

	case ActionUpdate:
		if len(decision.Fields) == 0 {
			return ActionSkip, nil
		}
		// The reconciler has already merged incoming into a copy of the
		// existing record; write back just the changed columns.
		if err := ds.DB.Model(&Hotspot{}).
			Where("id = ?", existing.ID).
			Select(decision.Fields).
			Updates(incoming).Error; err != nil {
			return ActionSkip, errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("system", incoming.SystemName).
				Build()
		}
		ds.indexRecord(incoming)
		return ActionUpdate, nil

	default:
		return ActionSkip, nil
	}
}

// GetHotspot fetches the record for an identity, or nil when absent.
func (ds *DataStore) GetHotspot(systemName, bodyName, ringName, material string) (*Hotspot, error) {
	var h Hotspot
	err := ds.DB.
		Where("system_name = ? AND body_name = ? AND ring_name = ? AND material = ?",
			systemName, bodyName, ringName, material).
		First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return &h, nil
}

// RecordVisit increments the arrival counter for a system unless the arrival
// duplicates the last recorded one (same arrival reported by several journal
// event types, or an identical replayed timestamp).
func (ds *DataStore) RecordVisit(systemName string, systemAddress int64, arrivedAt time.Time) (bool, error) {
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	var visit SystemVisit
	err := ds.DB.Where("system_name = ?", systemName).First(&visit).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		visit = SystemVisit{
			SystemName:    systemName,
			SystemAddress: systemAddress,
			Count:         1,
			LastArrivalAt: arrivedAt,
		}
		if err := ds.DB.Create(&visit).Error; err != nil {
			return false, wrapDBErr(err)
		}
		return true, nil
	case err != nil:
		return false, wrapDBErr(err)
	}

	delta := arrivedAt.Sub(visit.LastArrivalAt)
	if delta < 0 {
		delta = -delta
	}
	if delta < visitDedupWindow {
		return false, nil
	}

	updates := map[string]any{
		"count":           visit.Count + 1,
		"last_arrival_at": arrivedAt,
	}
	if systemAddress != 0 {
		updates["system_address"] = systemAddress
	}
	if err := ds.DB.Model(&visit).Updates(updates).Error; err != nil {
		return false, wrapDBErr(err)
	}
	return true, nil
}

// RemoveRing hard-deletes all hotspot rows and annotations for a ring. The
// only hard delete path, reserved for confirmed-erroneous entries.
func (ds *DataStore) RemoveRing(systemName, bodyName, ringName string) (int64, error) {
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	res := ds.DB.
		Where("system_name = ? AND body_name = ? AND ring_name = ?", systemName, bodyName, ringName).
		Delete(&Hotspot{})
	if res.Error != nil {
		return 0, wrapDBErr(res.Error)
	}
	if err := ds.DB.
		Where("system_name = ? AND body_name = ? AND ring_name = ?", systemName, bodyName, ringName).
		Delete(&RingAnnotation{}).Error; err != nil {
		return res.RowsAffected, wrapDBErr(err)
	}

	// Rebuild the index entry for the system: other rings may still hold it.
	if ds.index != nil {
		var remaining int64
		ds.DB.Model(&Hotspot{}).
			Where("system_name = ? AND x IS NOT NULL", systemName).
			Count(&remaining)
		if remaining == 0 {
			ds.index.Remove(systemName)
		}
	}

	logger.Info("Removed ring", "system", systemName, "body", bodyName, "ring", ringName,
		"hotspots_deleted", res.RowsAffected)
	return res.RowsAffected, nil
}

// SaveCoordinate inserts or refreshes a cached system coordinate.
func (ds *DataStore) SaveCoordinate(coord *SystemCoordinate) error {
	err := ds.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "system_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"system_address", "x", "y", "z", "source", "fetched_at",
		}),
	}).Create(coord).Error
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}

// GetCoordinate returns the cached coordinate for a system, or nil.
func (ds *DataStore) GetCoordinate(systemName string) (*SystemCoordinate, error) {
	var coord SystemCoordinate
	err := ds.DB.Where("system_name = ?", systemName).First(&coord).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapDBErr(err)
	}
	return &coord, nil
}

// UpsertAnnotation merges a ring annotation. Annotations are additive: a tag
// already set is kept unless the incoming annotation sets it too.
func (ds *DataStore) UpsertAnnotation(ann *RingAnnotation) error {
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	existing, err := ds.GetAnnotation(ann.SystemName, ann.BodyName, ann.RingName)
	if err != nil {
		return err
	}
	if existing == nil {
		return wrapDBErr(ds.DB.Create(ann).Error)
	}

	updates := map[string]any{}
	if ann.Overlap && !existing.Overlap {
		updates["overlap"] = true
	}
	if ann.ResSite != "" && ann.ResSite != existing.ResSite {
		updates["res_site"] = ann.ResSite
	}
	if ann.ReserveLevel != ring.ReserveUnknown && ann.ReserveLevel != existing.ReserveLevel {
		updates["reserve_level"] = ann.ReserveLevel
	}
	if len(updates) == 0 {
		return nil
	}
	return wrapDBErr(ds.DB.Model(existing).Updates(updates).Error)
}

// GetAnnotation returns the annotation row for a ring, or nil.
func (ds *DataStore) GetAnnotation(systemName, bodyName, ringName string) (*RingAnnotation, error) {
	var ann RingAnnotation
	err := ds.DB.
		Where("system_name = ? AND body_name = ? AND ring_name = ?", systemName, bodyName, ringName).
		First(&ann).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapDBErr(err)
	}
	return &ann, nil
}

// GetImportRun returns the import progress row for a dataset checksum, or nil.
func (ds *DataStore) GetImportRun(checksum string) (*ImportRun, error) {
	var run ImportRun
	err := ds.DB.Where("dataset_checksum = ?", checksum).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapDBErr(err)
	}
	return &run, nil
}

// SaveImportRun inserts or updates an import progress row.
func (ds *DataStore) SaveImportRun(run *ImportRun) error {
	return wrapDBErr(ds.DB.Save(run).Error)
}

// GetStats summarizes store contents.
func (ds *DataStore) GetStats() (Stats, error) {
	stats := Stats{ByRingType: make(map[ring.Type]int64)}

	counts := []struct {
		model any
		dst   *int64
	}{
		{&Hotspot{}, &stats.Hotspots},
		{&SystemCoordinate{}, &stats.Coordinates},
		{&SystemVisit{}, &stats.Visits},
		{&RingAnnotation{}, &stats.Annotations},
	}
	for _, c := range counts {
		if err := ds.DB.Model(c.model).Count(c.dst).Error; err != nil {
			return stats, wrapDBErr(err)
		}
	}

	if err := ds.DB.Model(&Hotspot{}).
		Distinct("system_name").
		Count(&stats.Systems).Error; err != nil {
		return stats, wrapDBErr(err)
	}

	var rows []struct {
		RingType ring.Type
		N        int64
	}
	if err := ds.DB.Model(&Hotspot{}).
		Select("ring_type, count(*) as n").
		Group("ring_type").
		Scan(&rows).Error; err != nil {
		return stats, wrapDBErr(err)
	}
	for _, r := range rows {
		stats.ByRingType[r.RingType] = r.N
	}

	return stats, nil
}

// indexRecord keeps the spatial index current after a write.
func (ds *DataStore) indexRecord(h *Hotspot) {
	if ds.index == nil || !h.HasCoords() {
		return
	}
	ds.index.Insert(h.SystemName, *h.X, *h.Y, *h.Z)
}

func wrapDBErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()
}
