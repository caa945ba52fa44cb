package datastore

import (
	"gorm.io/gorm"

	"github.com/tphakala/ringscout/internal/errors"
)

// performAutoMigration runs additive schema migration and verifies the
// result. Migration never rewrites or drops existing rows; new columns arrive
// as NULL. A schema that still misses expected tables or columns afterwards
// is a fatal startup error, never a silent fallback.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	models := []any{
		&Hotspot{},
		&SystemCoordinate{},
		&SystemVisit{},
		&RingAnnotation{},
		&ImportRun{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return errors.Newf("failed to auto-migrate %s database: %w", dbType, err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("connection", connectionInfo).
			Build()
	}

	if err := verifySchema(db); err != nil {
		return err
	}

	if debug {
		logger.Debug("Database schema migrated", "type", dbType, "connection", connectionInfo)
	}
	return nil
}

// verifySchema confirms the columns the reconciler depends on exist. These
// were added across schema versions; their absence after migration means the
// store is corrupt.
func verifySchema(db *gorm.DB) error {
	required := map[string][]string{
		"hotspots": {
			"system_name", "body_name", "ring_name", "material",
			"ring_type", "ls_distance", "ring_mass_mt", "density",
			"x", "y", "z", "coord_source",
		},
		"system_coordinates": {"system_name", "x", "y", "z", "source"},
		"system_visits":      {"system_name", "count", "last_arrival_at"},
	}

	migrator := db.Migrator()
	for table, columns := range required {
		if !migrator.HasTable(table) {
			return errors.Newf("schema corruption: table %q missing after migration", table).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Build()
		}
		for _, column := range columns {
			if !migrator.HasColumn(table, column) {
				return errors.Newf("schema corruption: column %s.%s missing after migration", table, column).
					Component("datastore").
					Category(errors.CategoryDatabase).
					Build()
			}
		}
	}
	return nil
}
