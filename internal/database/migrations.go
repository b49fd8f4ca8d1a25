package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes used by need and contact listings.
// Single-column indexes come from model tags.
func AddIndexes(db *gorm.DB, log *logrus.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Public listing filters open needs per area and sorts by creation time
		{"needs", "idx_needs_area_status", "area_id, status"},
		{"needs", "idx_needs_status_created_at", "status, created_at"},

		// Contact inbox filters by status, newest first
		{"contact_messages", "idx_contact_messages_status_created_at", "status, created_at"},

		// Area assignment lookups by area for the active-admin count
		{"area_assignments", "idx_area_assignments_area_active", "area_id, is_active"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.WithField("index", idx.name).Debug("index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.WithFields(logrus.Fields{
			"index": idx.name,
			"table": idx.table,
		}).Info("created index")
	}

	return nil
}
