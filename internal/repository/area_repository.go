package repository

import (
	"github.com/yukikurage/relief-management-api/internal/models"
	"gorm.io/gorm"
)

// GormAreaRepository is a GORM implementation of AreaRepository
type GormAreaRepository struct {
	db *gorm.DB
}

// NewAreaRepository creates a new AreaRepository
func NewAreaRepository(db *gorm.DB) AreaRepository {
	return &GormAreaRepository{db: db}
}

// Create creates a new area
func (r *GormAreaRepository) Create(area *models.Area) error {
	return r.db.Create(area).Error
}

// FindByID finds an area by ID
func (r *GormAreaRepository) FindByID(id uint64) (*models.Area, error) {
	var area models.Area
	if err := r.db.First(&area, id).Error; err != nil {
		return nil, err
	}
	return &area, nil
}

// List lists every area ordered by name
func (r *GormAreaRepository) List() ([]models.Area, error) {
	var areas []models.Area
	if err := r.db.Order("name ASC, id ASC").Find(&areas).Error; err != nil {
		return nil, err
	}
	return areas, nil
}

// ListWithNeedCounts lists areas with the number of open needs in each
func (r *GormAreaRepository) ListWithNeedCounts() ([]AreaNeedCount, error) {
	var rows []AreaNeedCount
	err := r.db.Model(&models.Area{}).
		Select("areas.*, COUNT(needs.id) AS open_needs").
		Joins("LEFT JOIN needs ON needs.area_id = areas.id AND needs.status IN ?",
			[]models.NeedStatus{models.NeedStatusPending, models.NeedStatusInProgress}).
		Group("areas.id").
		Order("areas.name ASC, areas.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Update updates an area
func (r *GormAreaRepository) Update(area *models.Area) error {
	return r.db.Save(area).Error
}

// Delete deletes an area and all related data in a transaction
func (r *GormAreaRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Delete all needs in the area
		if err := tx.Where("area_id = ?", id).Delete(&models.Need{}).Error; err != nil {
			return err
		}

		var userIDs []uint64
		if err := tx.Model(&models.AreaAssignment{}).
			Where("area_id = ?", id).
			Pluck("user_id", &userIDs).Error; err != nil {
			return err
		}

		// Delete the assignments and their paired identities
		if err := tx.Where("area_id = ?", id).Delete(&models.AreaAssignment{}).Error; err != nil {
			return err
		}
		if err := deleteUsers(tx, userIDs); err != nil {
			return err
		}

		// Delete area
		return tx.Delete(&models.Area{}, id).Error
	})
}

// deleteUsers removes identities, first detaching them from needs they created.
func deleteUsers(tx *gorm.DB, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}

	if err := tx.Model(&models.Need{}).
		Where("created_by_id IN ?", userIDs).
		Update("created_by_id", nil).Error; err != nil {
		return err
	}

	return tx.Where("id IN ?", userIDs).Delete(&models.User{}).Error
}
