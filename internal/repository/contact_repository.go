package repository

import (
	"strings"

	"github.com/yukikurage/relief-management-api/internal/database"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/utils"
	"gorm.io/gorm"
)

// GormContactRepository is a GORM implementation of ContactRepository
type GormContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new ContactRepository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &GormContactRepository{db: db}
}

// Create stores a visitor message
func (r *GormContactRepository) Create(message *models.ContactMessage) error {
	return r.db.Create(message).Error
}

// FindByID finds a message by ID
func (r *GormContactRepository) FindByID(id uint64) (*models.ContactMessage, error) {
	var message models.ContactMessage
	if err := r.db.First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// List lists messages newest first, filtered by status and free-text search
func (r *GormContactRepository) List(filter ContactFilter) ([]models.ContactMessage, int64, error) {
	var messages []models.ContactMessage

	query := r.db.Model(&models.ContactMessage{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(subject) LIKE ? OR LOWER(message) LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("created_at DESC").Order("id DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	if err := listQuery.Find(&messages).Error; err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// Update updates a message
func (r *GormContactRepository) Update(message *models.ContactMessage) error {
	return r.db.Save(message).Error
}

// Delete deletes a message
func (r *GormContactRepository) Delete(id uint64) error {
	return r.db.Delete(&models.ContactMessage{}, id).Error
}
