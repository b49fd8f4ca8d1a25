package repository

import (
	"github.com/yukikurage/relief-management-api/internal/database"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// priorityRank orders needs urgent > high > medium > low in SQL.
const priorityRank = "CASE needs.priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END"

// GormNeedRepository is a GORM implementation of NeedRepository
type GormNeedRepository struct {
	db *gorm.DB
}

// NewNeedRepository creates a new NeedRepository
func NewNeedRepository(db *gorm.DB) NeedRepository {
	return &GormNeedRepository{db: db}
}

// Create creates a new need
func (r *GormNeedRepository) Create(need *models.Need) error {
	return r.db.Omit(clause.Associations).Create(need).Error
}

// FindByID finds a need by ID with its area, product and category
func (r *GormNeedRepository) FindByID(id uint64) (*models.Need, error) {
	var need models.Need
	if err := r.db.
		Preload("Area").
		Preload("Product.Category").
		First(&need, id).Error; err != nil {
		return nil, err
	}
	return &need, nil
}

// List retrieves needs with filtering, ordering and pagination
func (r *GormNeedRepository) List(filter NeedFilter) ([]models.Need, int64, error) {
	var needs []models.Need

	query := r.db.Model(&models.Need{})

	// Joins needed by filters or sort keys
	if filter.CategoryID != nil || filter.Sort == NeedSortCategory {
		query = query.Joins("JOIN products ON products.id = needs.product_id")
	}
	switch filter.Sort {
	case NeedSortCategory:
		query = query.Joins("JOIN categories ON categories.id = products.category_id")
	case NeedSortArea:
		query = query.Joins("JOIN areas ON areas.id = needs.area_id")
	}

	// Apply filters
	if filter.AreaID != nil {
		query = query.Where("needs.area_id = ?", *filter.AreaID)
	}
	if filter.ProductID != nil {
		query = query.Where("needs.product_id = ?", *filter.ProductID)
	}
	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.Priority != nil {
		query = query.Where("needs.priority = ?", *filter.Priority)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("needs.status IN ?", filter.Statuses)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Select("needs.*")
	switch filter.Sort {
	case NeedSortPriority:
		listQuery = listQuery.Order(priorityRank + " DESC")
	case NeedSortArea:
		listQuery = listQuery.Order("areas.name ASC")
	case NeedSortCategory:
		listQuery = listQuery.Order("categories.name ASC")
	}
	listQuery = listQuery.Order("needs.created_at DESC").Order("needs.id DESC")

	switch {
	case filter.Page > 0 && filter.PageSize > 0:
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	case filter.Limit > 0:
		listQuery = listQuery.Limit(filter.Limit)
	}

	if err := listQuery.
		Preload("Area").
		Preload("Product.Category").
		Preload("CreatedBy").
		Find(&needs).Error; err != nil {
		return nil, 0, err
	}

	return needs, total, nil
}

// Update updates a need
func (r *GormNeedRepository) Update(need *models.Need) error {
	return r.db.Omit(clause.Associations).Save(need).Error
}

// Delete deletes a need
func (r *GormNeedRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Need{}, id).Error
}
