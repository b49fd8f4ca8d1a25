package repository

import (
	"github.com/yukikurage/relief-management-api/internal/models"
)

// UserRepository defines the interface for identity data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// Update updates a user
	Update(user *models.User) error
}

// AreaRepository defines the interface for area data access
type AreaRepository interface {
	// Create creates a new area
	Create(area *models.Area) error

	// FindByID finds an area by ID
	FindByID(id uint64) (*models.Area, error)

	// List lists every area ordered by name
	List() ([]models.Area, error)

	// ListWithNeedCounts lists areas with the number of open needs in each
	ListWithNeedCounts() ([]AreaNeedCount, error)

	// Update updates an area
	Update(area *models.Area) error

	// Delete deletes an area, its needs, its assignments and their identities
	Delete(id uint64) error
}

// AreaNeedCount pairs an area with its open need count.
type AreaNeedCount struct {
	models.Area
	OpenNeeds int64 `json:"open_needs"`
}

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	// Create creates a new category
	Create(category *models.Category) error

	// FindByID finds a category by ID
	FindByID(id uint64) (*models.Category, error)

	// List lists every category ordered by name
	List() ([]models.Category, error)

	// Update updates a category
	Update(category *models.Category) error

	// Delete deletes a category with its products and their needs
	Delete(id uint64) error
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// Create creates a new product
	Create(product *models.Product) error

	// FindByID finds a product by ID with its category
	FindByID(id uint64) (*models.Product, error)

	// List lists products, optionally restricted to one category
	List(categoryID *uint64) ([]models.Product, error)

	// Update updates a product
	Update(product *models.Product) error

	// Delete deletes a product and its needs
	Delete(id uint64) error
}

// AreaAssignmentRepository defines the interface for area assignment data access
type AreaAssignmentRepository interface {
	// CreateWithUser creates an identity and its assignment in one transaction
	CreateWithUser(user *models.User, assignment *models.AreaAssignment) error

	// FindByID finds an assignment by ID with its user and area
	FindByID(id uint64) (*models.AreaAssignment, error)

	// FindActiveByUserID finds the active assignment of a user
	FindActiveByUserID(userID uint64) (*models.AreaAssignment, error)

	// List lists assignments with their user and area
	List() ([]models.AreaAssignment, error)

	// UpdateWithUser saves an assignment and its identity in one transaction
	UpdateWithUser(assignment *models.AreaAssignment, user *models.User) error

	// Delete deletes an assignment together with its identity
	Delete(id uint64) error
}

// NeedSort selects the listing order for needs.
type NeedSort string

const (
	NeedSortCreated  NeedSort = "created"
	NeedSortPriority NeedSort = "priority"
	NeedSortArea     NeedSort = "area"
	NeedSortCategory NeedSort = "category"
)

// Valid reports whether s is a known sort.
func (s NeedSort) Valid() bool {
	switch s {
	case NeedSortCreated, NeedSortPriority, NeedSortArea, NeedSortCategory:
		return true
	}
	return false
}

// NeedFilter holds filtering options for listing needs
type NeedFilter struct {
	AreaID     *uint64
	CategoryID *uint64
	ProductID  *uint64
	Priority   *models.NeedPriority
	Statuses   []models.NeedStatus
	Sort       NeedSort
	Page       int
	PageSize   int
	// Limit caps the result when no page is requested.
	Limit int
}

// NeedRepository defines the interface for need data access
type NeedRepository interface {
	// Create creates a new need
	Create(need *models.Need) error

	// FindByID finds a need by ID with its area, product and category
	FindByID(id uint64) (*models.Need, error)

	// List retrieves needs with filtering, ordering and pagination
	List(filter NeedFilter) ([]models.Need, int64, error)

	// Update updates a need
	Update(need *models.Need) error

	// Delete deletes a need
	Delete(id uint64) error
}

// ContactFilter holds filtering options for listing contact messages
type ContactFilter struct {
	Status   *models.ContactStatus
	Search   string
	Page     int
	PageSize int
}

// ContactRepository defines the interface for contact message data access
type ContactRepository interface {
	// Create stores a visitor message
	Create(message *models.ContactMessage) error

	// FindByID finds a message by ID
	FindByID(id uint64) (*models.ContactMessage, error)

	// List lists messages newest first
	List(filter ContactFilter) ([]models.ContactMessage, int64, error)

	// Update updates a message
	Update(message *models.ContactMessage) error

	// Delete deletes a message
	Delete(id uint64) error
}

// Stats holds the headline counts of the public statistics view.
type Stats struct {
	TotalAreas        int64 `json:"total_areas"`
	TotalNeeds        int64 `json:"total_needs"`
	OpenNeeds         int64 `json:"open_needs"`
	UrgentNeeds       int64 `json:"urgent_needs"`
	TotalProducts     int64 `json:"total_products"`
	ActiveAssignments int64 `json:"active_assignments"`
}

// StatsRepository defines aggregate queries
type StatsRepository interface {
	// Stats returns the headline counts
	Stats() (*Stats, error)

	// NeedCountsByStatus counts needs per status, optionally within one area
	NeedCountsByStatus(areaID *uint64) (map[models.NeedStatus]int64, error)
}
