package dto

import (
	"time"

	"github.com/yukikurage/relief-management-api/internal/models"
)

// NeedDTO represents a need in API responses
type NeedDTO struct {
	ID           uint64              `json:"id"`
	AreaID       uint64              `json:"area_id"`
	AreaName     string              `json:"area_name,omitempty"`
	ProductID    uint64              `json:"product_id"`
	ProductName  string              `json:"product_name,omitempty"`
	CategoryID   uint64              `json:"category_id,omitempty"`
	CategoryName string              `json:"category_name,omitempty"`
	Unit         string              `json:"unit,omitempty"`
	Quantity     int                 `json:"quantity"`
	Priority     models.NeedPriority `json:"priority"`
	Status       models.NeedStatus   `json:"status"`
	Notes        string              `json:"notes"`
	CreatedBy    *UserDTO            `json:"created_by,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NeedListResponse represents a paginated list of needs
type NeedListResponse struct {
	Needs      []NeedDTO `json:"needs"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// ToNeedDTO converts a Need model, using whatever relations were preloaded.
func ToNeedDTO(need models.Need) NeedDTO {
	dto := NeedDTO{
		ID:        need.ID,
		AreaID:    need.AreaID,
		ProductID: need.ProductID,
		Quantity:  need.Quantity,
		Priority:  need.Priority,
		Status:    need.Status,
		Notes:     need.Notes,
		CreatedAt: need.CreatedAt,
		UpdatedAt: need.UpdatedAt,
	}

	if need.Area.ID != 0 {
		dto.AreaName = need.Area.Name
	}
	if need.Product.ID != 0 {
		dto.ProductName = need.Product.Name
		dto.Unit = need.Product.Unit
		dto.CategoryID = need.Product.CategoryID
		if need.Product.Category.ID != 0 {
			dto.CategoryName = need.Product.Category.Name
		}
	}
	if need.CreatedBy != nil && need.CreatedBy.ID != 0 {
		creator := ToUserDTO(*need.CreatedBy)
		dto.CreatedBy = &creator
	}

	return dto
}

func ToNeedDTOs(needs []models.Need) []NeedDTO {
	items := make([]NeedDTO, len(needs))
	for i, need := range needs {
		items[i] = ToNeedDTO(need)
	}
	return items
}

// ToNeedListResponse converts a page of needs to NeedListResponse
func ToNeedListResponse(needs []models.Need, page, pageSize int, totalCount int64) NeedListResponse {
	return NeedListResponse{
		Needs:      ToNeedDTOs(needs),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}

func totalPages(totalCount int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		pages++
	}
	return pages
}
