package dto

import (
	"time"

	"github.com/yukikurage/relief-management-api/internal/backup"
	"github.com/yukikurage/relief-management-api/internal/models"
)

// AreaAssignmentDTO represents an area assignment with its identity
type AreaAssignmentDTO struct {
	ID        uint64    `json:"id"`
	AreaID    uint64    `json:"area_id"`
	AreaName  string    `json:"area_name,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	User      UserDTO   `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

func ToAreaAssignmentDTO(a models.AreaAssignment) AreaAssignmentDTO {
	dto := AreaAssignmentDTO{
		ID:        a.ID,
		AreaID:    a.AreaID,
		Name:      a.Name,
		Email:     a.Email,
		IsActive:  a.IsActive,
		User:      ToUserDTO(a.User),
		CreatedAt: a.CreatedAt,
	}
	if a.Area.ID != 0 {
		dto.AreaName = a.Area.Name
	}
	return dto
}

// ContactListResponse represents a paginated contact inbox
type ContactListResponse struct {
	Messages   []models.ContactMessage `json:"messages"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"page_size"`
	TotalCount int64                   `json:"total_count"`
	TotalPages int                     `json:"total_pages"`
}

func ToContactListResponse(messages []models.ContactMessage, page, pageSize int, totalCount int64) ContactListResponse {
	if messages == nil {
		messages = []models.ContactMessage{}
	}
	return ContactListResponse{
		Messages:   messages,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}

// ImportResponse reports a finished database import.
type ImportResponse struct {
	Message        string              `json:"message"`
	SafetySnapshot backup.SnapshotInfo `json:"safety_snapshot"`
	Statements     int                 `json:"statements"`
	Tables         []string            `json:"tables"`
}

func ToImportResponse(r *backup.ImportResult) ImportResponse {
	return ImportResponse{
		Message:        "database imported",
		SafetySnapshot: r.SafetySnapshot,
		Statements:     r.Statements,
		Tables:         r.Tables,
	}
}
