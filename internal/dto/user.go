package dto

import (
	"github.com/yukikurage/relief-management-api/internal/access"
	"github.com/yukikurage/relief-management-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email,omitempty"`
	Role     models.Role `json:"role"`
}

// MeDTO is the signed-in identity with its area scope.
type MeDTO struct {
	UserDTO
	AreaID       *uint64 `json:"area_id"`
	AssignmentID uint64  `json:"assignment_id,omitempty"`
	// Orphaned marks an area admin whose assignment is gone or inactive.
	Orphaned bool `json:"orphaned,omitempty"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
}

func ToMeDTO(user models.User, id *access.Identity) MeDTO {
	me := MeDTO{UserDTO: ToUserDTO(user)}
	if id != nil {
		me.AreaID = id.AreaID
		me.AssignmentID = id.AssignmentID
		me.Orphaned = id.Orphaned()
	}
	return me
}
