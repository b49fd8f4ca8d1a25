package models

import "time"

// AreaAssignment binds one area-admin identity to exactly one area.
// The identity and the assignment are created and deleted together.
type AreaAssignment struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex" json:"user_id"`
	AreaID    uint64    `gorm:"not null;index" json:"area_id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	Email     string    `gorm:"type:varchar(254);not null" json:"email"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Area Area `gorm:"foreignKey:AreaID;constraint:OnDelete:CASCADE" json:"area,omitempty"`
}
