package models

import "time"

type NeedPriority string

const (
	PriorityLow    NeedPriority = "low"
	PriorityMedium NeedPriority = "medium"
	PriorityHigh   NeedPriority = "high"
	PriorityUrgent NeedPriority = "urgent"
)

// Rank orders priorities so that urgent > high > medium > low.
func (p NeedPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Valid reports whether p is a known priority.
func (p NeedPriority) Valid() bool {
	return p.Rank() > 0
}

type NeedStatus string

const (
	NeedStatusPending    NeedStatus = "pending"
	NeedStatusInProgress NeedStatus = "in_progress"
	NeedStatusFulfilled  NeedStatus = "fulfilled"
	NeedStatusCancelled  NeedStatus = "cancelled"
)

var needTransitions = map[NeedStatus][]NeedStatus{
	NeedStatusPending:    {NeedStatusInProgress, NeedStatusCancelled},
	NeedStatusInProgress: {NeedStatusFulfilled, NeedStatusCancelled},
}

// Valid reports whether s is a known status.
func (s NeedStatus) Valid() bool {
	switch s {
	case NeedStatusPending, NeedStatusInProgress, NeedStatusFulfilled, NeedStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s NeedStatus) IsTerminal() bool {
	return s == NeedStatusFulfilled || s == NeedStatusCancelled
}

// IsOpen reports whether the need is still shown on public listings.
func (s NeedStatus) IsOpen() bool {
	return s == NeedStatusPending || s == NeedStatusInProgress
}

// CanTransitionTo reports whether s may move to next.
func (s NeedStatus) CanTransitionTo(next NeedStatus) bool {
	for _, allowed := range needTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Need struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	AreaID      uint64       `gorm:"not null;index" json:"area_id"`
	ProductID   uint64       `gorm:"not null;index" json:"product_id"`
	Quantity    int          `gorm:"not null" json:"quantity"`
	Notes       string       `gorm:"type:text" json:"notes"`
	Priority    NeedPriority `gorm:"type:varchar(20);not null;index" json:"priority"`
	Status      NeedStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedByID *uint64      `gorm:"index" json:"created_by_id"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Relations
	Area      Area    `gorm:"foreignKey:AreaID;constraint:OnDelete:CASCADE" json:"area,omitempty"`
	Product   Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	CreatedBy *User   `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL" json:"created_by,omitempty"`
}
