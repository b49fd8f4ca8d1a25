package repository

import (
	"errors"
	"fmt"

	"github.com/yukikurage/relief-management-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAreaAssignmentRepository is a GORM implementation of AreaAssignmentRepository
type GormAreaAssignmentRepository struct {
	db *gorm.DB
}

var (
	// ErrCreateUser is returned when creating the identity fails inside the assignment transaction.
	ErrCreateUser = errors.New("area assignment repository: create user failed")
	// ErrCreateAssignment is returned when creating the assignment fails inside the transaction.
	ErrCreateAssignment = errors.New("area assignment repository: create assignment failed")
)

// NewAreaAssignmentRepository creates a new AreaAssignmentRepository
func NewAreaAssignmentRepository(db *gorm.DB) AreaAssignmentRepository {
	return &GormAreaAssignmentRepository{db: db}
}

// CreateWithUser creates the identity and its assignment atomically.
func (r *GormAreaAssignmentRepository) CreateWithUser(user *models.User, assignment *models.AreaAssignment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateUser, err)
		}

		assignment.UserID = user.ID
		if err := tx.Omit(clause.Associations).Create(assignment).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateAssignment, err)
		}

		return nil
	})
}

// FindByID finds an assignment by ID with its user and area
func (r *GormAreaAssignmentRepository) FindByID(id uint64) (*models.AreaAssignment, error) {
	var assignment models.AreaAssignment
	if err := r.db.Preload("User").Preload("Area").First(&assignment, id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindActiveByUserID finds the active assignment of a user
func (r *GormAreaAssignmentRepository) FindActiveByUserID(userID uint64) (*models.AreaAssignment, error) {
	var assignment models.AreaAssignment
	if err := r.db.Preload("Area").
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// List lists assignments with their user and area, ordered by area name
func (r *GormAreaAssignmentRepository) List() ([]models.AreaAssignment, error) {
	var assignments []models.AreaAssignment
	if err := r.db.Preload("User").Preload("Area").
		Joins("JOIN areas ON areas.id = area_assignments.area_id").
		Order("areas.name ASC, area_assignments.id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpdateWithUser saves an assignment and its identity in one transaction
func (r *GormAreaAssignmentRepository) UpdateWithUser(assignment *models.AreaAssignment, user *models.User) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(assignment).Error; err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		return tx.Save(user).Error
	})
}

// Delete deletes an assignment and its paired identity in a transaction
func (r *GormAreaAssignmentRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var assignment models.AreaAssignment
		if err := tx.First(&assignment, id).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.AreaAssignment{}, id).Error; err != nil {
			return err
		}

		return deleteUsers(tx, []uint64{assignment.UserID})
	})
}
