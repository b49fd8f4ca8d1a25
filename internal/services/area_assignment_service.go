package services

import (
	"errors"
	"strings"

	"github.com/yukikurage/relief-management-api/internal/access"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/repository"
)

var ErrAreaAssignmentNotFound = apierrors.New(apierrors.KindNotFound, "area assignment not found")

// AreaAssignmentService manages area admin accounts. Each assignment owns
// exactly one identity; both are created and removed together.
type AreaAssignmentService struct {
	assignmentRepo repository.AreaAssignmentRepository
	areaRepo       repository.AreaRepository
	userRepo       repository.UserRepository
}

// NewAreaAssignmentService creates a new AreaAssignmentService.
func NewAreaAssignmentService(
	assignmentRepo repository.AreaAssignmentRepository,
	areaRepo repository.AreaRepository,
	userRepo repository.UserRepository,
) *AreaAssignmentService {
	return &AreaAssignmentService{
		assignmentRepo: assignmentRepo,
		areaRepo:       areaRepo,
		userRepo:       userRepo,
	}
}

// CreateAreaAssignmentInput holds the account and assignment fields.
type CreateAreaAssignmentInput struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required"`
	AreaID   uint64 `json:"area_id" validate:"required"`
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	IsActive *bool  `json:"is_active"`
}

// UpdateAreaAssignmentInput holds the editable fields. An empty Password keeps the current one.
type UpdateAreaAssignmentInput struct {
	AreaID   uint64 `json:"area_id" validate:"required"`
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	IsActive bool   `json:"is_active"`
	Password string `json:"password"`
}

func (s *AreaAssignmentService) List(id *access.Identity) ([]models.AreaAssignment, error) {
	if err := authorize(id, access.ActionRead, access.Global(access.ResourceAreaAssignment)); err != nil {
		return nil, err
	}
	assignments, err := s.assignmentRepo.List()
	if err != nil {
		return nil, apierrors.Store("failed to list area assignments", err)
	}
	return assignments, nil
}

func (s *AreaAssignmentService) Get(id *access.Identity, assignmentID uint64) (*models.AreaAssignment, error) {
	if err := authorize(id, access.ActionRead, access.Global(access.ResourceAreaAssignment)); err != nil {
		return nil, err
	}
	assignment, err := s.assignmentRepo.FindByID(assignmentID)
	if err != nil {
		return nil, lookupError(err, ErrAreaAssignmentNotFound, "find area assignment")
	}
	return assignment, nil
}

// Create creates an area admin identity bound to one area.
func (s *AreaAssignmentService) Create(id *access.Identity, input CreateAreaAssignmentInput) (*models.AreaAssignment, error) {
	if err := authorize(id, access.ActionCreate, access.InArea(access.ResourceAreaAssignment, input.AreaID)); err != nil {
		return nil, err
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := validate(input); err != nil {
		return nil, err
	}

	area, err := s.areaRepo.FindByID(input.AreaID)
	if err != nil {
		return nil, lookupError(err, ErrAreaNotFound, "find area")
	}

	if err := ensureUsernameFree(s.userRepo, input.Username); err != nil {
		return nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         models.RoleAreaAdmin,
	}
	assignment := &models.AreaAssignment{
		AreaID:   area.ID,
		Name:     input.Name,
		Email:    input.Email,
		IsActive: active,
	}

	if err := s.assignmentRepo.CreateWithUser(user, assignment); err != nil {
		switch {
		case errors.Is(err, repository.ErrCreateUser):
			return nil, apierrors.Store("failed to create area admin identity", err)
		case errors.Is(err, repository.ErrCreateAssignment):
			return nil, apierrors.Store("failed to create area assignment", err)
		default:
			return nil, apierrors.Store("failed to create area admin", err)
		}
	}

	assignment.User = *user
	assignment.Area = *area
	return assignment, nil
}

// Update changes the assignment and, when a password is given, resets the identity's password.
func (s *AreaAssignmentService) Update(id *access.Identity, assignmentID uint64, input UpdateAreaAssignmentInput) (*models.AreaAssignment, error) {
	if err := authorize(id, access.ActionUpdate, access.InArea(access.ResourceAreaAssignment, input.AreaID)); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := validate(input); err != nil {
		return nil, err
	}

	assignment, err := s.assignmentRepo.FindByID(assignmentID)
	if err != nil {
		return nil, lookupError(err, ErrAreaAssignmentNotFound, "find area assignment")
	}

	area, err := s.areaRepo.FindByID(input.AreaID)
	if err != nil {
		return nil, lookupError(err, ErrAreaNotFound, "find area")
	}

	var user *models.User
	if input.Password != "" {
		hash, err := hashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		user = &assignment.User
		user.PasswordHash = hash
		user.Email = input.Email
	}

	assignment.AreaID = area.ID
	assignment.Area = *area
	assignment.Name = input.Name
	assignment.Email = input.Email
	assignment.IsActive = input.IsActive

	if err := s.assignmentRepo.UpdateWithUser(assignment, user); err != nil {
		return nil, apierrors.Store("failed to update area assignment", err)
	}
	return assignment, nil
}

// Delete removes the assignment and its identity.
func (s *AreaAssignmentService) Delete(id *access.Identity, assignmentID uint64) error {
	if err := authorize(id, access.ActionDelete, access.Global(access.ResourceAreaAssignment)); err != nil {
		return err
	}
	if err := s.assignmentRepo.Delete(assignmentID); err != nil {
		return lookupError(err, ErrAreaAssignmentNotFound, "delete area assignment")
	}
	return nil
}
