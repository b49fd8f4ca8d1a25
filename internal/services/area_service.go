package services

import (
	"strings"

	"github.com/yukikurage/relief-management-api/internal/access"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/repository"
)

var ErrAreaNotFound = apierrors.New(apierrors.KindNotFound, "area not found")

// AreaService provides business logic for area management.
type AreaService struct {
	areaRepo repository.AreaRepository
}

// NewAreaService creates a new AreaService.
func NewAreaService(areaRepo repository.AreaRepository) *AreaService {
	return &AreaService{areaRepo: areaRepo}
}

// AreaInput holds the editable fields of an area.
type AreaInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
	Address     string `json:"address" validate:"required,max=500"`
	PostalCode  string `json:"postal_code" validate:"required,max=10"`
}

func (in *AreaInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
}

// List returns every area.
func (s *AreaService) List(id *access.Identity) ([]models.Area, error) {
	if err := authorize(id, access.ActionRead, access.Global(access.ResourceArea)); err != nil {
		return nil, err
	}
	areas, err := s.areaRepo.List()
	if err != nil {
		return nil, apierrors.Store("failed to list areas", err)
	}
	return areas, nil
}

// Get returns one area.
func (s *AreaService) Get(id *access.Identity, areaID uint64) (*models.Area, error) {
	if err := authorize(id, access.ActionRead, access.InArea(access.ResourceArea, areaID)); err != nil {
		return nil, err
	}
	area, err := s.areaRepo.FindByID(areaID)
	if err != nil {
		return nil, lookupError(err, ErrAreaNotFound, "find area")
	}
	return area, nil
}

// Create creates a new area.
func (s *AreaService) Create(id *access.Identity, input AreaInput) (*models.Area, error) {
	if err := authorize(id, access.ActionCreate, access.Global(access.ResourceArea)); err != nil {
		return nil, err
	}
	input.normalize()
	if err := validate(input); err != nil {
		return nil, err
	}

	area := &models.Area{
		Name:        input.Name,
		Description: input.Description,
		Address:     input.Address,
		PostalCode:  input.PostalCode,
	}
	if err := s.areaRepo.Create(area); err != nil {
		return nil, apierrors.Store("failed to create area", err)
	}
	return area, nil
}

// Update replaces the editable fields of an area.
func (s *AreaService) Update(id *access.Identity, areaID uint64, input AreaInput) (*models.Area, error) {
	if err := authorize(id, access.ActionUpdate, access.InArea(access.ResourceArea, areaID)); err != nil {
		return nil, err
	}
	input.normalize()
	if err := validate(input); err != nil {
		return nil, err
	}

	area, err := s.areaRepo.FindByID(areaID)
	if err != nil {
		return nil, lookupError(err, ErrAreaNotFound, "find area")
	}

	area.Name = input.Name
	area.Description = input.Description
	area.Address = input.Address
	area.PostalCode = input.PostalCode
	if err := s.areaRepo.Update(area); err != nil {
		return nil, apierrors.Store("failed to update area", err)
	}
	return area, nil
}

// Delete removes an area with its needs, assignments and their identities.
func (s *AreaService) Delete(id *access.Identity, areaID uint64) error {
	if err := authorize(id, access.ActionDelete, access.InArea(access.ResourceArea, areaID)); err != nil {
		return err
	}
	if _, err := s.areaRepo.FindByID(areaID); err != nil {
		return lookupError(err, ErrAreaNotFound, "find area")
	}
	if err := s.areaRepo.Delete(areaID); err != nil {
		return apierrors.Store("failed to delete area", err)
	}
	return nil
}
