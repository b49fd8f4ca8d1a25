package services

import (
	"strings"

	"github.com/yukikurage/relief-management-api/internal/access"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/repository"
)

var ErrCategoryNotFound = apierrors.New(apierrors.KindNotFound, "category not found")

// CategoryService provides business logic for product categories.
type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

// CategoryInput holds the editable fields of a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

func (s *CategoryService) List(id *access.Identity) ([]models.Category, error) {
	if err := authorize(id, access.ActionRead, access.Global(access.ResourceCategory)); err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.List()
	if err != nil {
		return nil, apierrors.Store("failed to list categories", err)
	}
	return categories, nil
}

func (s *CategoryService) Get(id *access.Identity, categoryID uint64) (*models.Category, error) {
	if err := authorize(id, access.ActionRead, access.Global(access.ResourceCategory)); err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.FindByID(categoryID)
	if err != nil {
		return nil, lookupError(err, ErrCategoryNotFound, "find category")
	}
	return category, nil
}

func (s *CategoryService) Create(id *access.Identity, input CategoryInput) (*models.Category, error) {
	if err := authorize(id, access.ActionCreate, access.Global(access.ResourceCategory)); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validate(input); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.categoryRepo.Create(category); err != nil {
		return nil, apierrors.Store("failed to create category", err)
	}
	return category, nil
}

func (s *CategoryService) Update(id *access.Identity, categoryID uint64, input CategoryInput) (*models.Category, error) {
	if err := authorize(id, access.ActionUpdate, access.Global(access.ResourceCategory)); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validate(input); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.FindByID(categoryID)
	if err != nil {
		return nil, lookupError(err, ErrCategoryNotFound, "find category")
	}

	category.Name = input.Name
	category.Description = strings.TrimSpace(input.Description)
	if err := s.categoryRepo.Update(category); err != nil {
		return nil, apierrors.Store("failed to update category", err)
	}
	return category, nil
}

// Delete removes a category together with its products and their needs.
func (s *CategoryService) Delete(id *access.Identity, categoryID uint64) error {
	if err := authorize(id, access.ActionDelete, access.Global(access.ResourceCategory)); err != nil {
		return err
	}
	if _, err := s.categoryRepo.FindByID(categoryID); err != nil {
		return lookupError(err, ErrCategoryNotFound, "find category")
	}
	if err := s.categoryRepo.Delete(categoryID); err != nil {
		return apierrors.Store("failed to delete category", err)
	}
	return nil
}
