package services

import (
	"strings"

	"github.com/yukikurage/relief-management-api/internal/access"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/repository"
)

var ErrProductNotFound = apierrors.New(apierrors.KindNotFound, "product not found")

// ProductService provides business logic for products.
type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewProductService creates a new ProductService.
func NewProductService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// ProductInput holds the editable fields of a product.
type ProductInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
	Unit        string `json:"unit" validate:"required,max=50"`
	CategoryID  uint64 `json:"category_id" validate:"required"`
}

func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Unit = strings.TrimSpace(in.Unit)
}

// List returns products, optionally within one category.
func (s *ProductService) List(id *access.Identity, categoryID *uint64) ([]models.Product, error) {
	if err := authorize(id, access.ActionRead, access.Global(access.ResourceProduct)); err != nil {
		return nil, err
	}
	products, err := s.productRepo.List(categoryID)
	if err != nil {
		return nil, apierrors.Store("failed to list products", err)
	}
	return products, nil
}

func (s *ProductService) Get(id *access.Identity, productID uint64) (*models.Product, error) {
	if err := authorize(id, access.ActionRead, access.Global(access.ResourceProduct)); err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		return nil, lookupError(err, ErrProductNotFound, "find product")
	}
	return product, nil
}

func (s *ProductService) Create(id *access.Identity, input ProductInput) (*models.Product, error) {
	if err := authorize(id, access.ActionCreate, access.Global(access.ResourceProduct)); err != nil {
		return nil, err
	}
	input.normalize()
	if err := validate(input); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.FindByID(input.CategoryID)
	if err != nil {
		return nil, lookupError(err, ErrCategoryNotFound, "find category")
	}

	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Unit:        input.Unit,
		CategoryID:  category.ID,
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, apierrors.Store("failed to create product", err)
	}
	product.Category = *category
	return product, nil
}

func (s *ProductService) Update(id *access.Identity, productID uint64, input ProductInput) (*models.Product, error) {
	if err := authorize(id, access.ActionUpdate, access.Global(access.ResourceProduct)); err != nil {
		return nil, err
	}
	input.normalize()
	if err := validate(input); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		return nil, lookupError(err, ErrProductNotFound, "find product")
	}
	category, err := s.categoryRepo.FindByID(input.CategoryID)
	if err != nil {
		return nil, lookupError(err, ErrCategoryNotFound, "find category")
	}

	product.Name = input.Name
	product.Description = input.Description
	product.Unit = input.Unit
	product.CategoryID = category.ID
	product.Category = *category
	if err := s.productRepo.Update(product); err != nil {
		return nil, apierrors.Store("failed to update product", err)
	}
	return product, nil
}

// Delete removes a product and the needs that reference it.
func (s *ProductService) Delete(id *access.Identity, productID uint64) error {
	if err := authorize(id, access.ActionDelete, access.Global(access.ResourceProduct)); err != nil {
		return err
	}
	if _, err := s.productRepo.FindByID(productID); err != nil {
		return lookupError(err, ErrProductNotFound, "find product")
	}
	if err := s.productRepo.Delete(productID); err != nil {
		return apierrors.Store("failed to delete product", err)
	}
	return nil
}
