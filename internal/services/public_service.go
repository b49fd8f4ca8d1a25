package services

import (
	"github.com/yukikurage/relief-management-api/internal/access"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/repository"
)

// PublicService serves the read-only views open to every visitor.
type PublicService struct {
	statsRepo    repository.StatsRepository
	areaRepo     repository.AreaRepository
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	needRepo     repository.NeedRepository
}

// NewPublicService creates a new PublicService.
func NewPublicService(
	statsRepo repository.StatsRepository,
	areaRepo repository.AreaRepository,
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	needRepo repository.NeedRepository,
) *PublicService {
	return &PublicService{
		statsRepo:    statsRepo,
		areaRepo:     areaRepo,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		needRepo:     needRepo,
	}
}

// CategoryWithProducts is a category and its products.
type CategoryWithProducts struct {
	models.Category
	Products []models.Product `json:"products"`
}

// AreaDetail is an area with its open needs.
type AreaDetail struct {
	Area  models.Area   `json:"area"`
	Needs []models.Need `json:"needs"`
}

func (s *PublicService) authorize(id *access.Identity) error {
	return authorize(id, access.ActionRead, access.Global(access.ResourcePublicView))
}

// Stats returns the headline counts.
func (s *PublicService) Stats(id *access.Identity) (*repository.Stats, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}
	stats, err := s.statsRepo.Stats()
	if err != nil {
		return nil, apierrors.Store("failed to load statistics", err)
	}
	return stats, nil
}

// Areas lists areas with their open need counts.
func (s *PublicService) Areas(id *access.Identity) ([]repository.AreaNeedCount, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}
	areas, err := s.areaRepo.ListWithNeedCounts()
	if err != nil {
		return nil, apierrors.Store("failed to list areas", err)
	}
	return areas, nil
}

// AreaDetail returns an area and its open needs, most urgent first.
func (s *PublicService) AreaDetail(id *access.Identity, areaID uint64) (*AreaDetail, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}
	area, err := s.areaRepo.FindByID(areaID)
	if err != nil {
		return nil, lookupError(err, ErrAreaNotFound, "find area")
	}
	needs, _, err := s.needRepo.List(repository.NeedFilter{
		AreaID:   &areaID,
		Statuses: openStatuses,
		Sort:     repository.NeedSortPriority,
	})
	if err != nil {
		return nil, apierrors.Store("failed to list needs", err)
	}
	return &AreaDetail{Area: *area, Needs: needs}, nil
}

// Categories lists categories with their products.
func (s *PublicService) Categories(id *access.Identity) ([]CategoryWithProducts, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.List()
	if err != nil {
		return nil, apierrors.Store("failed to list categories", err)
	}
	products, err := s.productRepo.List(nil)
	if err != nil {
		return nil, apierrors.Store("failed to list products", err)
	}

	byCategory := make(map[uint64][]models.Product, len(categories))
	for _, p := range products {
		byCategory[p.CategoryID] = append(byCategory[p.CategoryID], p)
	}

	result := make([]CategoryWithProducts, len(categories))
	for i, c := range categories {
		items := byCategory[c.ID]
		if items == nil {
			items = []models.Product{}
		}
		result[i] = CategoryWithProducts{Category: c, Products: items}
	}
	return result, nil
}
