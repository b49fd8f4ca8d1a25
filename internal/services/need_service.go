package services

import (
	"fmt"

	"github.com/yukikurage/relief-management-api/internal/access"
	"github.com/yukikurage/relief-management-api/internal/constants"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/repository"
	"github.com/yukikurage/relief-management-api/internal/utils"
)

var (
	ErrNeedNotFound = apierrors.New(apierrors.KindNotFound, "need not found")
	ErrNeedClosed   = apierrors.New(apierrors.KindConflict, "need is fulfilled or cancelled and can no longer be edited")

	ErrNoAreaAssignment = apierrors.New(apierrors.KindNotFound, "identity has no area assignment")
)

// openStatuses are the statuses shown on public listings.
var openStatuses = []models.NeedStatus{models.NeedStatusPending, models.NeedStatusInProgress}

// NeedService provides business logic for relief needs.
type NeedService struct {
	needRepo    repository.NeedRepository
	areaRepo    repository.AreaRepository
	productRepo repository.ProductRepository
	statsRepo   repository.StatsRepository
}

// NewNeedService creates a new NeedService.
func NewNeedService(
	needRepo repository.NeedRepository,
	areaRepo repository.AreaRepository,
	productRepo repository.ProductRepository,
	statsRepo repository.StatsRepository,
) *NeedService {
	return &NeedService{
		needRepo:    needRepo,
		areaRepo:    areaRepo,
		productRepo: productRepo,
		statsRepo:   statsRepo,
	}
}

// CreateNeedInput represents parameters to create a need.
type CreateNeedInput struct {
	AreaID    uint64              `json:"area_id" validate:"required"`
	ProductID uint64              `json:"product_id" validate:"required"`
	Quantity  int                 `json:"quantity" validate:"gt=0"`
	Priority  models.NeedPriority `json:"priority" validate:"required,oneof=low medium high urgent"`
	Notes     string              `json:"notes" validate:"max=5000"`
}

// UpdateNeedInput holds optional field changes. Nil fields are left unchanged.
type UpdateNeedInput struct {
	AreaID    *uint64              `json:"area_id"`
	ProductID *uint64              `json:"product_id"`
	Quantity  *int                 `json:"quantity" validate:"omitnil,gt=0"`
	Priority  *models.NeedPriority `json:"priority" validate:"omitnil,oneof=low medium high urgent"`
	Notes     *string              `json:"notes" validate:"omitnil,max=5000"`
}

// ListNeedsInput holds the listing filter and sort.
type ListNeedsInput struct {
	AreaID     *uint64
	CategoryID *uint64
	Priority   *models.NeedPriority
	Status     *models.NeedStatus
	Sort       repository.NeedSort
	Page       int
	PageSize   int
}

// Create records a need. Area admins may only create needs in their own area.
func (s *NeedService) Create(id *access.Identity, input CreateNeedInput) (*models.Need, error) {
	if err := authorize(id, access.ActionCreate, access.InArea(access.ResourceNeed, input.AreaID)); err != nil {
		return nil, err
	}
	if err := validate(input); err != nil {
		return nil, err
	}

	area, err := s.areaRepo.FindByID(input.AreaID)
	if err != nil {
		return nil, lookupError(err, ErrAreaNotFound, "find area")
	}
	product, err := s.productRepo.FindByID(input.ProductID)
	if err != nil {
		return nil, lookupError(err, ErrProductNotFound, "find product")
	}

	creatorID := id.UserID
	need := &models.Need{
		AreaID:      area.ID,
		ProductID:   product.ID,
		Quantity:    input.Quantity,
		Priority:    input.Priority,
		Notes:       utils.SanitizeText(input.Notes),
		Status:      models.NeedStatusPending,
		CreatedByID: &creatorID,
	}
	if err := s.needRepo.Create(need); err != nil {
		return nil, apierrors.Store("failed to create need", err)
	}

	need.Area = *area
	need.Product = *product
	return need, nil
}

// Get returns one need if the identity may read it.
func (s *NeedService) Get(id *access.Identity, needID uint64) (*models.Need, error) {
	need, err := s.needRepo.FindByID(needID)
	if err != nil {
		return nil, lookupError(err, ErrNeedNotFound, "find need")
	}
	if err := authorize(id, access.ActionRead, access.InArea(access.ResourceNeed, need.AreaID)); err != nil {
		return nil, err
	}
	return need, nil
}

// Update edits a need that is not yet fulfilled or cancelled. Nothing is
// written unless every supplied field is valid and at least one differs.
func (s *NeedService) Update(id *access.Identity, needID uint64, input UpdateNeedInput) (*models.Need, error) {
	need, err := s.needRepo.FindByID(needID)
	if err != nil {
		return nil, lookupError(err, ErrNeedNotFound, "find need")
	}
	if err := authorize(id, access.ActionUpdate, access.InArea(access.ResourceNeed, need.AreaID)); err != nil {
		return nil, err
	}
	if input.AreaID != nil && *input.AreaID != need.AreaID {
		if err := authorize(id, access.ActionUpdate, access.InArea(access.ResourceNeed, *input.AreaID)); err != nil {
			return nil, err
		}
	}
	if need.Status.IsTerminal() {
		return nil, ErrNeedClosed
	}
	if err := validate(input); err != nil {
		return nil, err
	}

	changed := false
	if input.AreaID != nil && *input.AreaID != need.AreaID {
		area, err := s.areaRepo.FindByID(*input.AreaID)
		if err != nil {
			return nil, lookupError(err, ErrAreaNotFound, "find area")
		}
		need.AreaID = area.ID
		need.Area = *area
		changed = true
	}
	if input.ProductID != nil && *input.ProductID != need.ProductID {
		product, err := s.productRepo.FindByID(*input.ProductID)
		if err != nil {
			return nil, lookupError(err, ErrProductNotFound, "find product")
		}
		need.ProductID = product.ID
		need.Product = *product
		changed = true
	}
	if input.Quantity != nil && *input.Quantity != need.Quantity {
		need.Quantity = *input.Quantity
		changed = true
	}
	if input.Priority != nil && *input.Priority != need.Priority {
		need.Priority = *input.Priority
		changed = true
	}
	if input.Notes != nil {
		if notes := utils.SanitizeText(*input.Notes); notes != need.Notes {
			need.Notes = notes
			changed = true
		}
	}
	if !changed {
		return need, nil
	}

	if err := s.needRepo.Update(need); err != nil {
		return nil, apierrors.Store("failed to update need", err)
	}
	return need, nil
}

// SetStatus moves a need along its lifecycle.
func (s *NeedService) SetStatus(id *access.Identity, needID uint64, status models.NeedStatus) (*models.Need, error) {
	need, err := s.needRepo.FindByID(needID)
	if err != nil {
		return nil, lookupError(err, ErrNeedNotFound, "find need")
	}
	if err := authorize(id, access.ActionSetStatus, access.InArea(access.ResourceNeed, need.AreaID)); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apierrors.Validation("status", "status must be one of: pending in_progress fulfilled cancelled")
	}
	if !need.Status.CanTransitionTo(status) {
		return nil, apierrors.New(apierrors.KindConflict,
			fmt.Sprintf("cannot change need status from %s to %s", need.Status, status))
	}

	need.Status = status
	if err := s.needRepo.Update(need); err != nil {
		return nil, apierrors.Store("failed to update need status", err)
	}
	return need, nil
}

// Delete removes a need in any status.
func (s *NeedService) Delete(id *access.Identity, needID uint64) error {
	need, err := s.needRepo.FindByID(needID)
	if err != nil {
		return lookupError(err, ErrNeedNotFound, "find need")
	}
	if err := authorize(id, access.ActionDelete, access.InArea(access.ResourceNeed, need.AreaID)); err != nil {
		return err
	}
	if err := s.needRepo.Delete(needID); err != nil {
		return apierrors.Store("failed to delete need", err)
	}
	return nil
}

// List returns needs visible to the identity. Area admins only ever see their own area.
func (s *NeedService) List(id *access.Identity, input ListNeedsInput) ([]models.Need, int64, error) {
	if id != nil && id.Role == models.RoleAreaAdmin && id.AreaID != nil {
		input.AreaID = id.AreaID
	}

	res := access.Global(access.ResourceNeed)
	if input.AreaID != nil {
		res = access.InArea(access.ResourceNeed, *input.AreaID)
	}
	if err := authorize(id, access.ActionRead, res); err != nil {
		return nil, 0, err
	}

	filter, err := needFilter(input)
	if err != nil {
		return nil, 0, err
	}

	needs, total, err := s.needRepo.List(filter)
	if err != nil {
		return nil, 0, apierrors.Store("failed to list needs", err)
	}
	return needs, total, nil
}

// ListOpen returns the open needs shown on the public home view.
func (s *NeedService) ListOpen(id *access.Identity, input ListNeedsInput) ([]models.Need, error) {
	if err := authorize(id, access.ActionRead, access.Global(access.ResourcePublicView)); err != nil {
		return nil, err
	}

	input.Status = nil
	input.Page = 0
	input.PageSize = 0
	filter, err := needFilter(input)
	if err != nil {
		return nil, err
	}
	filter.Statuses = openStatuses
	filter.Limit = constants.PublicNeedsLimit

	needs, _, err := s.needRepo.List(filter)
	if err != nil {
		return nil, apierrors.Store("failed to list open needs", err)
	}
	return needs, nil
}

func needFilter(input ListNeedsInput) (repository.NeedFilter, error) {
	filter := repository.NeedFilter{
		AreaID:     input.AreaID,
		CategoryID: input.CategoryID,
		Priority:   input.Priority,
		Sort:       input.Sort,
		Page:       input.Page,
		PageSize:   input.PageSize,
	}
	if filter.Sort == "" {
		filter.Sort = repository.NeedSortCreated
	}

	fields := map[string]string{}
	if !filter.Sort.Valid() {
		fields["sort"] = "sort must be one of: created priority area category"
	}
	if input.Priority != nil && !input.Priority.Valid() {
		fields["priority"] = "priority must be one of: low medium high urgent"
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			fields["status"] = "status must be one of: pending in_progress fulfilled cancelled"
		}
		filter.Statuses = []models.NeedStatus{*input.Status}
	}
	if len(fields) > 0 {
		return filter, apierrors.ValidationFields(fields)
	}
	return filter, nil
}

// Dashboard is the overview shown to area staff.
type Dashboard struct {
	Area        models.Area                 `json:"area"`
	Counts      map[models.NeedStatus]int64 `json:"counts"`
	RecentNeeds []models.Need               `json:"recent_needs"`
}

// Dashboard summarizes the identity's own area.
func (s *NeedService) Dashboard(id *access.Identity) (*Dashboard, error) {
	if id == nil || id.AreaID == nil {
		if err := authorize(id, access.ActionRead, access.Global(access.ResourceNeed)); err != nil {
			return nil, err
		}
		return nil, ErrNoAreaAssignment
	}
	areaID := *id.AreaID
	if err := authorize(id, access.ActionRead, access.InArea(access.ResourceNeed, areaID)); err != nil {
		return nil, err
	}

	area, err := s.areaRepo.FindByID(areaID)
	if err != nil {
		return nil, lookupError(err, ErrAreaNotFound, "find area")
	}
	counts, err := s.statsRepo.NeedCountsByStatus(&areaID)
	if err != nil {
		return nil, apierrors.Store("failed to count needs", err)
	}
	needs, _, err := s.needRepo.List(repository.NeedFilter{
		AreaID: &areaID,
		Sort:   repository.NeedSortCreated,
		Limit:  constants.DashboardRecentNeeds,
	})
	if err != nil {
		return nil, apierrors.Store("failed to list needs", err)
	}

	return &Dashboard{Area: *area, Counts: counts, RecentNeeds: needs}, nil
}
