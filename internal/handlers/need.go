package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/relief-management-api/internal/dto"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/export"
	"github.com/yukikurage/relief-management-api/internal/middleware"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/repository"
	"github.com/yukikurage/relief-management-api/internal/services"
	"github.com/yukikurage/relief-management-api/internal/utils"
)

type NeedHandler struct {
	needService *services.NeedService
	now         func() time.Time
	log         *logrus.Logger
}

func NewNeedHandler(needService *services.NeedService, log *logrus.Logger) *NeedHandler {
	return &NeedHandler{
		needService: needService,
		now:         time.Now,
		log:         log,
	}
}

// needListInput reads the shared need filters: area_id, category_id,
// priority, status and sort.
func needListInput(c *gin.Context) (services.ListNeedsInput, bool) {
	var input services.ListNeedsInput

	areaID, ok := queryUint(c, "area_id")
	if !ok {
		return input, false
	}
	categoryID, ok := queryUint(c, "category_id")
	if !ok {
		return input, false
	}
	input.AreaID = areaID
	input.CategoryID = categoryID
	input.Sort = repository.NeedSort(c.Query("sort"))

	if v := c.Query("priority"); v != "" {
		priority := models.NeedPriority(v)
		input.Priority = &priority
	}
	if v := c.Query("status"); v != "" {
		status := models.NeedStatus(v)
		input.Status = &status
	}
	return input, true
}

// Dashboard returns the caller's area with its status counts and latest needs.
func (h *NeedHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.needService.Dashboard(middleware.GetIdentity(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"area":         dashboard.Area,
		"counts":       dashboard.Counts,
		"recent_needs": dto.ToNeedDTOs(dashboard.RecentNeeds),
	})
}

// ListNeeds returns a page of needs. Area admins only see their own area.
func (h *NeedHandler) ListNeeds(c *gin.Context) {
	input, ok := needListInput(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)
	input.Page = params.Page
	input.PageSize = params.Limit

	needs, total, err := h.needService.List(middleware.GetIdentity(c), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToNeedListResponse(needs, params.Page, params.Limit, total))
}

func (h *NeedHandler) GetNeed(c *gin.Context) {
	needID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	need, err := h.needService.Get(middleware.GetIdentity(c), needID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToNeedDTO(*need))
}

func (h *NeedHandler) CreateNeed(c *gin.Context) {
	var input services.CreateNeedInput
	if !bindJSON(c, &input) {
		return
	}

	need, err := h.needService.Create(middleware.GetIdentity(c), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToNeedDTO(*need))
}

// UpdateNeed applies a partial update. Omitted fields keep their value.
func (h *NeedHandler) UpdateNeed(c *gin.Context) {
	needID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input services.UpdateNeedInput
	if !bindJSON(c, &input) {
		return
	}

	need, err := h.needService.Update(middleware.GetIdentity(c), needID, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToNeedDTO(*need))
}

func (h *NeedHandler) SetNeedStatus(c *gin.Context) {
	type StatusRequest struct {
		Status models.NeedStatus `json:"status" binding:"required"`
	}

	needID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}

	need, err := h.needService.SetStatus(middleware.GetIdentity(c), needID, req.Status)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToNeedDTO(*need))
}

func (h *NeedHandler) DeleteNeed(c *gin.Context) {
	needID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.needService.Delete(middleware.GetIdentity(c), needID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Need deleted successfully"})
}

// ExportNeeds downloads every need matching the filters as CSV or XLSX.
func (h *NeedHandler) ExportNeeds(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		apierrors.Respond(c, apierrors.Validation("format", "format must be one of: csv xlsx pdf"))
		return
	}
	input, ok := needListInput(c)
	if !ok {
		return
	}

	needs, _, err := h.needService.List(middleware.GetIdentity(c), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteNeeds(&buf, format, needs); err != nil {
		h.log.WithError(err).WithField("format", format).Error("need export failed")
		apierrors.InternalError(c, "Failed to export needs")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+format.Filename(h.now())+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
