package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/middleware"
	"github.com/yukikurage/relief-management-api/internal/services"
)

type AreaHandler struct {
	areaService *services.AreaService
}

func NewAreaHandler(areaService *services.AreaService) *AreaHandler {
	return &AreaHandler{areaService: areaService}
}

func (h *AreaHandler) ListAreas(c *gin.Context) {
	areas, err := h.areaService.List(middleware.GetIdentity(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"areas": areas})
}

func (h *AreaHandler) GetArea(c *gin.Context) {
	areaID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	area, err := h.areaService.Get(middleware.GetIdentity(c), areaID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, area)
}

func (h *AreaHandler) CreateArea(c *gin.Context) {
	var input services.AreaInput
	if !bindJSON(c, &input) {
		return
	}
	area, err := h.areaService.Create(middleware.GetIdentity(c), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, area)
}

func (h *AreaHandler) UpdateArea(c *gin.Context) {
	areaID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input services.AreaInput
	if !bindJSON(c, &input) {
		return
	}
	area, err := h.areaService.Update(middleware.GetIdentity(c), areaID, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, area)
}

// DeleteArea removes the area with its needs and area admins.
func (h *AreaHandler) DeleteArea(c *gin.Context) {
	areaID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.areaService.Delete(middleware.GetIdentity(c), areaID); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Area deleted successfully"})
}
