package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/relief-management-api/internal/dto"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/middleware"
	"github.com/yukikurage/relief-management-api/internal/services"
)

// AreaAssignmentHandler manages area admins and their accounts.
type AreaAssignmentHandler struct {
	assignmentService *services.AreaAssignmentService
}

func NewAreaAssignmentHandler(assignmentService *services.AreaAssignmentService) *AreaAssignmentHandler {
	return &AreaAssignmentHandler{assignmentService: assignmentService}
}

func (h *AreaAssignmentHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.assignmentService.List(middleware.GetIdentity(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	items := make([]dto.AreaAssignmentDTO, len(assignments))
	for i, a := range assignments {
		items[i] = dto.ToAreaAssignmentDTO(a)
	}
	c.JSON(http.StatusOK, gin.H{"area_assignments": items})
}

func (h *AreaAssignmentHandler) GetAssignment(c *gin.Context) {
	assignmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	assignment, err := h.assignmentService.Get(middleware.GetIdentity(c), assignmentID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAreaAssignmentDTO(*assignment))
}

// CreateAssignment creates the area admin account and its assignment together.
func (h *AreaAssignmentHandler) CreateAssignment(c *gin.Context) {
	var input services.CreateAreaAssignmentInput
	if !bindJSON(c, &input) {
		return
	}
	assignment, err := h.assignmentService.Create(middleware.GetIdentity(c), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToAreaAssignmentDTO(*assignment))
}

func (h *AreaAssignmentHandler) UpdateAssignment(c *gin.Context) {
	assignmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input services.UpdateAreaAssignmentInput
	if !bindJSON(c, &input) {
		return
	}
	assignment, err := h.assignmentService.Update(middleware.GetIdentity(c), assignmentID, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAreaAssignmentDTO(*assignment))
}

func (h *AreaAssignmentHandler) DeleteAssignment(c *gin.Context) {
	assignmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.assignmentService.Delete(middleware.GetIdentity(c), assignmentID); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Area assignment deleted successfully"})
}
