package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/relief-management-api/internal/dto"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/middleware"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/services"
	"github.com/yukikurage/relief-management-api/internal/utils"
)

// ContactHandler serves the contact message inbox.
type ContactHandler struct {
	contactService *services.ContactService
}

func NewContactHandler(contactService *services.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// ListMessages returns messages newest first, filtered by status and q.
func (h *ContactHandler) ListMessages(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	input := services.ListContactsInput{
		Search:   c.Query("q"),
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if v := c.Query("status"); v != "" {
		status := models.ContactStatus(v)
		input.Status = &status
	}

	messages, total, err := h.contactService.List(middleware.GetIdentity(c), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToContactListResponse(messages, params.Page, params.Limit, total))
}

func (h *ContactHandler) GetMessage(c *gin.Context) {
	messageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	message, err := h.contactService.Get(middleware.GetIdentity(c), messageID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}

func (h *ContactHandler) UpdateMessageStatus(c *gin.Context) {
	type StatusRequest struct {
		Status models.ContactStatus `json:"status" binding:"required"`
	}

	messageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.contactService.UpdateStatus(middleware.GetIdentity(c), messageID, req.Status)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}

func (h *ContactHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.contactService.Delete(middleware.GetIdentity(c), messageID); err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}
