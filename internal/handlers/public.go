package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/relief-management-api/internal/dto"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/middleware"
	"github.com/yukikurage/relief-management-api/internal/services"
)

// PublicHandler serves the views anyone may read and the contact form.
type PublicHandler struct {
	publicService  *services.PublicService
	needService    *services.NeedService
	contactService *services.ContactService
}

func NewPublicHandler(
	publicService *services.PublicService,
	needService *services.NeedService,
	contactService *services.ContactService,
) *PublicHandler {
	return &PublicHandler{
		publicService:  publicService,
		needService:    needService,
		contactService: contactService,
	}
}

func (h *PublicHandler) Stats(c *gin.Context) {
	stats, err := h.publicService.Stats(middleware.GetIdentity(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// OpenNeeds lists pending and in-progress needs for the home page.
func (h *PublicHandler) OpenNeeds(c *gin.Context) {
	input, ok := needListInput(c)
	if !ok {
		return
	}

	needs, err := h.needService.ListOpen(middleware.GetIdentity(c), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"needs": dto.ToNeedDTOs(needs)})
}

func (h *PublicHandler) Areas(c *gin.Context) {
	areas, err := h.publicService.Areas(middleware.GetIdentity(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"areas": areas})
}

func (h *PublicHandler) AreaDetail(c *gin.Context) {
	areaID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.publicService.AreaDetail(middleware.GetIdentity(c), areaID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"area":  detail.Area,
		"needs": dto.ToNeedDTOs(detail.Needs),
	})
}

func (h *PublicHandler) Categories(c *gin.Context) {
	categories, err := h.publicService.Categories(middleware.GetIdentity(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// SubmitContact stores a visitor message from the contact form.
func (h *PublicHandler) SubmitContact(c *gin.Context) {
	var input services.SubmitContactInput
	if !bindJSON(c, &input) {
		return
	}

	message, err := h.contactService.Submit(middleware.GetIdentity(c), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Thank you for your message. We will get back to you soon.",
		"id":      message.ID,
	})
}
