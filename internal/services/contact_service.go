package services

import (
	"github.com/yukikurage/relief-management-api/internal/access"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/models"
	"github.com/yukikurage/relief-management-api/internal/repository"
	"github.com/yukikurage/relief-management-api/internal/utils"
)

var ErrContactMessageNotFound = apierrors.New(apierrors.KindNotFound, "contact message not found")

// ContactService handles visitor messages.
type ContactService struct {
	contactRepo repository.ContactRepository
}

// NewContactService creates a new ContactService.
func NewContactService(contactRepo repository.ContactRepository) *ContactService {
	return &ContactService{contactRepo: contactRepo}
}

// SubmitContactInput is a visitor message as typed into the contact form.
type SubmitContactInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"required,max=300"`
	Message string `json:"message" validate:"required,max=5000"`
}

// ListContactsInput filters the message inbox.
type ListContactsInput struct {
	Status   *models.ContactStatus
	Search   string
	Page     int
	PageSize int
}

// Submit stores a visitor message. Markup is stripped before validation so
// a message made only of tags counts as empty.
func (s *ContactService) Submit(id *access.Identity, input SubmitContactInput) (*models.ContactMessage, error) {
	if err := authorize(id, access.ActionCreate, access.Global(access.ResourceContactMessage)); err != nil {
		return nil, err
	}

	input.Name = utils.SanitizeText(input.Name)
	input.Email = utils.SanitizeText(input.Email)
	input.Subject = utils.SanitizeText(input.Subject)
	input.Message = utils.SanitizeText(input.Message)
	if err := validate(input); err != nil {
		return nil, err
	}

	message := &models.ContactMessage{
		Name:    input.Name,
		Email:   input.Email,
		Subject: input.Subject,
		Message: input.Message,
		Status:  models.ContactStatusNew,
	}
	if err := s.contactRepo.Create(message); err != nil {
		return nil, apierrors.Store("failed to save contact message", err)
	}
	return message, nil
}

// List returns messages newest first.
func (s *ContactService) List(id *access.Identity, input ListContactsInput) ([]models.ContactMessage, int64, error) {
	if err := authorize(id, access.ActionRead, access.Global(access.ResourceContactMessage)); err != nil {
		return nil, 0, err
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, apierrors.Validation("status", "status must be one of: new read replied resolved")
	}

	messages, total, err := s.contactRepo.List(repository.ContactFilter{
		Status:   input.Status,
		Search:   input.Search,
		Page:     input.Page,
		PageSize: input.PageSize,
	})
	if err != nil {
		return nil, 0, apierrors.Store("failed to list contact messages", err)
	}
	return messages, total, nil
}

func (s *ContactService) Get(id *access.Identity, messageID uint64) (*models.ContactMessage, error) {
	if err := authorize(id, access.ActionRead, access.Global(access.ResourceContactMessage)); err != nil {
		return nil, err
	}
	message, err := s.contactRepo.FindByID(messageID)
	if err != nil {
		return nil, lookupError(err, ErrContactMessageNotFound, "find contact message")
	}
	return message, nil
}

// UpdateStatus sets the status of a message to any of new, read, replied and resolved.
func (s *ContactService) UpdateStatus(id *access.Identity, messageID uint64, status models.ContactStatus) (*models.ContactMessage, error) {
	if err := authorize(id, access.ActionSetStatus, access.Global(access.ResourceContactMessage)); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apierrors.Validation("status", "status must be one of: new read replied resolved")
	}

	message, err := s.contactRepo.FindByID(messageID)
	if err != nil {
		return nil, lookupError(err, ErrContactMessageNotFound, "find contact message")
	}
	message.Status = status
	if err := s.contactRepo.Update(message); err != nil {
		return nil, apierrors.Store("failed to update contact message", err)
	}
	return message, nil
}

func (s *ContactService) Delete(id *access.Identity, messageID uint64) error {
	if err := authorize(id, access.ActionDelete, access.Global(access.ResourceContactMessage)); err != nil {
		return err
	}
	if _, err := s.contactRepo.FindByID(messageID); err != nil {
		return lookupError(err, ErrContactMessageNotFound, "find contact message")
	}
	if err := s.contactRepo.Delete(messageID); err != nil {
		return apierrors.Store("failed to delete contact message", err)
	}
	return nil
}
