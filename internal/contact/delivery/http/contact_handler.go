package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signdesk-backend/internal/contact/domain"
	"signdesk-backend/internal/contact/repository"
)

// ContactHandler exposes the sender allow-list over a small JSON API.
type ContactHandler struct {
	contacts repository.ContactRepository
}

func NewContactHandler(contacts repository.ContactRepository) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// List returns all active contacts
// GET /api/contacts
func (h *ContactHandler) List(c *gin.Context) {
	contacts, err := h.contacts.ListActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

type createContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Company string `json:"company"`
}

// Create adds a sender to the allow-list
// POST /api/contacts
func (h *ContactHandler) Create(c *gin.Context) {
	var req createContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.contacts.FindByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "contact with this email already exists"})
		return
	}

	contact := &domain.Contact{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Active:  true,
	}
	if err := h.contacts.Create(contact); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, contact)
}

type updateContactRequest struct {
	Name    *string `json:"name"`
	Company *string `json:"company"`
	Active  *bool   `json:"active"`
}

// Update edits or deactivates a contact
// PUT /api/contacts/:id
func (h *ContactHandler) Update(c *gin.Context) {
	contact, err := h.contacts.FindByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if contact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
		return
	}

	var req updateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		contact.Name = *req.Name
	}
	if req.Company != nil {
		contact.Company = *req.Company
	}
	if req.Active != nil {
		contact.Active = *req.Active
	}
	if err := h.contacts.Update(contact); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, contact)
}
