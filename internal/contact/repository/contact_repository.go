package repository

import (
	"errors"
	"strings"
	"time"

	contactdomain "signdesk-backend/internal/contact/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactRepository defines the interface for contact data access
type ContactRepository interface {
	Create(contact *contactdomain.Contact) error
	FindByEmail(email string) (*contactdomain.Contact, error)
	FindByID(id string) (*contactdomain.Contact, error)
	ListActive() ([]*contactdomain.Contact, error)
	Update(contact *contactdomain.Contact) error
}

// contactRepository implements ContactRepository interface
type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new instance of contactRepository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{
		db: db,
	}
}

func (r *contactRepository) Create(contact *contactdomain.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	contact.Email = strings.ToLower(strings.TrimSpace(contact.Email))
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = time.Now()
	return r.db.Create(contact).Error
}

func (r *contactRepository) FindByEmail(email string) (*contactdomain.Contact, error) {
	var contact contactdomain.Contact
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepository) FindByID(id string) (*contactdomain.Contact, error) {
	var contact contactdomain.Contact
	err := r.db.Where("id = ?", id).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepository) ListActive() ([]*contactdomain.Contact, error) {
	var contacts []*contactdomain.Contact
	err := r.db.Where("active = ?", true).Order("name ASC").Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepository) Update(contact *contactdomain.Contact) error {
	contact.UpdatedAt = time.Now()
	return r.db.Save(contact).Error
}
