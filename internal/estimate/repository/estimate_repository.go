package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"signdesk-backend/internal/estimate/domain"
)

type EstimateRepository interface {
	Create(estimate *domain.Estimate) error
	FindByID(id string) (*domain.Estimate, error)
	FindWonByContact(contactID string) ([]domain.Estimate, error)
	Update(estimate *domain.Estimate) error
}

type gormEstimateRepository struct {
	db *gorm.DB
}

func NewGormEstimateRepository(db *gorm.DB) EstimateRepository {
	return &gormEstimateRepository{db: db}
}

func (r *gormEstimateRepository) Create(estimate *domain.Estimate) error {
	if estimate.ID == "" {
		estimate.ID = uuid.New().String()
	}
	for i := range estimate.Items {
		if estimate.Items[i].ID == "" {
			estimate.Items[i].ID = uuid.New().String()
		}
		estimate.Items[i].EstimateID = estimate.ID
	}
	estimate.CreatedAt = time.Now()
	estimate.UpdatedAt = time.Now()
	return r.db.Create(estimate).Error
}

func (r *gormEstimateRepository) FindByID(id string) (*domain.Estimate, error) {
	var estimate domain.Estimate
	err := r.db.Preload("Items").Where("id = ?", id).First(&estimate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &estimate, nil
}

func (r *gormEstimateRepository) FindWonByContact(contactID string) ([]domain.Estimate, error) {
	var estimates []domain.Estimate
	err := r.db.Preload("Items").
		Where("contact_id = ? AND status = ?", contactID, domain.StatusWon).
		Order("updated_at DESC").
		Find(&estimates).Error
	if err != nil {
		return nil, err
	}
	return estimates, nil
}

func (r *gormEstimateRepository) Update(estimate *domain.Estimate) error {
	estimate.UpdatedAt = time.Now()
	return r.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(estimate).Error
}
