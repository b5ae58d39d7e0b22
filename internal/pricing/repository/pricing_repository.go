package repository

import (
	"errors"
	"time"

	pricingdomain "signdesk-backend/internal/pricing/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository gives read access to the sign type and material catalogs.
type CatalogRepository interface {
	ListSignTypes() ([]*pricingdomain.SignType, error)
	ListMaterials() ([]*pricingdomain.Material, error)
}

// HistoryRepository stores pricing outcomes for the suggestion engine.
type HistoryRepository interface {
	Create(entry *pricingdomain.HistoryEntry) error
	// FindDecided returns non-pending entries for a sign type, optionally
	// narrowed to a material.
	FindDecided(signTypeID, materialID string) ([]*pricingdomain.HistoryEntry, error)
	// SetOutcomeByEstimateItemIDs stamps the final outcome on the entries
	// created for the given estimate items.
	SetOutcomeByEstimateItemIDs(itemIDs []string, outcome pricingdomain.Outcome) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListSignTypes() ([]*pricingdomain.SignType, error) {
	var types []*pricingdomain.SignType
	if err := r.db.Order("name ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *catalogRepository) ListMaterials() ([]*pricingdomain.Material, error) {
	var materials []*pricingdomain.Material
	if err := r.db.Order("name ASC").Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(entry *pricingdomain.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Outcome == "" {
		entry.Outcome = pricingdomain.OutcomePending
	}
	entry.CreatedAt = time.Now()
	return r.db.Create(entry).Error
}

func (r *historyRepository) FindDecided(signTypeID, materialID string) ([]*pricingdomain.HistoryEntry, error) {
	q := r.db.Where("sign_type_id = ? AND outcome <> ?", signTypeID, pricingdomain.OutcomePending)
	if materialID != "" {
		q = q.Where("material_id = ?", materialID)
	}

	var entries []*pricingdomain.HistoryEntry
	err := q.Find(&entries).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

func (r *historyRepository) SetOutcomeByEstimateItemIDs(itemIDs []string, outcome pricingdomain.Outcome) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.Model(&pricingdomain.HistoryEntry{}).
		Where("estimate_item_id IN ?", itemIDs).
		Update("outcome", outcome).Error
}
