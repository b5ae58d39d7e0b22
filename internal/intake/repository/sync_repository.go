package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"signdesk-backend/internal/intake/domain"
)

// SyncStateRepository persists the Gmail history cursor.
type SyncStateRepository interface {
	// GetHistoryID returns 0 when no cursor has been stored yet.
	GetHistoryID(emailAddress string) (uint64, error)
	SaveHistoryID(emailAddress string, historyID uint64) error
}

type gormSyncStateRepository struct {
	db *gorm.DB
}

func NewGormSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &gormSyncStateRepository{db: db}
}

func (r *gormSyncStateRepository) GetHistoryID(emailAddress string) (uint64, error) {
	var state domain.SyncState
	err := r.db.Where("email_address = ?", emailAddress).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return state.HistoryID, nil
}

func (r *gormSyncStateRepository) SaveHistoryID(emailAddress string, historyID uint64) error {
	state := domain.SyncState{
		EmailAddress: emailAddress,
		HistoryID:    historyID,
		UpdatedAt:    time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"history_id", "updated_at"}),
	}).Create(&state).Error
}
