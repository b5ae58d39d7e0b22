package domain

import "time"

// SignType is a catalog entry for a fabricated sign category.
type SignType struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"not null"`
	BaseRatePerSqFt float64   `json:"base_rate_per_sqft"` // 0 = no catalog rate
	MinPrice        float64   `json:"min_price"`          // 0 = no minimum
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Material is a catalog entry applying a multiplier to suggested prices.
type Material struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"not null"`
	PriceMultiplier float64   `json:"price_multiplier" gorm:"default:1"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Outcome is what eventually happened to a priced line item.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeWon     Outcome = "won"
	OutcomeLost    Outcome = "lost"
)

// HistoryEntry records a priced line item and its eventual outcome. Append
// only; the single in-place mutation is setting Outcome once known.
type HistoryEntry struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	SignTypeID     string    `json:"sign_type_id" gorm:"index"`
	MaterialID     string    `json:"material_id,omitempty" gorm:"index"`
	EstimateItemID string    `json:"estimate_item_id,omitempty" gorm:"index"`
	Description    string    `json:"description"`
	AreaSqFt       float64   `json:"area_sqft"`
	UnitPrice      float64   `json:"unit_price"`
	Outcome        Outcome   `json:"outcome" gorm:"default:pending"`
	CreatedAt      time.Time `json:"created_at"`
}
