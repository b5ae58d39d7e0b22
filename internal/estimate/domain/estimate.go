package domain

import "time"

// Status is the estimate lifecycle state.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusSent    Status = "sent"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
	StatusExpired Status = "expired"
)

type Estimate struct {
	ID                  string         `gorm:"type:uuid;primary_key" json:"id"`
	ContactID           string         `gorm:"type:uuid;not null;index" json:"contact_id"`
	MessageID           string         `json:"message_id"`
	ThreadID            string         `json:"thread_id"`
	Status              Status         `gorm:"not null;default:'draft'" json:"status"`
	TurnaroundDays      int            `json:"turnaround_days"`
	Total               float64        `json:"total"`
	QuickBooksID        string         `json:"quickbooks_id"`
	QuickBooksDocNumber string         `json:"quickbooks_doc_number"`
	Items               []EstimateItem `gorm:"foreignKey:EstimateID" json:"items"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type EstimateItem struct {
	ID          string  `gorm:"type:uuid;primary_key" json:"id"`
	EstimateID  string  `gorm:"type:uuid;not null;index" json:"estimate_id"`
	Description string  `gorm:"not null" json:"description"`
	SignTypeID  string  `json:"sign_type_id"`
	MaterialID  string  `json:"material_id"`
	WidthIn     float64 `json:"width_in"`
	HeightIn    float64 `json:"height_in"`
	AreaSqFt    float64 `json:"area_sq_ft"`
	Quantity    int     `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
	Confidence  string  `json:"confidence"`
	PriceSource string  `json:"price_source"`
	SampleSize  int     `json:"sample_size"`
	WinRate     float64 `json:"win_rate"`
}

// RecomputeTotals recalculates each line total and the estimate total.
// Call after any edit to a price or quantity.
func (e *Estimate) RecomputeTotals() {
	total := 0.0
	for i := range e.Items {
		e.Items[i].LineTotal = float64(e.Items[i].Quantity) * e.Items[i].UnitPrice
		total += e.Items[i].LineTotal
	}
	e.Total = total
}
