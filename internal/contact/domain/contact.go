package domain

import "time"

// Contact is a monitored sender whose emails enter the intake pipeline.
// Owned by the data store; the pipeline only reads it.
type Contact struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Company   string    `json:"company,omitempty"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
