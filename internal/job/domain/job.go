package domain

import "time"

// Stage is the fabrication lifecycle position of a Job. The order below is
// the canonical progression; a stage never changes except through the
// explicit stage-set operation, so arithmetic stepping cannot skip or
// regress states by accident.
type Stage string

const (
	StagePending      Stage = "pending"
	StageInProduction Stage = "in_production"
	StageReady        Stage = "ready"
	StageInstalled    Stage = "installed"
	StageCompleted    Stage = "completed"
	StageInvoiced     Stage = "invoiced"
	StagePaid         Stage = "paid"
)

// Stages lists all stages in lifecycle order.
var Stages = []Stage{
	StagePending,
	StageInProduction,
	StageReady,
	StageInstalled,
	StageCompleted,
	StageInvoiced,
	StagePaid,
}

// ParseStage validates a stage name from operator input.
func ParseStage(s string) (Stage, bool) {
	for _, stage := range Stages {
		if string(stage) == s {
			return stage, true
		}
	}
	return "", false
}

// ActiveStages are stages of jobs still in flight; matching and operator
// commands only consider these.
var ActiveStages = []Stage{
	StagePending,
	StageInProduction,
	StageReady,
	StageInstalled,
	StageCompleted,
	StageInvoiced,
}

// Job is a fabrication work item. Created only when an estimate is won.
type Job struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	ContactID   string     `json:"contact_id" gorm:"index;not null"`
	EstimateID  string     `json:"estimate_id,omitempty" gorm:"index"`
	Description string     `json:"description" gorm:"not null"`
	Stage       Stage      `json:"stage" gorm:"default:pending"`
	ETA         *time.Time `json:"eta,omitempty"`
	Total       float64    `json:"total"`
	// EtaReminderSent tracks whether the operator was pinged about an
	// approaching ETA, so the scheduler does not repeat itself.
	EtaReminderSent bool      `json:"eta_reminder_sent" gorm:"default:false"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Match is a derived, non-persisted pairing of a Job with the confidence
// that an inbound message refers to it.
type Match struct {
	Job             *Job
	Confidence      float64
	MatchedKeywords []string
}
