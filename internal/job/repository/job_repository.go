package repository

import (
	"errors"
	"strings"
	"time"

	jobdomain "signdesk-backend/internal/job/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobRepository defines the interface for job data access
type JobRepository interface {
	Create(job *jobdomain.Job) error
	FindByID(id string) (*jobdomain.Job, error)
	// FindActive returns jobs in active stages, newest first, optionally
	// filtered to a contact.
	FindActive(contactID string) ([]*jobdomain.Job, error)
	// FindByIDPrefix resolves a shortened job identifier against active jobs.
	// Returns all active jobs whose ID starts with the prefix.
	FindByIDPrefix(prefix string) ([]*jobdomain.Job, error)
	// FindDueEtaReminders returns active jobs whose ETA falls within the
	// window and that have not been reminded about yet.
	FindDueEtaReminders(until time.Time) ([]*jobdomain.Job, error)
	Update(job *jobdomain.Job) error
	MarkEtaReminderSent(id string) error
}

type jobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new instance of jobRepository
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{
		db: db,
	}
}

func (r *jobRepository) Create(job *jobdomain.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Stage == "" {
		job.Stage = jobdomain.StagePending
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = time.Now()
	return r.db.Create(job).Error
}

func (r *jobRepository) FindByID(id string) (*jobdomain.Job, error) {
	var job jobdomain.Job
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) FindActive(contactID string) ([]*jobdomain.Job, error) {
	q := r.db.Where("stage IN ?", stageStrings(jobdomain.ActiveStages))
	if contactID != "" {
		q = q.Where("contact_id = ?", contactID)
	}

	var jobs []*jobdomain.Job
	if err := q.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) FindByIDPrefix(prefix string) ([]*jobdomain.Job, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}

	var jobs []*jobdomain.Job
	err := r.db.Where("id LIKE ?", prefix+"%").
		Where("stage IN ?", stageStrings(jobdomain.ActiveStages)).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) FindDueEtaReminders(until time.Time) ([]*jobdomain.Job, error) {
	var jobs []*jobdomain.Job
	err := r.db.Where("eta IS NOT NULL AND eta <= ?", until).
		Where("eta_reminder_sent = ?", false).
		Where("stage IN ?", stageStrings(jobdomain.ActiveStages)).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) Update(job *jobdomain.Job) error {
	job.UpdatedAt = time.Now()
	return r.db.Save(job).Error
}

func (r *jobRepository) MarkEtaReminderSent(id string) error {
	return r.db.Model(&jobdomain.Job{}).Where("id = ?", id).
		Update("eta_reminder_sent", true).Error
}

func stageStrings(stages []jobdomain.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
