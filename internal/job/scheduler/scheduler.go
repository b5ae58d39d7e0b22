package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"signdesk-backend/internal/job/repository"
	"signdesk-backend/pkg/telegram"
)

// EtaReminderScheduler pings the operator chat when a job's promised ETA is
// inside the lookahead window, once per job.
type EtaReminderScheduler struct {
	jobRepo   repository.JobRepository
	bot       *telegram.Bot
	chatID    int64
	interval  time.Duration
	lookahead time.Duration
	stopChan  chan struct{}
}

// NewEtaReminderScheduler creates a new scheduler
func NewEtaReminderScheduler(jobRepo repository.JobRepository, bot *telegram.Bot, chatID int64) *EtaReminderScheduler {
	return &EtaReminderScheduler{
		jobRepo:   jobRepo,
		bot:       bot,
		chatID:    chatID,
		interval:  15 * time.Minute,
		lookahead: 48 * time.Hour,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *EtaReminderScheduler) Start() {
	if s.bot == nil || s.chatID == 0 {
		log.Println("[EtaScheduler] Telegram chat not configured, scheduler disabled")
		return
	}

	log.Printf("[EtaScheduler] Starting ETA reminder scheduler (interval: %s)", s.interval)

	go func() {
		// Run immediately on start
		s.checkAndSendReminders()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkAndSendReminders()
			case <-s.stopChan:
				log.Println("[EtaScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *EtaReminderScheduler) Stop() {
	close(s.stopChan)
}

func (s *EtaReminderScheduler) checkAndSendReminders() {
	jobs, err := s.jobRepo.FindDueEtaReminders(time.Now().Add(s.lookahead))
	if err != nil {
		log.Printf("[EtaScheduler] Error finding due ETA reminders: %v", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	log.Printf("[EtaScheduler] Found %d jobs with approaching ETAs", len(jobs))

	for _, job := range jobs {
		text := fmt.Sprintf("⏰ ETA approaching for job %s\n%s\nStage: %s\nETA: %s",
			shortID(job.ID), job.Description, job.Stage, job.ETA.Format("2006-01-02"))

		if _, err := s.bot.SendMessage(context.Background(), s.chatID, text, nil); err != nil {
			log.Printf("[EtaScheduler] Error sending reminder for job %s: %v", job.ID, err)
			continue
		}

		// Mark sent regardless of what the operator does with it, to avoid
		// repeating the ping every interval.
		if err := s.jobRepo.MarkEtaReminderSent(job.ID); err != nil {
			log.Printf("[EtaScheduler] Error marking reminder sent for job %s: %v", job.ID, err)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
