package main

import (
	"context"
	"fmt"
	"log"

	"signdesk-backend/cmd/api"
	contactdomain "signdesk-backend/internal/contact/domain"
	estimatedomain "signdesk-backend/internal/estimate/domain"
	intakedomain "signdesk-backend/internal/intake/domain"
	jobdomain "signdesk-backend/internal/job/domain"
	pricingdomain "signdesk-backend/internal/pricing/domain"
	"signdesk-backend/pkg/config"
	"signdesk-backend/pkg/database"
)

func main() {
	cfg := config.Load()

	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&contactdomain.Contact{},
		&jobdomain.Job{},
		&estimatedomain.Estimate{},
		&estimatedomain.EstimateItem{},
		&pricingdomain.SignType{},
		&pricingdomain.Material{},
		&pricingdomain.HistoryEntry{},
		&intakedomain.SyncState{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	handler, err := api.NewHandler(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	// Register the Gmail watch so Pub/Sub pings arrive for the shop mailbox.
	// The watch expires after 7 days; re-registering at boot is enough for a
	// service that restarts on deploys.
	if cfg.WatchedAddress != "" && cfg.GoogleProjectID != "" {
		topic := fmt.Sprintf("projects/%s/topics/%s", cfg.GoogleProjectID, cfg.GooglePubSubTopic)
		historyID, err := handler.Gmail.Watch(context.Background(), topic)
		if err != nil {
			log.Printf("Warning: Gmail watch registration failed: %v", err)
		} else {
			log.Printf("Gmail watch registered on %s (history id %d)", cfg.WatchedAddress, historyID)
		}
	}

	handler.Scheduler.Start()
	defer handler.Scheduler.Stop()

	if handler.Listener != nil {
		go handler.Listener.Start(context.Background())
	}

	addr := ":" + cfg.Port
	log.Printf("Starting server on %s", addr)
	if err := handler.Start(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
