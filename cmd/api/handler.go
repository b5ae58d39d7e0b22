package api

import (
	"fmt"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	approvalhttp "signdesk-backend/internal/approval/delivery/http"
	approvalusecase "signdesk-backend/internal/approval/usecase"
	contacthttp "signdesk-backend/internal/contact/delivery/http"
	contactrepository "signdesk-backend/internal/contact/repository"
	estimaterepository "signdesk-backend/internal/estimate/repository"
	estimateusecase "signdesk-backend/internal/estimate/usecase"
	jobrepository "signdesk-backend/internal/job/repository"
	jobscheduler "signdesk-backend/internal/job/scheduler"
	jobusecase "signdesk-backend/internal/job/usecase"
	intakehttp "signdesk-backend/internal/intake/delivery/http"
	intakelistener "signdesk-backend/internal/intake/listener"
	intakerepository "signdesk-backend/internal/intake/repository"
	intakeusecase "signdesk-backend/internal/intake/usecase"
	pricingrepository "signdesk-backend/internal/pricing/repository"
	pricingusecase "signdesk-backend/internal/pricing/usecase"
	"signdesk-backend/pkg/ai"
	"signdesk-backend/pkg/config"
	"signdesk-backend/pkg/dedup"
	"signdesk-backend/pkg/gmail"
	"signdesk-backend/pkg/quickbooks"
	"signdesk-backend/pkg/telegram"
)

// Handler wires repositories, usecases and delivery handlers together and
// owns the HTTP server.
type Handler struct {
	config          *config.Config
	gmailWebhook    *intakehttp.GmailWebhookHandler
	telegramWebhook *approvalhttp.TelegramWebhookHandler
	contactHandler  *contacthttp.ContactHandler

	// Started by main alongside the HTTP server.
	Gmail     *gmail.Service
	Scheduler *jobscheduler.EtaReminderScheduler
	Listener  *intakelistener.Listener
}

func NewHandler(cfg *config.Config, db *gorm.DB) (*Handler, error) {
	// Runtime-tunable Ollama settings for the settings API.
	InitRuntimeConfig(cfg.OllamaBaseURL, cfg.OllamaModel)

	aiService, err := ai.NewClassifierServiceWithDynamicConfig(ai.DynamicConfig{
		Provider:         ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:     cfg.GeminiApiKey,
		GetOllamaBaseURL: GetRuntimeOllamaBaseURL,
		GetOllamaModel:   GetRuntimeOllamaModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI service: %w", err)
	}
	log.Printf("AI service initialized with provider: %s (dynamic config enabled)", cfg.AIProvider)

	// Repositories
	contacts := contactrepository.NewContactRepository(db)
	jobs := jobrepository.NewJobRepository(db)
	estimates := estimaterepository.NewGormEstimateRepository(db)
	catalog := pricingrepository.NewCatalogRepository(db)
	history := pricingrepository.NewHistoryRepository(db)
	syncState := intakerepository.NewGormSyncStateRepository(db)

	// External clients
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken, cfg.WatchedAddress)
	bot := telegram.NewBot(cfg.TelegramBotToken)
	accounting := quickbooks.NewClient(cfg.QuickBooksBaseURL, cfg.QuickBooksRealmID, cfg.QuickBooksAccessToken)

	var chatID int64
	if cfg.TelegramChatID != "" {
		chatID, err = strconv.ParseInt(cfg.TelegramChatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %v", err)
		}
	} else {
		log.Println("Warning: TELEGRAM_CHAT_ID not set, operator notifications disabled")
	}

	var dedupStore dedup.Store
	if cfg.RedisURL != "" {
		dedupStore, err = dedup.NewRedisStore(cfg.RedisURL, cfg.DedupTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Println("Dedup store: redis")
	} else {
		dedupStore = dedup.NewMemoryStore(cfg.DedupTTL)
		log.Println("Dedup store: in-memory (resets on restart)")
	}

	// Usecases
	engine := pricingusecase.NewEngine(catalog, history)
	estimateUC := estimateusecase.NewEstimateUsecase(estimates, jobs, history)
	matcher := jobusecase.NewMatcher(jobs)
	workflow := approvalusecase.NewWorkflow(estimateUC, contacts, jobs, accounting, gmailService, bot, aiService)
	pipeline := intakeusecase.NewPipeline(dedupStore, gmailService, contacts, aiService, engine, estimateUC, matcher, workflow, bot, syncState, chatID)

	var pubsubListener *intakelistener.Listener
	if cfg.GoogleProjectID != "" {
		pubsubListener, err = intakelistener.NewListener(cfg.GoogleProjectID, cfg.GooglePubSubTopic, cfg.GoogleCredentials, pipeline)
		if err != nil {
			log.Printf("Warning: Pub/Sub pull listener unavailable: %v", err)
			pubsubListener = nil
		}
	}

	return &Handler{
		config:          cfg,
		gmailWebhook:    intakehttp.NewGmailWebhookHandler(pipeline),
		telegramWebhook: approvalhttp.NewTelegramWebhookHandler(workflow, chatID),
		contactHandler:  contacthttp.NewContactHandler(contacts),
		Gmail:           gmailService,
		Scheduler:       jobscheduler.NewEtaReminderScheduler(jobs, bot, chatID),
		Listener:        pubsubListener,
	}, nil
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.gmailWebhook, h.telegramWebhook, h.contactHandler)

	return r.Run(addr)
}
