package main

import (
	"log"
	"os"
	"time"

	"github.com/godprim3/intelligent-email-assistant/internal/api"
	"github.com/godprim3/intelligent-email-assistant/internal/cli"
	"github.com/godprim3/intelligent-email-assistant/internal/config"
	"github.com/godprim3/intelligent-email-assistant/internal/database"
	"github.com/godprim3/intelligent-email-assistant/internal/llm"
	"github.com/godprim3/intelligent-email-assistant/internal/mail"
	"github.com/godprim3/intelligent-email-assistant/internal/push"
	"github.com/godprim3/intelligent-email-assistant/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Check if running CLI command
	if len(os.Args) > 1 {
		cli.Execute(db, cfg)
		return
	}

	// Analysis providers
	router := llm.NewRouter(cfg.DefaultProvider)
	router.Register(llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel))
	router.Register(llm.NewDeepSeekProvider(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, cfg.DeepSeekModel))

	// Inbound mailbox and push channel
	mailbox := mail.NewIMAPMailbox(mail.Options{
		IMAPHost:           cfg.IMAPHost,
		IMAPPort:           cfg.IMAPPort,
		SMTPHost:           cfg.SMTPHost,
		SMTPPort:           cfg.SMTPPort,
		Username:           cfg.MailUsername,
		Password:           cfg.MailPassword,
		UseSSL:             cfg.MailUseSSL,
		AuthType:           mail.AuthType(cfg.MailAuthType),
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GoogleRefreshToken: cfg.GoogleRefreshToken,
	})
	channel := push.NewWhatsAppChannel(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)

	// Services
	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	messageStore := services.NewMessageStore(db)
	prefsStore := services.NewPreferencesStore(db)
	intake := services.NewIntakeService(messageStore, prefsStore, router, logService)
	responder := services.NewAutoResponder(messageStore, prefsStore, router, mailbox, logService, cfg.MaxResponseLength)
	notifier := services.NewNotifier(messageStore, prefsStore, channel, logService)

	scheduler := services.NewScheduler(intake, responder, notifier, mailbox, logService, router.Status, services.SchedulerConfig{
		AccountID:       cfg.MailUsername,
		PollInterval:    time.Duration(cfg.PollIntervalMinutes) * time.Minute,
		RespondInterval: time.Duration(cfg.RespondIntervalMinutes) * time.Minute,
		HealthInterval:  time.Duration(cfg.HealthIntervalMinutes) * time.Minute,
		SummaryHour:     cfg.SummaryHour,
		BatchSize:       cfg.BatchSize,
	})
	scheduler.Start()
	defer scheduler.Stop()

	// Start API server
	engine, authManager, err := api.SetupRouter(cfg, api.Deps{
		DB:         db,
		Router:     router,
		Store:      messageStore,
		Prefs:      prefsStore,
		Intake:     intake,
		Responder:  responder,
		Notifier:   notifier,
		Scheduler:  scheduler,
		LogService: logService,
	})
	if err != nil {
		log.Fatalf("Failed to setup router: %v", err)
	}

	log.Printf("Starting email assistant server on port %s", cfg.APIPort)
	log.Printf("Data directory: %s", cfg.DataDir)
	log.Printf("Database path: %s", cfg.DatabasePath)
	log.Printf("API Key: %s", authManager.APIKeyManager.GetCurrentKey())
	if err := engine.Run(":" + cfg.APIPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
