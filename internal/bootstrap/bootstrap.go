// Package bootstrap assembles the application: configuration, database,
// services, the Telegram dispatcher, the HTTP server and the scheduler.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/unipulse/unipulse-bot/internal/app/migrations"
	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/app/repositories"
	"github.com/unipulse/unipulse-bot/internal/app/services"
	"github.com/unipulse/unipulse-bot/internal/bot"
	"github.com/unipulse/unipulse-bot/internal/config"
	"github.com/unipulse/unipulse-bot/internal/db"
	"github.com/unipulse/unipulse-bot/internal/extractor"
	"github.com/unipulse/unipulse-bot/internal/pkg/auth"
	"github.com/unipulse/unipulse-bot/internal/pkg/email"
	"github.com/unipulse/unipulse-bot/internal/pkg/filestorage"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
	"github.com/unipulse/unipulse-bot/internal/ratelimit"
	"github.com/unipulse/unipulse-bot/internal/scheduler"
	"github.com/unipulse/unipulse-bot/internal/server"
)

// App holds everything a running instance owns.
type App struct {
	Config    *config.Config
	DB        *db.PostgresDB
	Server    *server.Server
	Scheduler *scheduler.Scheduler
}

// New builds the application from a config file path.
func New(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger.Configure(logger.Config{
		Level:  logger.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Format != "json",
	})

	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	migrator := migrations.NewMigrator(database.Pool)
	if err := migrator.MigrateFromDirectory("migrations"); err != nil {
		database.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	repos := repositories.NewRepositories(database.Pool)
	location := cfg.Location()
	publicURL := strings.TrimRight(cfg.Server.PublicURL, "/")

	storage, err := filestorage.NewLocalStorage(cfg.Server.StoragePath, publicURL+"/uploads")
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("preparing poster storage: %w", err)
	}

	tokens := auth.NewTokenService(auth.TokenConfig{
		SecretKey: cfg.Verification.Secret,
		TokenTTL:  cfg.VerificationTokenTTL(),
		Issuer:    "unipulse",
	})
	mailer := email.NewEmailService(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
	}, logger.Logger())

	parser := extractor.New(extractor.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	}, logger.Logger())

	limiter := ratelimit.NewDBLimiter(repos.EventRepository, cfg.RateLimit.MaxPerHour, time.Hour)

	accountSvc := services.NewAccountService(repos.AccountRepository, tokens, mailer, cfg.Verification.AllowedDomains, publicURL)
	eventSvc := services.NewEventService(repos.EventRepository, repos.AccountRepository, storage)
	rsvpSvc := services.NewRSVPService(repos.AccountRepository, repos.EventRepository, repos.RSVPRepository, repos.ReminderRepository)
	subSvc := services.NewSubscriptionService(repos.AccountRepository, repos.CategoryRepository, repos.SubscriptionRepository)
	ingestSvc := services.NewIngestService(repos.AccountRepository, repos.EventRepository, repos.CategoryRepository, parser, limiter, storage, cfg.Telegram.TriggerTag)
	digestSvc := services.NewDigestService(repos.AccountRepository, repos.EventRepository, repos.SubscriptionRepository, location)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	logger.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	if err := bot.RegisterWebhook(api, publicURL, cfg.Telegram.WebhookSecret); err != nil {
		database.Close()
		return nil, err
	}

	dispatcher := bot.NewDispatcher(api, accountSvc, eventSvc, rsvpSvc, subSvc, ingestSvc, location)
	notifier := bot.NewNotifier(api, location)

	sched, err := scheduler.New(repos.ReminderRepository, digestSvc, notifier, location)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("building scheduler: %w", err)
	}

	notifyUser := func(account *models.Account) {
		dispatcher.SendOnboarding(context.Background(), account)
	}
	srv := server.New(cfg, dispatcher, accountSvc, notifyUser)

	return &App{
		Config:    cfg,
		DB:        database,
		Server:    srv,
		Scheduler: sched,
	}, nil
}

// Run starts the scheduler and serves HTTP until the context is cancelled,
// then shuts both down.
func (a *App) Run(ctx context.Context) error {
	a.Scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a.Scheduler.Stop(shutdownCtx)
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	a.DB.Close()
	return nil
}
