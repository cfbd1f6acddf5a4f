// Package container provides dependency injection for all singleton services
package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkim/mystory/internal/application/services"
	"github.com/mkim/mystory/internal/domain/repositories"
	"github.com/mkim/mystory/internal/domain/scrollsync"
	"github.com/mkim/mystory/internal/infrastructure/email"
	"github.com/mkim/mystory/internal/infrastructure/media"
	"github.com/mkim/mystory/internal/infrastructure/messaging"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	contactrepo "github.com/mkim/mystory/internal/infrastructure/persistence/contact"
	contentrepo "github.com/mkim/mystory/internal/infrastructure/persistence/content"
	"github.com/mkim/mystory/internal/infrastructure/persistence/database"
	"github.com/mkim/mystory/internal/infrastructure/security"
	"github.com/mkim/mystory/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services
	ContentService *services.ContentService
	ContactService *services.ContactService
	AuthService    *services.AuthService
	AdminService   *services.AdminService

	// Infrastructure Dependencies
	Logger      *logging.ChanneledLogger
	DB          *database.DB // nil when the submission log is unavailable
	Submissions repositories.SubmissionRepository
	Hub         *messaging.Hub
	Media       *media.ImageProcessor

	// Session settings
	ScrollConfig scrollsync.Config
	ConnOptions  messaging.ConnOptions
}

// ScrollConfigFromEnv maps pkg/config onto the resolver configuration.
func ScrollConfigFromEnv() scrollsync.Config {
	cfg := scrollsync.DefaultConfig()
	cfg.ObservationDebounce = config.ScrollDebounce
	cfg.QuietPeriod = config.ScrollQuiet
	cfg.LockDuration = config.ScrollLock
	cfg.SettleTime = config.ScrollSettle
	cfg.SelectionReset = config.ScrollSelectionReset
	cfg.HeaderHeight = config.ScrollHeaderHeight
	return cfg
}

// MailSettingsFromEnv maps pkg/config onto the mail transport settings.
func MailSettingsFromEnv() email.Settings {
	return email.Settings{
		Transport:          config.MailTransport,
		User:               config.EmailUser,
		Password:           config.EmailPass,
		Host:               config.SMTPHost,
		Port:               config.SMTPPort,
		InsecureSkipVerify: config.SMTPInsecureSkipVerify,
		ResendAPIKey:       config.ResendAPIKey,
	}
}

// OpenDatabase opens and migrates the configured submission database.
func OpenDatabase(ctx context.Context, logger *logging.ChanneledLogger) (*database.DB, error) {
	db, err := database.Open(ctx, config.DatabaseURL, database.Options{
		AuthToken:       config.DatabaseAuthToken,
		MaxOpenConns:    config.DBMaxOpenConns,
		MaxIdleConns:    config.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// NewContainer creates and wires all singleton services. Content errors are
// fatal; a missing mail transport or database only degrades the contact
// relay and is logged.
func NewContainer(ctx context.Context, logger *logging.ChanneledLogger) (*Container, error) {
	siteRepo, err := contentrepo.NewSiteRepository(config.ContentFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load site content: %w", err)
	}

	processor := media.NewImageProcessor(config.StaticDir, config.MediaDir, config.MediaWidths, logger)

	c := &Container{
		Logger:       logger,
		Media:        processor,
		Hub:          messaging.NewHub(config.MaxExperienceSessions, logger),
		ScrollConfig: ScrollConfigFromEnv(),
		ConnOptions: messaging.ConnOptions{
			WriteTimeout: config.WSWriteTimeout,
			PingInterval: config.WSPingInterval,
		},
	}

	db, err := OpenDatabase(ctx, logger)
	if err != nil {
		logger.Startup().Warn("Submission log unavailable, continuing without it", "error", err.Error())
	} else {
		c.DB = db
		c.Submissions = contactrepo.NewSubmissionRepository(db.DB, logger)
	}

	mailer, err := email.NewMailer(MailSettingsFromEnv())
	if err != nil {
		if !errors.Is(err, email.ErrNotConfigured) {
			return nil, fmt.Errorf("invalid mail configuration: %w", err)
		}
		logger.Startup().Warn("Mail transport not configured; contact form will report a configuration error",
			"transport", config.MailTransport)
		mailer = nil
	}

	c.ContentService = services.NewContentService(siteRepo, processor, logger)
	c.ContactService = services.NewContactService(mailer, c.Submissions, config.ContactTo, config.MailTimeout, logger)
	jwtSecret := config.JWTSecret
	if jwtSecret == "" && config.AdminPasswordHash != "" {
		if jwtSecret, err = security.GenerateSecureKey(64); err != nil {
			return nil, err
		}
		logger.Startup().Warn("JWT_SECRET not set; using a per-process secret, admin tokens will not survive a restart")
	}
	c.AuthService = services.NewAuthService(config.AdminPasswordHash, jwtSecret, config.AdminTokenTTL, logger)
	c.AdminService = services.NewAdminService(c.Submissions, c.Hub, logger)
	return c, nil
}

// Close releases the hub and database.
func (c *Container) Close() error {
	c.Hub.Shutdown()
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
