// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkim/mystory/internal/application/container"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	"github.com/mkim/mystory/internal/presentation/http/server"
	"github.com/mkim/mystory/pkg/config"
)

// NewLogger builds the channeled logger from pkg/config.
func NewLogger() (*logging.ChanneledLogger, error) {
	level, err := logging.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultLoggerConfig()
	cfg.JSONFormat = config.LogJSON
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDir
	cfg.DefaultLevel = level
	return logging.NewChanneledLogger(cfg)
}

// Initialize performs the complete startup sequence and blocks until SIGINT
// or SIGTERM, then shuts down gracefully.
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `
  ┏┳┓┓┏┏┓┏┳┓┏┓┳┓┓┏
  ┃┃┃┗┫┗┓ ┃ ┃┃┣┫┗┫
  ┛ ┗┗┛┗┛ ┻ ┗┛┛┗┗┛
` + "\033[0m")

	// Step 1: Logging
	logger, err := NewLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Channeled logging initialized", "level", config.LogLevel, "json", config.LogJSON)

	// Step 2: Create dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	containerStart := time.Now()
	appContainer, err := container.NewContainer(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	site := appContainer.ContentService.Site()
	logger.Startup().Info("Container initialized",
		"experiences", len(site.Experiences),
		"projects", len(site.Projects),
		"mail", appContainer.ContactService.Configured(),
		"submissionLog", appContainer.Submissions != nil,
		"duration", time.Since(containerStart))

	// Step 3: Media variants
	if config.MediaWarm {
		go func() {
			warmStart := time.Now()
			report, err := appContainer.ContentService.WarmMedia(ctx)
			if err != nil {
				logger.Startup().Error("Media warming failed", "error", err.Error())
				return
			}
			logger.Startup().Info("Media warming completed",
				"images", report.Images,
				"widths", appContainer.Media.Widths(),
				"written", report.Written,
				"failed", len(report.Failed),
				"duration", time.Since(warmStart))
		}()
	}

	// Step 4: Start HTTP server
	httpServer, err := server.New(config.Port, appContainer)
	if err != nil {
		appContainer.Close()
		return err
	}

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port)

	// Wait for shutdown signal or a listener failure
	var runErr error
	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case runErr = <-serverErr:
		if runErr != nil {
			logger.System().Error("HTTP server failed", "error", runErr.Error())
		}
	}

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Closing sessions and database...", "liveSessions", appContainer.Hub.Count())
	if err := appContainer.Close(); err != nil {
		logger.Shutdown().Error("Error closing container", "error", err.Error())
	}
	logging.GetBroadcaster().Shutdown()

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return runErr
}

// setupLogging configures gin and the standard logger
func setupLogging() {
	switch config.GinMode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(config.GinMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
