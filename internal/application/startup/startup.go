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

	"github.com/AtRiskMedia/siteshell-go/internal/application/container"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/siteshell-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// maintenanceInterval is how often expired lead rate limit windows and idle
// visitor sessions are dropped
const maintenanceInterval = 10 * time.Minute

// Initialize performs the complete startup sequence and blocks until a
// shutdown signal arrives
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `
  siteshell
` + "\033[97m" + `
  made by At Risk Media
` + "\033[0m")

	// Step 1: Channeled logging
	logger, err := NewLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Channeled logging initialized", "level", config.LogLevel, "json", config.LogJSON)

	// Step 2: Storage and services
	phaseStart := time.Now()
	appContainer, err := container.NewContainer(ctx, logger)
	if err != nil {
		logger.LogStartupPhase("container", time.Since(phaseStart), false, map[string]any{"error": err.Error()})
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer appContainer.Close()
	logger.LogStartupPhase("container", time.Since(phaseStart), true, map[string]any{
		"driver":      appContainer.DB.Driver,
		"clientStore": config.ClientStoreBackend,
		"voice":       appContainer.ChatService.VoiceEnabled(),
	})

	// Step 3: Realtime hub
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		appContainer.Hub.Run(ctx)
	}()
	logger.Startup().Info("Realtime hub started")

	// Step 4: Install the offline shell
	if config.ShellOrigin != "" {
		phaseStart = time.Now()
		status, err := appContainer.ShellService.Deploy(ctx, config.CacheVersion)
		if err != nil {
			// Requests still pass through to the origin without a worker
			logger.LogStartupPhase("shell-install", time.Since(phaseStart), false, map[string]any{"error": err.Error()})
		} else {
			logger.LogStartupPhase("shell-install", time.Since(phaseStart), true, map[string]any{"status": status})
		}
	} else {
		logger.Startup().Warn("SHELL_ORIGIN not set - offline shell disabled")
	}

	// Step 5: Background maintenance
	go maintain(ctx, appContainer, logger)
	go func() {
		if err := appContainer.Policies.Watch(ctx, logger); err != nil {
			logger.Content().Warn("Policy file not watched - use the admin reload", "error", err.Error())
		}
	}()

	// Step 6: Start HTTP server
	logger.Startup().Info("Starting HTTP server...")
	startServerTime := time.Now()

	httpServer := server.New(config.Port, appContainer)

	logger.Startup().Info("HTTP server initialized", "port", config.Port, "duration", time.Since(startServerTime))

	// Step 7: Setup graceful shutdown
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
			serverErr <- err
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port)

	// Wait for shutdown signal
	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		logger.Shutdown().Error("Shutting down after server failure", "error", err.Error())
	}

	shutdownStart := time.Now()

	// Stop server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	// Cancel background tasks
	cancelBackgroundTasks()
	<-hubDone

	logger.Shutdown().Info("Stopping session timers and flushing analytics...")
	appContainer.Shutdown()

	logger.Shutdown().Info("Closing storage...")
	if err := appContainer.Close(); err != nil {
		logger.Shutdown().Error("Error closing storage", "error", err.Error())
	} else {
		logger.Shutdown().Info("Storage closed successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// NewLogger builds the channeled logger from pkg/config
func NewLogger() (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.DefaultLevel = logging.ParseLevel(config.LogLevel)
	cfg.JSONFormat = config.LogJSON
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDirectory
	return logging.NewChanneledLogger(cfg)
}

func maintain(ctx context.Context, c *container.Container, logger *logging.ChanneledLogger) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.LeadService.Prune(); n > 0 {
				logger.Leads().Debug("Pruned rate limit windows", "count", n)
			}
			chats, trackers, installs := c.EvictIdle(config.SessionIdleTimeout)
			if chats+trackers+installs > 0 {
				logger.System().Debug("Evicted idle sessions", "chat", chats, "analytics", trackers, "install", installs)
			}
		}
	}
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
