// Package container provides dependency injection for all singleton services
package container

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/application/services"
	"github.com/AtRiskMedia/siteshell-go/internal/domain/install"
	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/caching/offline"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/content"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/integrations/crm"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/integrations/sheets"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/integrations/tracking"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/storage"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/transcription"
	"github.com/AtRiskMedia/siteshell-go/pkg/config"
)

// clientStoreTTL bounds visitor keys when the client store is redis.
const clientStoreTTL = 90 * 24 * time.Hour

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services
	ChatService      *services.ChatService
	AnalyticsService *services.AnalyticsService
	LeadService      *services.LeadService
	InstallService   *services.InstallService
	ShellService     *services.ShellService
	AuthService      *services.AuthService

	// Infrastructure Dependencies
	Logger      *logging.ChanneledLogger
	DB          *database.DB
	ClientStore storage.Store
	Hub         *messaging.Hub
	Registry    *offline.Registry
	Attachments *media.AttachmentStore
	Policies    *content.PolicyStore
	HTTPClient  *http.Client

	closers []func() error
}

// NewContainer opens storage and wires every service from pkg/config
func NewContainer(ctx context.Context, logger *logging.ChanneledLogger) (*Container, error) {
	c := &Container{
		Logger:     logger,
		HTTPClient: &http.Client{},
	}

	db, err := database.Open(database.Config{
		SQLitePath:      config.DatabasePath,
		TursoURL:        config.TursoDatabaseURL,
		TursoToken:      config.TursoAuthToken,
		MaxOpenConns:    config.DBMaxOpenConns,
		MaxIdleConns:    config.DBMaxIdleConns,
		ConnMaxLifetime: config.DBConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	c.DB = db
	c.closers = append(c.closers, db.Close)

	if err := database.NewTableCreator().CreateSchema(db.DB); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	store, err := c.openClientStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.ClientStore = store

	policies, err := content.LoadPolicies(config.ContentFile)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load content: %w", err)
	}
	c.Policies = policies

	c.Hub = messaging.NewHub(logger)
	c.Registry = offline.NewRegistry(offline.NewSQLStorage(db, logger, config.SlowQueryThreshold), c.HTTPClient, logger, config.CacheAutoActivate)
	c.Attachments = media.NewAttachmentStore(config.MediaDirectory, "/media", config.MaxUploadBytes)

	c.AnalyticsService = services.NewAnalyticsService(store, c.analyticsOptions(), logger)

	chatOpts := services.ChatOptions{
		ReplyMinDelay: config.ChatReplyMinDelay,
		ReplyMaxDelay: config.ChatReplyMaxDelay,
		AutoOpenDelay: config.ChatAutoOpenDelay,
	}
	if config.EnableVoice && config.AssemblyAIAPIKey != "" {
		transcriber, err := transcription.NewAssemblyAI(config.AssemblyAIAPIKey, config.EnableMultilingual)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create transcriber: %w", err)
		}
		chatOpts.Transcriber = transcriber
	}
	c.ChatService = services.NewChatService(store, c.AnalyticsService, c.Hub, chatOpts, logger)
	c.AnalyticsService.OnSessionEnd(c.ChatService.Drop)

	processor, err := c.leadProcessor()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.LeadService = services.NewLeadService(
		processor,
		leads.NewRateLimiter(config.LeadRateLimit, config.LeadRateLimitWindow),
		c.AnalyticsService,
		logger,
	)

	c.InstallService = services.NewInstallService(store, c.Hub, config.InstallBannerDelay, logger)
	c.ShellService = services.NewShellService(c.Registry, c.Hub, c.ShellConfig(), logger)
	jwtSecret := config.JWTSecret
	if jwtSecret == "" && config.AdminPassword != "" {
		// admin tokens then only survive until restart
		if jwtSecret, err = security.GenerateSecureKey(64); err != nil {
			c.Close()
			return nil, err
		}
		logger.Auth().Warn("JWT_SECRET not set - using an ephemeral secret")
	}
	c.AuthService = services.NewAuthService(config.AdminPassword, jwtSecret, logger)

	c.Hub.OnInbound(c.routeInbound)

	return c, nil
}

// ShellConfig is the offline cache configuration for the shell origin
func (c *Container) ShellConfig() offline.Config {
	return offline.Config{
		Version:       config.CacheVersion,
		Origin:        config.ShellOrigin,
		Manifest:      config.CacheManifest,
		AllowPatterns: config.CacheAllowPatterns,
		OfflinePage:   config.OfflinePage,
	}
}

func (c *Container) openClientStore(ctx context.Context) (storage.Store, error) {
	switch strings.ToLower(config.ClientStoreBackend) {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "redis":
		rs, err := storage.NewRedisStore(ctx, config.RedisURL, clientStoreTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect client store: %w", err)
		}
		c.closers = append(c.closers, rs.Close)
		return rs, nil
	case "", "sqlite":
		return storage.NewSQLStore(c.DB, c.Logger, config.SlowQueryThreshold), nil
	default:
		return nil, fmt.Errorf("unknown client store backend %q", config.ClientStoreBackend)
	}
}

func (c *Container) analyticsOptions() services.AnalyticsOptions {
	opts := services.AnalyticsOptions{
		EventBufferSize:  config.EventBufferSize,
		HeatmapFlushSize: config.HeatmapFlushSize,
	}
	if config.AnalyticsEndpoint != "" {
		opts.SharedSinks = append(opts.SharedSinks, tracking.NewEndpoint(config.AnalyticsEndpoint, c.HTTPClient))
	}
	if config.GAMeasurementID != "" && config.GAAPISecret != "" {
		opts.SharedSinks = append(opts.SharedSinks, tracking.NewGA4("", config.GAMeasurementID, config.GAAPISecret, c.HTTPClient))
	}
	if config.MetaPixelID != "" && config.MetaAccessToken != "" {
		opts.SharedSinks = append(opts.SharedSinks, tracking.NewMeta("", config.MetaPixelID, config.MetaAccessToken, c.HTTPClient))
	}
	if config.HeatmapEndpoint != "" {
		opts.HeatmapFlusher = services.NewHeatmapPoster(config.HeatmapEndpoint, c.HTTPClient)
	}

	names := make([]string, 0, len(opts.SharedSinks))
	for _, s := range opts.SharedSinks {
		names = append(names, s.Name())
	}
	c.Logger.Analytics().Info("Analytics sinks configured", "sinks", names, "heatmap", opts.HeatmapFlusher != nil)
	return opts
}

// leadProcessor builds the lead fan-out. Sinks without configuration stay
// nil and report false.
func (c *Container) leadProcessor() (*services.LeadProcessor, error) {
	var (
		sheetSink services.SheetsAppender
		mailSink  email.Service
		crmSink   services.ContactCreator
	)
	if config.SheetsEndpoint != "" {
		sheetSink = sheets.NewClient(config.SheetsEndpoint, c.HTTPClient)
	}
	if config.ResendAPIKey != "" && config.LeadEmailTo != "" {
		client, err := email.NewResendClient(config.ResendAPIKey, config.LeadEmailFrom, config.LeadEmailFromName, config.ShellOrigin, config.LeadEmailTo)
		if err != nil {
			return nil, fmt.Errorf("failed to create email client: %w", err)
		}
		mailSink = client
	}
	if config.CRMType != "" {
		client, err := crm.NewClient(config.CRMType, config.CRMAPIKey, config.CRMBaseURL, c.HTTPClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create CRM client: %w", err)
		}
		crmSink = client
	}

	c.Logger.Leads().Info("Lead sinks configured",
		"sheets", sheetSink != nil,
		"email", mailSink != nil,
		"crm", crmSink != nil)
	return services.NewLeadProcessor(sheetSink, mailSink, crmSink, c.Logger), nil
}

// routeInbound dispatches frames pages send up the websocket
func (c *Container) routeInbound(sessionID string, msg messaging.Inbound) {
	switch msg.Type {
	case messaging.InboundInstallOutcome:
		var body struct {
			Outcome install.Outcome `json:"outcome"`
		}
		if err := json.Unmarshal(msg.Data, &body); err != nil {
			c.Logger.WithSession(logging.ChannelRealtime, sessionID).Debug("Malformed install outcome", "error", err.Error())
			return
		}
		if err := c.InstallService.ReportOutcome(sessionID, body.Outcome); err != nil {
			c.Logger.WithSession(logging.ChannelPWA, sessionID).Debug("Install outcome ignored", "error", err.Error())
		}
	case messaging.InboundSkipWaiting:
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := c.ShellService.PostMessage(ctx, offline.MessageSkipWaiting); err != nil {
			c.Logger.WithSession(logging.ChannelCache, sessionID).Warn("Skip waiting failed", "error", err.Error())
		}
	default:
		c.Logger.WithSession(logging.ChannelRealtime, sessionID).Debug("Unknown inbound frame", "type", msg.Type)
	}
}

// EvictIdle releases per-visitor state not touched for idle.
func (c *Container) EvictIdle(idle time.Duration) (chats, trackers, installs int) {
	chats = c.ChatService.Evict(idle)
	trackers = c.AnalyticsService.Evict(idle)
	installs = c.InstallService.Evict(idle)
	return chats, trackers, installs
}

// Shutdown stops timers and waits for in-flight background work
func (c *Container) Shutdown() {
	c.ChatService.Close()
	c.InstallService.Close()
	c.AnalyticsService.Close()
	c.ShellService.Wait()
}

// Close releases storage connections
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
