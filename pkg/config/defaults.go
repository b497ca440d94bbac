// Package config provides centralized default values for the site shell
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), `"`)

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s (set)", key)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	valStr := os.Getenv(key)
	if strings.TrimSpace(valStr) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	CORSAllowedOrigins []string

	// Logging
	LogLevel     string
	LogJSON      bool
	LogToFile    bool
	LogDirectory string

	// Storage
	DatabasePath       string
	TursoDatabaseURL   string
	TursoAuthToken     string
	ClientStoreBackend string
	RedisURL           string
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	DBConnMaxLifetime  time.Duration
	SlowQueryThreshold time.Duration

	// Offline shell
	ShellOrigin        string
	CacheVersion       string
	CacheManifest      []string
	CacheAllowPatterns []string
	OfflinePage        string
	CacheAutoActivate  bool

	// Quick chat
	ChatReplyMinDelay  time.Duration
	ChatReplyMaxDelay  time.Duration
	ChatAutoOpenDelay  time.Duration
	EnableVoice        bool
	EnableMultilingual bool
	MediaDirectory     string
	MaxUploadBytes     int

	// Install banner
	InstallBannerDelay time.Duration

	// SessionIdleTimeout evicts per-visitor chat, analytics and install state
	SessionIdleTimeout time.Duration

	// Analytics
	AnalyticsEndpoint string
	HeatmapEndpoint   string
	GAMeasurementID   string
	GAAPISecret       string
	MetaPixelID       string
	MetaAccessToken   string
	EventBufferSize   int
	HeatmapFlushSize  int

	// Lead integrations
	SheetsEndpoint      string
	ResendAPIKey        string
	LeadEmailTo         string
	LeadEmailFrom       string
	LeadEmailFromName   string
	CRMType             string
	CRMAPIKey           string
	CRMBaseURL          string
	AssemblyAIAPIKey    string
	LeadRateLimit       int
	LeadRateLimitWindow time.Duration

	// Content and admin
	ContentFile   string
	AdminPassword string
	JWTSecret     string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	})

	// Logging
	LogLevel = getEnvString("LOG_LEVEL", "info")
	LogJSON = getEnvBool("LOG_JSON", true)
	LogToFile = getEnvBool("LOG_TO_FILE", false)
	LogDirectory = getEnvString("LOG_DIR", "logs")

	// Storage
	DatabasePath = getEnvString("DATABASE_PATH", "data/siteshell.db")
	TursoDatabaseURL = getEnvString("TURSO_DATABASE_URL", "")
	TursoAuthToken = getEnvString("TURSO_AUTH_TOKEN", "")
	ClientStoreBackend = getEnvString("CLIENT_STORE", "sqlite")
	RedisURL = getEnvString("REDIS_URL", "")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetime = time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 500*time.Millisecond)

	// Offline shell
	ShellOrigin = getEnvString("SHELL_ORIGIN", "")
	CacheVersion = getEnvString("CACHE_VERSION", "v1")
	CacheManifest = getEnvList("CACHE_MANIFEST", []string{
		"/",
		"/offline.html",
		"/manifest.json",
		"/favicon.ico",
	})
	CacheAllowPatterns = getEnvList("CACHE_ALLOW_PATTERNS", []string{
		`^https://api\.`,
		`^https://fonts\.googleapis\.com/`,
		`^https://fonts\.gstatic\.com/`,
		`^https://images\.unsplash\.com/`,
	})
	OfflinePage = getEnvString("OFFLINE_PAGE", "/offline.html")
	CacheAutoActivate = getEnvBool("CACHE_AUTO_ACTIVATE", true)

	// Quick chat
	ChatReplyMinDelay = getEnvDuration("CHAT_REPLY_MIN_DELAY", 1*time.Second)
	ChatReplyMaxDelay = getEnvDuration("CHAT_REPLY_MAX_DELAY", 2*time.Second)
	ChatAutoOpenDelay = getEnvDuration("CHAT_AUTO_OPEN_DELAY", 0)
	EnableVoice = getEnvBool("ENABLE_VOICE", false)
	EnableMultilingual = getEnvBool("ENABLE_MULTILINGUAL", false)
	MediaDirectory = getEnvString("MEDIA_DIR", "data/media")
	MaxUploadBytes = getEnvInt("MAX_UPLOAD_BYTES", 10<<20)

	// Install banner
	InstallBannerDelay = getEnvDuration("INSTALL_BANNER_DELAY", 30*time.Second)

	SessionIdleTimeout = getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute)

	// Analytics
	AnalyticsEndpoint = getEnvString("ANALYTICS_ENDPOINT", "")
	HeatmapEndpoint = getEnvString("HEATMAP_ENDPOINT", "")
	GAMeasurementID = getEnvString("GA_MEASUREMENT_ID", "")
	GAAPISecret = getEnvString("GA_API_SECRET", "")
	MetaPixelID = getEnvString("META_PIXEL_ID", "")
	MetaAccessToken = getEnvString("META_ACCESS_TOKEN", "")
	EventBufferSize = getEnvInt("ANALYTICS_EVENT_BUFFER", 100)
	HeatmapFlushSize = getEnvInt("HEATMAP_FLUSH_SIZE", 10)

	// Lead integrations
	SheetsEndpoint = getEnvString("SHEETS_ENDPOINT", "")
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	LeadEmailTo = getEnvString("LEAD_EMAIL_TO", "")
	LeadEmailFrom = getEnvString("LEAD_EMAIL_FROM", "noreply@example.com")
	LeadEmailFromName = getEnvString("LEAD_EMAIL_FROM_NAME", "Website")
	CRMType = getEnvString("CRM_TYPE", "")
	CRMAPIKey = getEnvString("CRM_API_KEY", "")
	CRMBaseURL = getEnvString("CRM_BASE_URL", "")
	AssemblyAIAPIKey = getEnvString("ASSEMBLYAI_API_KEY", "")
	LeadRateLimit = getEnvInt("LEAD_RATE_LIMIT", 3)
	LeadRateLimitWindow = getEnvDuration("LEAD_RATE_LIMIT_WINDOW", 5*time.Minute)

	// Content and admin
	ContentFile = getEnvString("CONTENT_FILE", "content/policies.yaml")
	AdminPassword = getEnvString("ADMIN_PASSWORD", "")
	JWTSecret = getEnvString("JWT_SECRET", "")
}
