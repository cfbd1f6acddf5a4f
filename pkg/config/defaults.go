// Package config provides centralized default values for mystory
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

			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			value = strings.Trim(strings.TrimSpace(value), `"'`)

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

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%g (default: %g)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, redact(key, val), redact(key, defaultValue))
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

func getEnvList(key string, defaultValue []string) []string {
	raw := getEnvString(key, strings.Join(defaultValue, ","))
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// redact keeps secrets out of the override log.
func redact(key, val string) string {
	if val == "" {
		return val
	}
	for _, marker := range []string{"PASS", "SECRET", "KEY", "HASH"} {
		if strings.Contains(key, marker) {
			return "****"
		}
	}
	return val
}

var (
	// Server Configuration
	Port              string
	GinMode           string
	ServerReadTimeout time.Duration
	ServerIdleTimeout time.Duration
	ShutdownTimeout   time.Duration
	CORSOrigins       []string

	// Content & Media
	ContentFile string
	StaticDir   string
	MediaDir    string
	MediaWarm   bool
	MediaWidths []int

	// Database
	DatabaseURL              string
	DatabaseAuthToken        string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	SlowQueryThreshold       time.Duration

	// Mail
	MailTransport          string
	EmailUser              string
	EmailPass              string
	SMTPHost               string
	SMTPPort               int
	SMTPInsecureSkipVerify bool
	ResendAPIKey           string
	ContactTo              string
	MailTimeout            time.Duration

	// Admin
	AdminPasswordHash string
	JWTSecret         string
	AdminTokenTTL     time.Duration

	// Experience sessions
	MaxExperienceSessions int
	WSWriteTimeout        time.Duration
	WSPingInterval        time.Duration

	// Scroll sync
	ScrollDebounce       time.Duration
	ScrollQuiet          time.Duration
	ScrollLock           time.Duration
	ScrollSettle         time.Duration
	ScrollSelectionReset time.Duration
	ScrollHeaderHeight   float64

	// Logging
	LogJSON   bool
	LogDir    string
	LogToFile bool
	LogLevel  string
)

func init() {
	Load()
}

// Load (re)reads every setting from the environment.
func Load() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	GinMode = getEnvString("GIN_MODE", "release")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	CORSOrigins = getEnvList("CORS_ORIGINS", []string{"http://localhost:8080"})

	// Content & Media
	ContentFile = getEnvString("CONTENT_FILE", "content/site.yaml")
	StaticDir = getEnvString("STATIC_DIR", "static")
	MediaDir = getEnvString("MEDIA_DIR", "media")
	MediaWarm = getEnvBool("MEDIA_WARM", false)
	MediaWidths = []int{
		getEnvInt("MEDIA_WIDTH_SMALL", 80),
		getEnvInt("MEDIA_WIDTH_MEDIUM", 160),
		getEnvInt("MEDIA_WIDTH_LARGE", 320),
	}

	// Database
	DatabaseURL = getEnvString("DATABASE_URL", "data/mystory.db")
	DatabaseAuthToken = getEnvString("DATABASE_AUTH_TOKEN", "")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 200*time.Millisecond)

	// Mail
	MailTransport = getEnvString("MAIL_TRANSPORT", "smtp")
	EmailUser = getEnvString("EMAIL_USER", "")
	EmailPass = getEnvString("EMAIL_PASS", "")
	SMTPHost = getEnvString("SMTP_HOST", "smtp.gmail.com")
	SMTPPort = getEnvInt("SMTP_PORT", 465)
	SMTPInsecureSkipVerify = getEnvBool("SMTP_INSECURE_SKIP_VERIFY", false)
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	ContactTo = getEnvString("CONTACT_TO", "")
	MailTimeout = getEnvDuration("MAIL_TIMEOUT", 20*time.Second)

	// Admin
	AdminPasswordHash = getEnvString("ADMIN_PASSWORD_HASH", "")
	JWTSecret = getEnvString("JWT_SECRET", "")
	AdminTokenTTL = getEnvDuration("ADMIN_TOKEN_TTL", 24*time.Hour)

	// Experience sessions
	MaxExperienceSessions = getEnvInt("MAX_EXPERIENCE_SESSIONS", 500)
	WSWriteTimeout = getEnvDuration("WS_WRITE_TIMEOUT", 10*time.Second)
	WSPingInterval = getEnvDuration("WS_PING_INTERVAL", 30*time.Second)

	// Scroll sync
	ScrollDebounce = getEnvDuration("SCROLL_DEBOUNCE", 50*time.Millisecond)
	ScrollQuiet = getEnvDuration("SCROLL_QUIET", 150*time.Millisecond)
	ScrollLock = getEnvDuration("SCROLL_LOCK", 1000*time.Millisecond)
	ScrollSettle = getEnvDuration("SCROLL_SETTLE", 1000*time.Millisecond)
	ScrollSelectionReset = getEnvDuration("SCROLL_SELECTION_RESET", 500*time.Millisecond)
	ScrollHeaderHeight = getEnvFloat("SCROLL_HEADER_HEIGHT", 96)

	// Logging
	LogJSON = getEnvBool("LOG_JSON", false)
	LogDir = getEnvString("LOG_DIR", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", false)
	LogLevel = getEnvString("LOG_LEVEL", "INFO")
}
