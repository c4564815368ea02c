package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Journal   JournalConfig
	SiteSync  SiteSyncConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

type AuthConfig struct {
	// JWTSecret signs and verifies HS256 bearer tokens
	JWTSecret string
	// Issuer is the expected iss claim
	Issuer string
	// AccessTokenTTL is the lifetime of issued credentials
	AccessTokenTTL time.Duration
	// RefreshThreshold: credentials with less remaining validity are re-issued
	RefreshThreshold time.Duration
	// RevocationSweep is the interval of the revocation store cleanup timer
	RevocationSweep time.Duration
	// RevocationPolicy: "blanket" clears the whole set on each sweep,
	// "per-entry" prunes only entries whose credential expiry has passed
	RevocationPolicy string
}

type RateLimitConfig struct {
	// Window is the sliding window length shared by every route class
	Window time.Duration
	// SweepInterval drives the background cleanup of idle counter keys
	SweepInterval time.Duration
	// PreAuthRPS / PreAuthBurst configure the coarse per-IP limiter that
	// fronts the pipeline before authentication
	PreAuthRPS   int
	PreAuthBurst int
}

type JournalConfig struct {
	// Backend selects the decision recorder: "postgres" or "kurrentdb"
	Backend   string
	KurrentDB KurrentDBConfig
}

// KurrentDBConfig holds connection settings for the KurrentDB journal backend.
type KurrentDBConfig struct {
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
}

// ConnectionString returns the esdb:// connection string for the EventStore client.
func (c KurrentDBConfig) ConnectionString() string {
	var auth string
	if c.Username != "" && c.Password != "" {
		auth = fmt.Sprintf("%s:%s@", c.Username, c.Password)
	}
	var tls string
	if c.Insecure {
		tls = "?tls=false"
	}
	return fmt.Sprintf("esdb://%s%s:%d%s", auth, c.Host, c.Port, tls)
}

// SiteSyncConfig configures the legacy site database polling adapter.
type SiteSyncConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	CardTable    string
	PollInterval time.Duration
	// APIToken authenticates site clients as the external API pseudo-role
	APIToken string
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "gescard"),
			Password: getEnv("DB_PASSWORD", "gescard"),
			Database: getEnv("DB_NAME", "gescard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:        getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			Issuer:           getEnv("JWT_ISSUER", "gescard"),
			AccessTokenTTL:   getEnvDuration("AUTH_ACCESS_TTL", 8*time.Hour),
			RefreshThreshold: getEnvDuration("AUTH_REFRESH_THRESHOLD", 30*time.Minute),
			RevocationSweep:  getEnvDuration("AUTH_REVOCATION_SWEEP", time.Hour),
			RevocationPolicy: getEnv("AUTH_REVOCATION_POLICY", "blanket"),
		},
		RateLimit: RateLimitConfig{
			Window:        getEnvDuration("RATELIMIT_WINDOW", time.Minute),
			SweepInterval: getEnvDuration("RATELIMIT_SWEEP", 5*time.Minute),
			PreAuthRPS:    getEnvInt("RATELIMIT_PREAUTH_RPS", 50),
			PreAuthBurst:  getEnvInt("RATELIMIT_PREAUTH_BURST", 100),
		},
		Journal: JournalConfig{
			Backend: getEnv("JOURNAL_BACKEND", "postgres"),
			KurrentDB: KurrentDBConfig{
				Host:     getEnv("KURRENTDB_HOST", "localhost"),
				Port:     getEnvInt("KURRENTDB_PORT", 2113),
				Insecure: getEnvBool("KURRENTDB_INSECURE", true),
				Username: getEnv("KURRENTDB_USERNAME", ""),
				Password: getEnv("KURRENTDB_PASSWORD", ""),
			},
		},
		SiteSync: SiteSyncConfig{
			Enabled:      getEnvBool("SITESYNC_ENABLED", false),
			Host:         getEnv("SITESYNC_DB_HOST", "localhost"),
			Port:         getEnvInt("SITESYNC_DB_PORT", 1433),
			Database:     getEnv("SITESYNC_DB_NAME", "gescard_site"),
			User:         getEnv("SITESYNC_DB_USER", "sa"),
			Password:     getEnv("SITESYNC_DB_PASSWORD", ""),
			CardTable:    getEnv("SITESYNC_CARD_TABLE", "dbo.Cartes"),
			PollInterval: getEnvDuration("SITESYNC_POLL_INTERVAL", 5*time.Minute),
			APIToken:     getEnv("SITESYNC_API_TOKEN", ""),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
