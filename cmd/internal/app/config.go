package app

import (
	"strings"
	"time"
)

// Refresh token backends selectable through AUTHGATE_REFRESH_BACKEND.
const (
	BackendAuto     = "auto"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config contains the process-level settings loaded from environment variables.
// Session and auth API settings are loaded by their own packages.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBMigrate   bool

	RedisURL    string
	RedisPrefix string

	RefreshBackend       string
	RefreshSweepInterval time.Duration

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool

	// If true, AUTHGATE_TOKEN_HMAC_KEY must be set and refresh tokens are stored as HMAC digests.
	RequireTokenHMAC bool
	TokenHMACKey     string

	AllowRoleSelfAssign bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("AUTHGATE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("AUTHGATE_LOG_LEVEL", "info"),
		LogFormat: EnvChoice("AUTHGATE_LOG_FORMAT", "json", "json", "pretty"),

		ReadHeaderTimeout: EnvDuration("AUTHGATE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("AUTHGATE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("AUTHGATE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("AUTHGATE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("AUTHGATE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("AUTHGATE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("AUTHGATE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("AUTHGATE_DB_MIN_CONNS", 0),
		DBMigrate:   EnvBool("AUTHGATE_DB_MIGRATE", true),

		RedisURL:    EnvString("AUTHGATE_REDIS_URL", ""),
		RedisPrefix: EnvString("AUTHGATE_REDIS_PREFIX", "refresh_tokens"),

		RefreshBackend:       EnvChoice("AUTHGATE_REFRESH_BACKEND", BackendAuto, BackendAuto, BackendRedis, BackendPostgres, BackendMemory),
		RefreshSweepInterval: EnvDuration("AUTHGATE_REFRESH_SWEEP_INTERVAL", 10*time.Minute),

		ReadinessRequireDB: EnvBool("AUTHGATE_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("AUTHGATE_REQUIRE_TOKEN_HMAC", false),
		TokenHMACKey:     EnvString("AUTHGATE_TOKEN_HMAC_KEY", ""),

		AllowRoleSelfAssign: EnvBool("AUTHGATE_ALLOW_ROLE_SELF_ASSIGN", false),

		CORSAllowedOrigins:   EnvList("AUTHGATE_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("AUTHGATE_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("AUTHGATE_CORS_MAX_AGE_SECONDS", 600),
	}
}

// refreshBackend resolves "auto" to a concrete backend: Redis when a URL is
// configured, then Postgres, then memory.
func (c Config) refreshBackend() string {
	b := strings.ToLower(strings.TrimSpace(c.RefreshBackend))
	if b != "" && b != BackendAuto {
		return b
	}
	switch {
	case c.RedisURL != "":
		return BackendRedis
	case c.DatabaseURL != "":
		return BackendPostgres
	default:
		return BackendMemory
	}
}
