package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// RateLimitPerMinute and RateLimitBurst bound signin/register/refresh
	// requests per client IP. A zero rate disables limiting.
	RateLimitPerMinute int
	RateLimitBurst     int
	// RateLimitIdleTTL drops per-IP state after this much inactivity.
	RateLimitIdleTTL time.Duration
}

// DefaultConfig returns the auth API defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:       1 << 20, // 1 MiB
		RateLimitPerMinute: 30,
		RateLimitBurst:     10,
		RateLimitIdleTTL:   10 * time.Minute,
	}
}

// LoadConfigFromEnv loads auth API config from environment variables with safe defaults.
//
//   - AUTHGATE_AUTH_TRUST_PROXY
//   - AUTHGATE_AUTH_MAX_BODY_BYTES
//   - AUTHGATE_AUTH_RATE_PER_MINUTE (0 disables)
//   - AUTHGATE_AUTH_RATE_BURST
//   - AUTHGATE_AUTH_RATE_IDLE_TTL
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		TrustProxy:         envBool("AUTHGATE_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:       envInt64("AUTHGATE_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		RateLimitPerMinute: envInt("AUTHGATE_AUTH_RATE_PER_MINUTE", def.RateLimitPerMinute),
		RateLimitBurst:     envInt("AUTHGATE_AUTH_RATE_BURST", def.RateLimitBurst),
		RateLimitIdleTTL:   envDuration("AUTHGATE_AUTH_RATE_IDLE_TTL", def.RateLimitIdleTTL),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.RateLimitPerMinute < 0 {
		cfg.RateLimitPerMinute = def.RateLimitPerMinute
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = def.RateLimitBurst
	}

	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
