package session

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"authgate/cmd/internal/auth/credential"
	"authgate/cmd/internal/auth/refresh"
)

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// Secret is the HMAC key for access credentials.
	Secret []byte

	// Issuer is the "iss" claim; empty disables it.
	Issuer string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// StoreTimeout bounds every refresh store call.
	StoreTimeout time.Duration

	// RefreshTokenBytes is the random length of refresh tokens.
	RefreshTokenBytes int

	// RefreshSingleUse deletes a handle once it has been redeemed.
	RefreshSingleUse bool
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - AUTHGATE_JWT_SECRET (at least 32 bytes)
//   - AUTHGATE_ACCESS_TTL
//   - AUTHGATE_REFRESH_TTL
//
// Optional:
//   - AUTHGATE_JWT_ISSUER
//   - AUTHGATE_STORE_TIMEOUT (default 2s)
//   - AUTHGATE_REFRESH_TOKEN_BYTES (32-64, default 32)
//   - AUTHGATE_REFRESH_SINGLE_USE (default false)
//
// Errors wrap ErrConfig and name the offending variable.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		StoreTimeout:      refresh.DefaultTimeout,
		RefreshTokenBytes: refresh.DefaultTokenBytes,
	}

	secret := strings.TrimSpace(os.Getenv("AUTHGATE_JWT_SECRET"))
	switch {
	case secret == "":
		return Config{}, missing("AUTHGATE_JWT_SECRET")
	case len(secret) < credential.MinSecretBytes:
		return Config{}, fmt.Errorf("%w: AUTHGATE_JWT_SECRET must be at least %d bytes", ErrConfig, credential.MinSecretBytes)
	}
	cfg.Secret = []byte(secret)

	var err error
	if cfg.AccessTTL, err = requiredDuration("AUTHGATE_ACCESS_TTL"); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = requiredDuration("AUTHGATE_REFRESH_TTL"); err != nil {
		return Config{}, err
	}

	cfg.Issuer = strings.TrimSpace(os.Getenv("AUTHGATE_JWT_ISSUER"))

	if v := strings.TrimSpace(os.Getenv("AUTHGATE_STORE_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, invalid("AUTHGATE_STORE_TIMEOUT")
		}
		cfg.StoreTimeout = d
	}

	if v := strings.TrimSpace(os.Getenv("AUTHGATE_REFRESH_TOKEN_BYTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < refresh.MinTokenBytes || n > refresh.MaxTokenBytes {
			return Config{}, invalid("AUTHGATE_REFRESH_TOKEN_BYTES")
		}
		cfg.RefreshTokenBytes = n
	}

	if v := strings.TrimSpace(os.Getenv("AUTHGATE_REFRESH_SINGLE_USE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, invalid("AUTHGATE_REFRESH_SINGLE_USE")
		}
		cfg.RefreshSingleUse = b
	}

	return cfg, nil
}

func requiredDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, missing(key)
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < time.Second {
		return 0, invalid(key)
	}
	return d, nil
}

func missing(key string) error { return fmt.Errorf("%w: %s is required", ErrConfig, key) }

func invalid(key string) error { return fmt.Errorf("%w: %s is invalid", ErrConfig, key) }
