package session

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

var sessionEnvKeys = []string{
	"AUTHGATE_JWT_SECRET",
	"AUTHGATE_JWT_ISSUER",
	"AUTHGATE_ACCESS_TTL",
	"AUTHGATE_REFRESH_TTL",
	"AUTHGATE_STORE_TIMEOUT",
	"AUTHGATE_REFRESH_TOKEN_BYTES",
	"AUTHGATE_REFRESH_SINGLE_USE",
}

func clearSessionEnv(t *testing.T) {
	t.Helper()
	for _, k := range sessionEnvKeys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func setValidEnv(t *testing.T) {
	t.Helper()
	clearSessionEnv(t)
	t.Setenv("AUTHGATE_JWT_SECRET", strings.Repeat("k", 48))
	t.Setenv("AUTHGATE_ACCESS_TTL", "15m")
	t.Setenv("AUTHGATE_REFRESH_TTL", "720h")
}

func TestLoadConfigFromEnv_RequiredKeys(t *testing.T) {
	for _, key := range []string{"AUTHGATE_JWT_SECRET", "AUTHGATE_ACCESS_TTL", "AUTHGATE_REFRESH_TTL"} {
		t.Run(key, func(t *testing.T) {
			setValidEnv(t)
			_ = os.Unsetenv(key)

			_, err := LoadConfigFromEnv()
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig when %s is missing, got %v", key, err)
			}
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("error should name %s: %v", key, err)
			}
		})
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"AUTHGATE_JWT_SECRET":          "too-short",
		"AUTHGATE_ACCESS_TTL":          "-5m",
		"AUTHGATE_REFRESH_TTL":         "soon",
		"AUTHGATE_STORE_TIMEOUT":       "0s",
		"AUTHGATE_REFRESH_TOKEN_BYTES": "16",
		"AUTHGATE_REFRESH_SINGLE_USE":  "maybe",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			setValidEnv(t)
			t.Setenv(key, val)

			if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig for %s=%q, got %v", key, val, err)
			}
		})
	}
}

func TestLoadConfigFromEnv_Valid(t *testing.T) {
	setValidEnv(t)
	t.Setenv("AUTHGATE_JWT_ISSUER", "authgate-test")
	t.Setenv("AUTHGATE_STORE_TIMEOUT", "750ms")
	t.Setenv("AUTHGATE_REFRESH_TOKEN_BYTES", "48")
	t.Setenv("AUTHGATE_REFRESH_SINGLE_USE", "true")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Secret) != 48 {
		t.Fatalf("secret length mismatch: %d", len(cfg.Secret))
	}
	if cfg.Issuer != "authgate-test" {
		t.Fatalf("issuer mismatch: %q", cfg.Issuer)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("access ttl mismatch: %v", cfg.AccessTTL)
	}
	if cfg.RefreshTTL != 720*time.Hour {
		t.Fatalf("refresh ttl mismatch: %v", cfg.RefreshTTL)
	}
	if cfg.StoreTimeout != 750*time.Millisecond {
		t.Fatalf("store timeout mismatch: %v", cfg.StoreTimeout)
	}
	if cfg.RefreshTokenBytes != 48 {
		t.Fatalf("refresh token bytes mismatch: %d", cfg.RefreshTokenBytes)
	}
	if !cfg.RefreshSingleUse {
		t.Fatal("single use should be enabled")
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoreTimeout != 2*time.Second || cfg.RefreshTokenBytes != 32 || cfg.RefreshSingleUse || cfg.Issuer != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
