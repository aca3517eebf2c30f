package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Scheme selects the algorithm used for new hashes.
type Scheme string

const (
	SchemeArgon2id Scheme = "argon2id"
	SchemeBcrypt   Scheme = "bcrypt"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	MaxLength int
	// RejectVeryWeak enables a minimal weak-pattern check.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Scheme     Scheme
	Params     Argon2idParams
	BcryptCost int
	Policy     Policy
}

// DefaultConfig returns the baseline used when no env overrides are present.
func DefaultConfig() Config {
	// Parallelism follows the CPU count, clamped to [1..4].
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Scheme: SchemeArgon2id,
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024, // 64 MiB
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		BcryptCost: bcrypt.DefaultCost,
		Policy: Policy{
			MinLength: 8,
			MaxLength: 256,
		},
	}
}

// FromEnv loads config from environment variables on top of DefaultConfig.
//
// Env surface:
//   - AUTHGATE_PASSWORD_SCHEME (argon2id|bcrypt)
//   - AUTHGATE_PASSWORD_MIN_LEN
//   - AUTHGATE_PASSWORD_MAX_LEN
//   - AUTHGATE_PASSWORD_REJECT_VERY_WEAK
//   - AUTHGATE_ARGON2_MEMORY_KIB
//   - AUTHGATE_ARGON2_ITERATIONS
//   - AUTHGATE_ARGON2_PARALLELISM
//   - AUTHGATE_ARGON2_SALT_LEN
//   - AUTHGATE_ARGON2_KEY_LEN
//   - AUTHGATE_BCRYPT_COST
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("AUTHGATE_PASSWORD_SCHEME"); ok {
		switch s := Scheme(strings.ToLower(strings.TrimSpace(v))); s {
		case SchemeArgon2id, SchemeBcrypt:
			cfg.Scheme = s
		default:
			return Config{}, fmt.Errorf("AUTHGATE_PASSWORD_SCHEME: %w", ErrUnsupportedScheme)
		}
	}

	ints := []struct {
		key      string
		min, max int
		dst      *int
	}{
		{"AUTHGATE_PASSWORD_MIN_LEN", 1, 1024, &cfg.Policy.MinLength},
		{"AUTHGATE_PASSWORD_MAX_LEN", 1, 4096, &cfg.Policy.MaxLength},
		{"AUTHGATE_BCRYPT_COST", bcrypt.MinCost, bcrypt.MaxCost, &cfg.BcryptCost},
	}
	for _, f := range ints {
		v, ok := os.LookupEnv(f.key)
		if !ok {
			continue
		}
		n, err := parseIntRange(v, f.min, f.max)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = n
	}

	u32s := []struct {
		key      string
		min, max uint32
		dst      *uint32
	}{
		{"AUTHGATE_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, &cfg.Params.MemoryKiB},
		{"AUTHGATE_ARGON2_ITERATIONS", 1, 20, &cfg.Params.Iterations},
		{"AUTHGATE_ARGON2_SALT_LEN", 8, 64, &cfg.Params.SaltLength},
		{"AUTHGATE_ARGON2_KEY_LEN", 16, 64, &cfg.Params.KeyLength},
	}
	for _, f := range u32s {
		v, ok := os.LookupEnv(f.key)
		if !ok {
			continue
		}
		u, err := parseU32Range(v, f.min, f.max)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = u
	}

	if v, ok := os.LookupEnv("AUTHGATE_ARGON2_PARALLELISM"); ok {
		u, err := parseU32Range(v, 1, math.MaxUint8)
		if err != nil {
			return Config{}, fmt.Errorf("AUTHGATE_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Params.Parallelism = uint8(u) // #nosec G115 -- bounded by parseU32Range.
	}

	if v, ok := os.LookupEnv("AUTHGATE_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("AUTHGATE_PASSWORD_REJECT_VERY_WEAK: invalid boolean")
		}
		cfg.Policy.RejectVeryWeak = b
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func parseIntRange(s string, minVal, maxVal int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n < minVal || n > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return n, nil
}

func parseU32Range(s string, minVal, maxVal uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}
