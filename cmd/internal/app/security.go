package app

import (
	"errors"
	"fmt"

	"authgate/cmd/security/token"
)

// minTokenHMACKeyBytes is the smallest accepted AUTHGATE_TOKEN_HMAC_KEY.
const minTokenHMACKeyBytes = 32

// ValidateSecurityConfig enforces the token hashing policy at startup and returns
// the hasher used for refresh token digests.
//
// A configured key always selects HMAC mode. Without a key the hasher falls back
// to SHA-256 unless AUTHGATE_REQUIRE_TOKEN_HMAC is set.
func ValidateSecurityConfig(cfg Config) (token.Hasher, error) {
	key, err := token.ParseHMACKey(cfg.TokenHMACKey, minTokenHMACKeyBytes)
	switch {
	case errors.Is(err, token.ErrHMACKeyMissing):
		if cfg.RequireTokenHMAC {
			return token.Hasher{}, errors.New("security policy: AUTHGATE_REQUIRE_TOKEN_HMAC=true but AUTHGATE_TOKEN_HMAC_KEY is missing")
		}
		return token.NewHasher(nil), nil
	case errors.Is(err, token.ErrHMACKeyTooShort):
		return token.Hasher{}, fmt.Errorf("security policy: AUTHGATE_TOKEN_HMAC_KEY is too short (min %d bytes)", minTokenHMACKeyBytes)
	case err != nil:
		return token.Hasher{}, err
	}

	h := token.NewHasher(key)
	if cfg.RequireTokenHMAC && !h.Keyed() {
		return token.Hasher{}, errors.New("security policy: AUTHGATE_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}
	return h, nil
}
