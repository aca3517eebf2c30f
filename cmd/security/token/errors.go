package token

import "errors"

// Key errors returned by ParseHMACKey. Callers match them with errors.Is to
// tell a missing AUTHGATE_TOKEN_HMAC_KEY from a weak one.
var (
	ErrHMACKeyMissing  = errors.New("token: hmac key is not set")
	ErrHMACKeyTooShort = errors.New("token: hmac key is shorter than the required minimum")
)
