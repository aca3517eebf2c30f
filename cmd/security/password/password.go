package password

import "strings"

// Hash validates password against the policy and encodes it with the
// configured scheme.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}
	switch c.Scheme {
	case SchemeBcrypt:
		return hashBcrypt(c.BcryptCost, password)
	case SchemeArgon2id, "":
		return hashArgon2id(c.Params, password)
	default:
		return "", ErrUnsupportedScheme
	}
}

// Verify checks whether password matches encoded.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed or unknown hashes.
func (c Config) Verify(encoded, password string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(c.Params, encoded, password)
	case isBcrypt(encoded):
		return verifyBcrypt(encoded, password)
	default:
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether encoded was produced by a different scheme or
// with weaker parameters than c.
func (c Config) NeedsRehash(encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		if c.Scheme == SchemeBcrypt {
			return true
		}
		p, _, _, err := decodeArgon2id(encoded)
		if err != nil {
			return true
		}
		return p.MemoryKiB < c.Params.MemoryKiB ||
			p.Iterations < c.Params.Iterations ||
			p.KeyLength < c.Params.KeyLength
	case isBcrypt(encoded):
		if c.Scheme != SchemeBcrypt {
			return true
		}
		return bcryptCost(encoded) < c.BcryptCost
	default:
		return true
	}
}
