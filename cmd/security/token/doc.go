// Package token provides digest primitives for opaque bearer values.
//
// Refresh tokens are never used as storage keys directly. Callers hash them
// with a Hasher, which is HMAC-SHA256 when a key is configured and plain
// SHA-256 otherwise. Output is always 64 lowercase hex characters.
package token
