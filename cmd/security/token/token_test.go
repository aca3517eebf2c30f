package token

import (
	"errors"
	"testing"
)

func TestHasher_ModeSelection(t *testing.T) {
	t.Parallel()

	plain := NewHasher(nil)
	if plain.Keyed() {
		t.Fatalf("nil key must select SHA-256 mode")
	}
	if got, want := plain.Hex("abc"), HashSHA256Hex("abc"); got != want {
		t.Fatalf("plain.Hex()=%q want=%q", got, want)
	}

	key := []byte("0123456789abcdef0123456789abcdef")
	keyed := NewHasher(key)
	if !keyed.Keyed() {
		t.Fatalf("expected keyed hasher")
	}
	if got, want := keyed.Hex("abc"), HashHMACSHA256Hex("abc", key); got != want {
		t.Fatalf("keyed.Hex()=%q want=%q", got, want)
	}
	if keyed.Hex("abc") == plain.Hex("abc") {
		t.Fatalf("keyed and plain digests must differ")
	}
	if n := len(keyed.Hex("abc")); n != 64 {
		t.Fatalf("digest length=%d want 64", n)
	}
}

func TestHasher_CopiesKey(t *testing.T) {
	t.Parallel()

	key := []byte("0123456789abcdef0123456789abcdef")
	h := NewHasher(key)
	before := h.Hex("tok")
	key[0] = 'X'
	if h.Hex("tok") != before {
		t.Fatalf("hasher must not alias caller key")
	}
}

func TestParseHMACKey(t *testing.T) {
	t.Parallel()

	if _, err := ParseHMACKey("   ", 32); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}
	if _, err := ParseHMACKey("short", 32); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}
	b, err := ParseHMACKey("  0123456789abcdef0123456789abcdef  ", 32)
	if err != nil {
		t.Fatalf("ParseHMACKey: %v", err)
	}
	if len(b) != 32 {
		t.Fatalf("len=%d want 32", len(b))
	}
}
