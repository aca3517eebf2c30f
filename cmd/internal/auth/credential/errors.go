package credential

import (
	"errors"
	"fmt"
)

// Kind classifies why a credential failed verification.
// The set is closed; callers switch on it or use errors.Is with the sentinels.
type Kind uint8

const (
	KindInvalidSignature Kind = iota + 1
	KindMalformed
	KindExpired
	KindUnsupportedAlgorithm
	KindEmptyClaims
)

var (
	ErrInvalidSignature     = errors.New("credential: invalid signature")
	ErrMalformed            = errors.New("credential: malformed")
	ErrExpired              = errors.New("credential: expired")
	ErrUnsupportedAlgorithm = errors.New("credential: unsupported algorithm")
	ErrEmptyClaims          = errors.New("credential: empty claims")

	// ErrConfig is returned by NewSigner for an unusable secret or lifetime.
	ErrConfig = errors.New("credential: invalid config")
)

func (k Kind) String() string {
	switch k {
	case KindInvalidSignature:
		return "invalid_signature"
	case KindMalformed:
		return "malformed"
	case KindExpired:
		return "expired"
	case KindUnsupportedAlgorithm:
		return "unsupported_algorithm"
	case KindEmptyClaims:
		return "empty_claims"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidSignature:
		return ErrInvalidSignature
	case KindExpired:
		return ErrExpired
	case KindUnsupportedAlgorithm:
		return ErrUnsupportedAlgorithm
	case KindEmptyClaims:
		return ErrEmptyClaims
	default:
		return ErrMalformed
	}
}

// Error is the verification failure returned by Signer.Verify.
type Error struct {
	Kind Kind
	// Err is the underlying parser error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind.sentinel(), e.Err)
}

// Unwrap exposes both the Kind sentinel and the parser error to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// KindOf extracts the Kind from err, or 0 when err is not a verification error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}
