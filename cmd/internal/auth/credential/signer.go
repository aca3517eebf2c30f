// Package credential issues and verifies signed access credentials (JWT, HS512).
//
// The signing secret is fixed at construction and never changes afterwards.
// Timestamps are whole seconds; a credential is expired once exp <= now.
package credential

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the smallest accepted HMAC secret.
const MinSecretBytes = 32

// Credential is an issued access token and the claims it carries.
type Credential struct {
	Token     string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Config configures a Signer.
type Config struct {
	Secret    []byte
	AccessTTL time.Duration
	// Issuer is set as "iss" and required on verify when non-empty.
	Issuer string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Signer creates and verifies access credentials.
type Signer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	method jwt.SigningMethod
}

// NewSigner validates cfg and returns a Signer.
func NewSigner(cfg Config) (*Signer, error) {
	if len(cfg.Secret) < MinSecretBytes || cfg.AccessTTL < time.Second {
		return nil, ErrConfig
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Signer{
		secret: secret,
		ttl:    cfg.AccessTTL,
		issuer: cfg.Issuer,
		now:    now,
		method: jwt.SigningMethodHS512,
	}, nil
}

// TTL returns the configured access lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }

// registered claim names that extra claims may not override.
var reservedClaims = map[string]struct{}{
	"sub": {}, "iat": {}, "exp": {}, "iss": {}, "nbf": {}, "jti": {}, "aud": {},
}

// Issue signs a credential for subject with iat = now and exp = now + TTL.
func (s *Signer) Issue(subject string, extra map[string]any) (Credential, error) {
	if strings.TrimSpace(subject) == "" {
		return Credential{}, &Error{Kind: KindEmptyClaims}
	}

	iat := s.now().UTC().Truncate(time.Second)
	exp := iat.Add(s.ttl)

	claims := jwt.MapClaims{}
	for k, v := range extra {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		claims[k] = v
	}
	claims["sub"] = subject
	claims["iat"] = jwt.NewNumericDate(iat)
	claims["exp"] = jwt.NewNumericDate(exp)
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return Credential{}, err
	}

	return Credential{
		Token:     signed,
		Subject:   subject,
		IssuedAt:  iat,
		ExpiresAt: exp,
	}, nil
}

var errAlgorithmRejected = errors.New("algorithm not accepted")

// Verify checks signature, algorithm and expiry, and returns the subject.
// Failures are always *Error.
func (s *Signer) Verify(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &Error{Kind: KindEmptyClaims}
	}

	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(text, &claims, func(t *jwt.Token) (any, error) {
		if t.Method == nil || t.Method.Alg() != s.method.Alg() {
			return nil, errAlgorithmRejected
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		kind := classify(err)
		if kind == KindMalformed && badSignatureSegment(text) {
			kind = KindInvalidSignature
		}
		return "", &Error{Kind: kind, Err: err}
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return "", &Error{Kind: KindEmptyClaims}
	}
	return claims.Subject, nil
}

var segmentEncoding = base64.RawURLEncoding.Strict()

// badSignatureSegment reports a well-formed header and payload followed by a
// signature segment that is not canonical base64url, e.g. an altered last character.
func badSignatureSegment(text string) bool {
	parts := strings.Split(text, ".")
	if len(parts) != 3 {
		return false
	}
	for _, seg := range parts[:2] {
		if _, err := segmentEncoding.DecodeString(seg); err != nil {
			return false
		}
	}
	_, err := segmentEncoding.DecodeString(parts[2])
	return err != nil
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, errAlgorithmRejected), errors.Is(err, jwt.ErrTokenUnverifiable):
		return KindUnsupportedAlgorithm
	case errors.Is(err, jwt.ErrTokenMalformed):
		return KindMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
		return KindInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return KindExpired
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return KindEmptyClaims
	default:
		return KindMalformed
	}
}
