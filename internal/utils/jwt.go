package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA‑256 hashing for refresh tokens
	"encoding/hex"  // hex encoding and decoding functions
	"errors"
	"strings"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Verification failures.  Every other parsing problem is reported as
// ErrTokenMalformed.
var (
	ErrTokenMalformed        = errors.New("malformed token")
	ErrTokenInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired          = errors.New("token expired")
)

// TokenService signs and verifies HS256 tokens of the form
// base64url(header).base64url(payload).base64url(signature).  The secret is
// supplied once at construction; there is no key rotation and HS256 is the
// only accepted algorithm.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService returns a TokenService signing with secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), now: time.Now}
}

// WithClock replaces the time source.  It is used by tests to move past
// the expiry of a token.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs payload with an `exp` claim set ttl from now.  The payload
// map is not modified.
func (s *TokenService) Issue(payload map[string]any, ttl time.Duration) (string, time.Time, error) {
	exp := s.now().UTC().Add(ttl)
	claims := make(jwt.MapClaims, len(payload)+1)
	for k, v := range payload {
		claims[k] = v
	}
	claims["exp"] = exp.Unix()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks the signature and expiry of raw and returns its payload,
// `exp` included.  Numbers come back as float64, as decoded by encoding/json.
func (s *TokenService) Verify(raw string) (map[string]any, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, ErrTokenMalformed
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ErrTokenInvalidSignature
	default:
		return nil, ErrTokenMalformed
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, ErrTokenMalformed
	}
	return map[string]any(claims), nil
}

// AccessToken represents a signed access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized token string
	Exp   time.Time // the UTC expiration time
}

// AccessClaims are the identity claims carried by an access token.
type AccessClaims struct {
	UserID uint64
	Role   string
	Exp    time.Time
}

// IssueAccess builds an access token carrying user_id and role.
func (s *TokenService) IssueAccess(userID uint64, role string, ttl time.Duration) (AccessToken, error) {
	signed, exp, err := s.Issue(map[string]any{
		"user_id": userID,
		"role":    role,
	}, ttl)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccess verifies raw and extracts the identity claims.  A token
// without a positive user_id or a role is malformed.
func (s *TokenService) ParseAccess(raw string) (AccessClaims, error) {
	payload, err := s.Verify(raw)
	if err != nil {
		return AccessClaims{}, err
	}
	uid, ok := payload["user_id"].(float64)
	if !ok || uid < 1 {
		return AccessClaims{}, ErrTokenMalformed
	}
	role, ok := payload["role"].(string)
	if !ok || role == "" {
		return AccessClaims{}, ErrTokenMalformed
	}
	exp, _ := payload["exp"].(float64)
	return AccessClaims{
		UserID: uint64(uid),
		Role:   role,
		Exp:    time.Unix(int64(exp), 0).UTC(),
	}, nil
}

// RefreshToken represents a long‑lived token used to obtain new access tokens.
// The Raw field contains the raw token string returned to the client.  In the
// database only a SHA‑256 hash of the raw string is stored.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// NewRefreshToken returns a 256-bit random token, hex encoded, expiring
// ttl after now.
func NewRefreshToken(now time.Time, ttl time.Duration) (RefreshToken, error) {
	raw, err := randomHex(32) // 32 bytes -> 64 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: raw, Exp: now.UTC().Add(ttl)}, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
