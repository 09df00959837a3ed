package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the token fields spec.md §4.8 names: subject id, email,
// roles, issued-at, expiry. Grounded on the teacher's domain.TokenClaims
// shape (internal/service/jwt_service.go), generalized from a bare
// UserID/Email pair to the role-bearing claims set the security
// interceptor's role check needs.
type Claims struct {
	Subject string   `json:"sub"`
	Email   string   `json:"email"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token carries the given role.
func (c *Claims) HasRole(role Role) bool {
	for _, r := range c.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

var (
	ErrMissingToken = errors.New("security: missing bearer token")
	ErrInvalidToken = errors.New("security: invalid or expired token")
)

// TokenService issues and validates HS256 JWTs. The teacher's go.mod
// declares golang-jwt/jwt/v5 but its own bespoke pkg/jwt sub-package was
// absent from the copied tree (an import with no matching directory) —
// treated as a hole to fill with the real dependency rather than a reason
// to drop it, so this is that sub-package, built directly on jwt/v5.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService signing with secret and issuing
// tokens valid for ttl.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed access token for the given subject/email/roles.
func (s *TokenService) Issue(subject, email string, roles []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Subject: subject,
		Email:   email,
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Subject:   subject,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("security: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies token, checking signature and expiry.
func (s *TokenService) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("security: unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractBearer reads the bearer token out of an Authorization header
// value, per spec.md §4.8 "extract the bearer token from the Authorization
// header".
func ExtractBearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", false
	}
	return header[len(prefix):], true
}
