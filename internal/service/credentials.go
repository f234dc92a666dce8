// Package service holds the application logic that sits between the HTTP
// handlers and the repositories: bearer-token credentials, the ticket
// relationship manager and domain event publication.
package service

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/mechanic-shop/internal/config"
)

// Credential failures.  The auth middleware answers all three with 403.
var (
	ErrTokenMissing = errors.New("token missing")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Token is a signed bearer credential and its expiry.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CredentialService issues and validates HS256 bearer tokens bound to a
// customer id.  It is built once at startup and safe for concurrent use.
type CredentialService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCredentialService builds a service from the auth configuration.
func NewCredentialService(cfg config.AuthConfig) *CredentialService {
	return &CredentialService{secret: []byte(cfg.JWTSecret), ttl: cfg.TokenTTL, now: time.Now}
}

// WithClock returns a copy of s that reads the time from now.  Tests use it
// to mint tokens in the past.
func (s *CredentialService) WithClock(now func() time.Time) *CredentialService {
	cp := *s
	cp.now = now
	return &cp
}

// IssueToken signs a token whose subject is the string-encoded customer id.
func (s *CredentialService) IssueToken(customerID uint64) (Token, error) {
	iat := s.now().UTC().Truncate(time.Second)
	exp := iat.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(customerID, 10),
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// ValidateToken verifies signature and expiry and returns the subject.  It
// never touches storage, so a token for a deleted customer still validates.
func (s *CredentialService) ValidateToken(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrTokenMissing
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.  The scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrTokenMissing
	}
	return strings.TrimSpace(token), nil
}
