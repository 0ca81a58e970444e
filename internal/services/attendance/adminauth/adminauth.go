// Package adminauth issues and verifies the admin session token.
//
// There is a single admin role guarded by a shared password. A successful
// login yields an HS256 JWT that the HTTP layer stores in an HTTP-only cookie.
package adminauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/ignitehq/attendance/internal/platform/errors"
	"github.com/ignitehq/attendance/internal/platform/id"
)

const (
	// CookieName is the cookie carrying the admin token.
	CookieName = "admin_token"
	// DefaultTTL is the lifetime of an admin token.
	DefaultTTL = 24 * time.Hour

	tokenIssuer  = "attendance"
	tokenSubject = "admin"
)

// Config defines how admin tokens are issued and verified.
type Config struct {
	// Password is the shared admin secret.
	Password string
	// SigningKey signs tokens. Empty derives a key from Password.
	SigningKey []byte
	TTL        time.Duration
	Now        func() time.Time
}

// Token is an issued admin token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Claims captures validated admin token claims.
type Claims struct {
	Subject   string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Authenticator checks the admin password and manages tokens.
type Authenticator struct {
	passwordDigest [sha256.Size]byte
	key            []byte
	ttl            time.Duration
	now            func() time.Time
}

// New builds an Authenticator.
func New(cfg Config) (*Authenticator, error) {
	password := strings.TrimSpace(cfg.Password)
	if password == "" {
		return nil, fmt.Errorf("admin password is required")
	}
	key := cfg.SigningKey
	if len(key) == 0 {
		derived := sha256.Sum256([]byte("attendance admin token:" + password))
		key = derived[:]
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Authenticator{
		passwordDigest: sha256.Sum256([]byte(password)),
		key:            key,
		ttl:            ttl,
		now:            now,
	}, nil
}

// TTL returns the token lifetime.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// CheckPassword compares candidate with the admin password in constant time.
func (a *Authenticator) CheckPassword(candidate string) bool {
	digest := sha256.Sum256([]byte(strings.TrimSpace(candidate)))
	return subtle.ConstantTimeCompare(digest[:], a.passwordDigest[:]) == 1
}

// Login issues a token when password matches.
func (a *Authenticator) Login(password string) (Token, error) {
	if !a.CheckPassword(password) {
		return Token{}, apperrors.New(apperrors.CodeUnauthorized, "invalid admin password")
	}
	return a.Issue()
}

// Issue signs a fresh admin token.
func (a *Authenticator) Issue() (Token, error) {
	tokenID, err := id.NewID()
	if err != nil {
		return Token{}, err
	}
	now := a.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(a.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   tokenSubject,
		ID:        tokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(a.key)
	if err != nil {
		return Token{}, fmt.Errorf("sign admin token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Validate verifies signature, issuer, subject and expiry of an admin token.
func (a *Authenticator) Validate(value string) (Claims, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Claims{}, apperrors.New(apperrors.CodeUnauthorized, "admin token is required")
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(value, &parsed, func(token *jwt.Token) (any, error) {
		return a.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer != tokenIssuer || parsed.Subject != tokenSubject {
		return Claims{}, apperrors.New(apperrors.CodeUnauthorized, "admin token subject mismatch")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeUnauthorized, "admin token exp is required")
	}
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(a.now().UTC()) {
		return Claims{}, apperrors.New(apperrors.CodeUnauthorized, "admin token is expired")
	}

	claims := Claims{
		Subject:   parsed.Subject,
		TokenID:   parsed.ID,
		ExpiresAt: exp,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.New(apperrors.CodeUnauthorized, "admin token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeUnauthorized, "admin token alg is invalid")
	}
	return apperrors.Wrap(apperrors.CodeUnauthorized, "admin token is malformed", err)
}
