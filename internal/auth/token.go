package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contentdeck/apiserver/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	// ErrMissingSecret is returned at startup when no signing secret is configured.
	ErrMissingSecret = errors.New("JWT_SECRET is required")

	// ErrInvalidToken is the single outcome of every failed verification.
	ErrInvalidToken = apperr.New(apperr.KindAuthentication, "invalid token")
)

// Reason records why a token was rejected. It is for logs only.
type Reason string

const (
	ReasonMalformed    Reason = "malformed"
	ReasonBadSignature Reason = "bad_signature"
	ReasonExpired      Reason = "expired"
)

// TokenError is returned by Verify. It wraps ErrInvalidToken so callers only
// see the single invalid token outcome.
type TokenError struct {
	Reason Reason
	Err    error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("invalid token (%s): %v", e.Reason, e.Err)
}

func (e *TokenError) Unwrap() []error {
	return []error{ErrInvalidToken, e.Err}
}

// Claim is the verified identity carried by a token.
type Claim struct {
	UserID    int
	Username  string
	ExpiresAt time.Time
}

type tokenClaims struct {
	UserID   int    `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService returns a service signing with secret. A ttl <= 0 uses DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for the given user.
func (s *TokenService) Issue(userID int, username string) (string, error) {
	now := s.now()
	claims := tokenClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify decodes tokenString and checks its signature and expiry.
func (s *TokenService) Verify(tokenString string) (Claim, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claim{}, &TokenError{Reason: reasonFor(err), Err: err}
	}
	if !token.Valid {
		return Claim{}, &TokenError{Reason: ReasonMalformed, Err: errors.New("token not valid")}
	}
	if claims.UserID < 1 || strings.TrimSpace(claims.Username) == "" {
		return Claim{}, &TokenError{Reason: ReasonMalformed, Err: errors.New("missing identity")}
	}

	return Claim{
		UserID:    claims.UserID,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonBadSignature
	default:
		return ReasonMalformed
	}
}
