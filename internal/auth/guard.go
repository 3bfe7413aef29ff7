package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/contentdeck/apiserver/internal/apperr"
)

// ErrTokenRequired is returned when a protected request carries no credentials.
var ErrTokenRequired = apperr.New(apperr.KindAuthentication, "access token required")

var errBadScheme = errors.New("authorization scheme is not bearer")

// Verifier checks a raw token and returns its claim.
type Verifier interface {
	Verify(token string) (Claim, error)
}

// Guard turns an Authorization header into a Claim.
type Guard struct {
	tokens Verifier
}

func NewGuard(tokens Verifier) *Guard {
	return &Guard{tokens: tokens}
}

// Authenticate returns ErrTokenRequired for an empty header and an error
// matching ErrInvalidToken for anything that does not verify.
func (g *Guard) Authenticate(header string) (Claim, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Claim{}, ErrTokenRequired
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 1 && strings.EqualFold(parts[0], "Bearer") {
		return Claim{}, ErrTokenRequired
	}
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Claim{}, &TokenError{Reason: ReasonMalformed, Err: errBadScheme}
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return Claim{}, ErrTokenRequired
	}

	return g.tokens.Verify(token)
}

// Owns reports whether the claim's user owns a record stored with ownerID.
func Owns(claim Claim, ownerID int) bool {
	return claim.UserID > 0 && claim.UserID == ownerID
}

type contextKey struct{}

// WithClaim returns a copy of ctx carrying claim.
func WithClaim(ctx context.Context, claim Claim) context.Context {
	return context.WithValue(ctx, contextKey{}, claim)
}

// ClaimFromContext returns the claim stored by WithClaim.
func ClaimFromContext(ctx context.Context) (Claim, bool) {
	claim, ok := ctx.Value(contextKey{}).(Claim)
	if !ok || claim.UserID < 1 {
		return Claim{}, false
	}
	return claim, true
}
