package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/contentdeck/apiserver/internal/apperr"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenRoundTrip(t *testing.T) {
	issued := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	svc, err := NewTokenService("secret", time.Hour, WithClock(fixedNow(issued)))
	require.NoError(t, err)

	token, err := svc.Issue(42, "alice")
	require.NoError(t, err)

	claim, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claim.UserID)
	assert.Equal(t, "alice", claim.Username)
	assert.True(t, claim.ExpiresAt.Equal(issued.Add(time.Hour)))
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService("   ", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestTokenRejections(t *testing.T) {
	issued := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	svc, err := NewTokenService("secret", time.Hour, WithClock(fixedNow(issued)))
	require.NoError(t, err)
	good, err := svc.Issue(1, "alice")
	require.NoError(t, err)

	later, err := NewTokenService("secret", time.Hour, WithClock(fixedNow(issued.Add(2*time.Hour))))
	require.NoError(t, err)
	other, err := NewTokenService("other", time.Hour, WithClock(fixedNow(issued)))
	require.NoError(t, err)
	forged, err := other.Issue(1, "alice")
	require.NoError(t, err)
	anonymous, err := svc.Issue(0, "")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id":       1,
		"username": "alice",
		"exp":      issued.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	cases := []struct {
		name   string
		svc    *TokenService
		token  string
		reason Reason
	}{
		{"expired", later, good, ReasonExpired},
		{"wrong secret", svc, forged, ReasonBadSignature},
		{"garbage", svc, "not-a-jwt", ReasonMalformed},
		{"alg none", svc, unsigned, ""},
		{"missing identity", svc, anonymous, ReasonMalformed},
		{"tampered payload", svc, tampered, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.svc.Verify(tc.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, "invalid token", apperr.Message(err))

			var tokenErr *TokenError
			require.True(t, errors.As(err, &tokenErr))
			if tc.reason != "" {
				assert.Equal(t, tc.reason, tokenErr.Reason)
			}
		})
	}
}

func TestGuardAuthenticate(t *testing.T) {
	svc, err := NewTokenService("secret", time.Hour)
	require.NoError(t, err)
	token, err := svc.Issue(5, "bob")
	require.NoError(t, err)
	guard := NewGuard(svc)

	claim, err := guard.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, 5, claim.UserID)

	claim, err = guard.Authenticate("bearer   " + token)
	require.NoError(t, err, "scheme is case-insensitive")
	assert.Equal(t, "bob", claim.Username)

	for _, header := range []string{"", "   ", "Bearer", "Bearer   "} {
		_, err := guard.Authenticate(header)
		assert.ErrorIs(t, err, ErrTokenRequired, "%q", header)
	}
	for _, header := range []string{"Basic " + token, token, "Bearer nope"} {
		_, err := guard.Authenticate(header)
		assert.ErrorIs(t, err, ErrInvalidToken, "%q", header)
	}
}

func TestOwnsAndContext(t *testing.T) {
	claim := Claim{UserID: 3, Username: "carol"}
	assert.True(t, Owns(claim, 3))
	assert.False(t, Owns(claim, 4))
	assert.False(t, Owns(Claim{}, 0))

	_, ok := ClaimFromContext(context.Background())
	assert.False(t, ok)

	got, ok := ClaimFromContext(WithClaim(context.Background(), claim))
	require.True(t, ok)
	assert.Equal(t, claim, got)

	_, ok = ClaimFromContext(WithClaim(context.Background(), Claim{}))
	assert.False(t, ok, "a zero claim is not an identity")
}

func TestPasswordHasher(t *testing.T) {
	ctx := context.Background()
	h := NewPasswordHasher(bcrypt.MinCost, 2)

	hash, err := h.Hash(ctx, "pw123")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", hash)

	ok, err := h.Verify(ctx, "pw123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.Verify(ctx, "pw123", "not-a-bcrypt-hash")
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := h.Hash(ctx, "pw123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "hashes are salted")

	_, err = h.Hash(ctx, strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestPasswordHasherOutOfRangeCost(t *testing.T) {
	h := NewPasswordHasher(99, 0)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
}

func TestPasswordHasherRespectsContext(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	require.NoError(t, h.slots.Acquire(context.Background(), 1))
	defer h.slots.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := h.Hash(ctx, "pw123")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = h.Verify(ctx, "pw123", "x")
	assert.Error(t, err)
}

func TestPasswordHasherBurnUsesPreparedHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	prepared := string(h.dummy)
	cost, err := bcrypt.Cost(h.dummy)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	require.NoError(t, h.slots.Acquire(context.Background(), 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		h.Burn(ctx, "pw123")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("burn did not return while every slot was held")
	}
	h.slots.Release(1)

	h.Burn(context.Background(), "pw123")
	assert.Equal(t, prepared, string(h.dummy))
}
