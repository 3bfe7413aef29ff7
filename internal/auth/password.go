package auth

import (
	"context"
	"errors"
	"runtime"

	"github.com/contentdeck/apiserver/internal/apperr"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// ErrPasswordTooLong is returned for passwords past bcrypt's 72 byte input limit.
var ErrPasswordTooLong = apperr.Validation("password is too long")

// PasswordHasher hashes and verifies passwords with bcrypt. Work is bounded
// by a fixed number of slots shared by all requests.
type PasswordHasher struct {
	cost  int
	slots *semaphore.Weighted

	// dummy is compared against when a login names an unknown user so both
	// failure paths cost one bcrypt comparison at the configured cost.
	dummy []byte
}

// NewPasswordHasher returns a hasher using cost (bcrypt.DefaultCost when out of
// range) and at most workers concurrent bcrypt operations (GOMAXPROCS when < 1).
func NewPasswordHasher(cost, workers int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("contentdeck-dummy"), cost)
	return &PasswordHasher{
		cost:  cost,
		slots: semaphore.NewWeighted(int64(workers)),
		dummy: dummy,
	}
}

// Hash returns a salted bcrypt hash of password.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. A malformed hash is a
// mismatch. The error is non-nil only when ctx ends while waiting for a slot.
func (h *PasswordHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.slots.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// Burn performs one comparison against a fixed hash and discards the result.
func (h *PasswordHasher) Burn(ctx context.Context, password string) {
	_, _ = h.Verify(ctx, password, string(h.dummy))
}
