package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/contentdeck/apiserver/internal/store"
	"github.com/contentdeck/apiserver/types"
)

// UserRepo is an in-memory user repository with the same uniqueness and
// case rules as the Postgres one.
type UserRepo struct {
	mu     sync.Mutex
	clock  *StubClock
	nextID int
	users  map[int]types.User
	// Err, when set, is returned by every call.
	Err error
}

func NewUserRepo(clock *StubClock) *UserRepo {
	return &UserRepo{clock: clock, users: map[int]types.User{}}
}

func (r *UserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.User{}, r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Username == lower(username) })
}

func (r *UserRepo) GetByLogin(_ context.Context, login string) (types.User, error) {
	login = lower(login)
	return r.find(func(u types.User) bool { return u.Username == login || u.Email == login })
}

func (r *UserRepo) Exists(_ context.Context, username, email string) (bool, error) {
	_, err := r.find(func(u types.User) bool { return u.Username == lower(username) || u.Email == lower(email) })
	switch err {
	case nil:
		return true, nil
	case store.ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}

func (r *UserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.User{}, r.Err
	}
	user.Username = lower(user.Username)
	user.Email = lower(user.Email)
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = r.clock.Tick()
	r.users[user.ID] = user
	return user, nil
}

func (r *UserRepo) UpdateProfile(_ context.Context, id int, name, bio string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.User{}, r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	u.Name, u.Bio = name, bio
	r.users[id] = u
	return u, nil
}

func (r *UserRepo) find(match func(types.User) bool) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.User{}, r.Err
	}
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
