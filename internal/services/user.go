package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/contentdeck/apiserver/internal/apperr"
	"github.com/contentdeck/apiserver/internal/store"
	"github.com/contentdeck/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByLogin(ctx context.Context, login string) (types.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, id int, name, bio string) (types.User, error)
}

// Hasher hashes and checks passwords.
type Hasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) (bool, error)
	Burn(ctx context.Context, password string)
}

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	Issue(userID int, username string) (string, error)
}

// PublicCounter counts an owner's public items in one collection.
type PublicCounter interface {
	CountPublic(ctx context.Context, ownerID int) (int, error)
}

// ProfileCounters are the collections summarized on a public profile.
type ProfileCounters struct {
	Blogs   PublicCounter
	Movies  PublicCounter
	TVShows PublicCounter
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginInput struct {
	// Username accepts either the username or the email.
	Username string `json:"username"`
	Password string `json:"password"`
}

type ProfileInput struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

type AuthResult struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// UserService encapsulates account and profile use-cases.
type UserService struct {
	repo     UserRepository
	hasher   Hasher
	tokens   TokenIssuer
	counters ProfileCounters
	events   EventPublisher
}

func NewUserService(repo UserRepository, hasher Hasher, tokens TokenIssuer, counters ProfileCounters, events EventPublisher) *UserService {
	return &UserService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		counters: counters,
		events:   eventsOrNop(events),
	}
}

// Register creates an account and signs a token for it. A taken username
// or email is one Conflict that does not say which field clashed.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if username == "" || email == "" || name == "" || in.Password == "" {
		return AuthResult{}, apperr.Validation(msgRegisterFields)
	}
	switch {
	case tooLong(username, maxUsernameLen):
		return AuthResult{}, apperr.Validation(msgUsernameTooLong)
	case tooLong(email, maxEmailLen):
		return AuthResult{}, apperr.Validation(msgEmailTooLong)
	case tooLong(name, maxNameLen):
		return AuthResult{}, apperr.Validation(msgNameTooLong)
	}

	exists, err := s.repo.Exists(ctx, username, email)
	if err != nil {
		return AuthResult{}, apperr.Dependency(err)
	}
	if exists {
		return AuthResult{}, apperr.Conflict(msgUserExists)
	}

	hashed, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return AuthResult{}, classify(err, msgUserNotFound)
	}

	// Exists and Create race; the unique constraint settles it as ErrConflict.
	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
	})
	if err != nil {
		return AuthResult{}, classify(err, msgUserNotFound)
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return AuthResult{}, apperr.Dependency(err)
	}

	s.events.Publish(ctx, Event{Type: EventUserRegistered, UserID: user.ID, Title: user.Username})
	return AuthResult{Token: token, User: user}, nil
}

// Login checks a username-or-email and password pair. Unknown users and
// wrong passwords both return ErrInvalidCredentials after one bcrypt compare.
func (s *UserService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	login := strings.TrimSpace(in.Username)
	if login == "" || in.Password == "" {
		return AuthResult{}, apperr.Validation(msgCredentialsFields)
	}

	user, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.Burn(ctx, in.Password)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, apperr.Dependency(err)
	}

	ok, err := s.hasher.Verify(ctx, in.Password, user.PasswordHash)
	if err != nil {
		return AuthResult{}, apperr.Dependency(err)
	}
	if !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return AuthResult{}, apperr.Dependency(err)
	}
	return AuthResult{Token: token, User: user}, nil
}

// Me returns the account behind an authenticated claim.
func (s *UserService) Me(ctx context.Context, userID int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, classify(err, msgUserNotFound)
	}
	return user, nil
}

// Lookup resolves a username case-insensitively for the public paths.
func (s *UserService) Lookup(ctx context.Context, username string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return types.User{}, apperr.NotFound(msgUserNotFound)
	}
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return types.User{}, classify(err, msgUserNotFound)
	}
	return user, nil
}

// Profile returns the public profile of username with counts of its public
// items only.
func (s *UserService) Profile(ctx context.Context, username string) (types.PublicProfile, error) {
	user, err := s.Lookup(ctx, username)
	if err != nil {
		return types.PublicProfile{}, err
	}

	profile := user.Public()
	g, gctx := errgroup.WithContext(ctx)
	count := func(c PublicCounter, dst *int) {
		if c == nil {
			return
		}
		g.Go(func() error {
			n, err := c.CountPublic(gctx, user.ID)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	count(s.counters.Blogs, &profile.Stats.Blogs)
	count(s.counters.Movies, &profile.Stats.Movies)
	count(s.counters.TVShows, &profile.Stats.TVShows)
	if err := g.Wait(); err != nil {
		return types.PublicProfile{}, apperr.Dependency(err)
	}
	return profile, nil
}

// UpdateProfile replaces the caller's name and bio. Name is required.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, in ProfileInput) (types.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return types.User{}, apperr.Validation(msgNameRequired)
	}
	if tooLong(name, maxNameLen) {
		return types.User{}, apperr.Validation(msgNameTooLong)
	}
	user, err := s.repo.UpdateProfile(ctx, userID, name, strings.TrimSpace(in.Bio))
	if err != nil {
		return types.User{}, classify(err, msgUserNotFound)
	}
	return user, nil
}
