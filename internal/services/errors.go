package services

import (
	"errors"
	"unicode/utf8"

	"github.com/contentdeck/apiserver/internal/apperr"
	"github.com/contentdeck/apiserver/internal/store"
)

const (
	msgUserNotFound      = "user not found"
	msgUserExists        = "username or email already exists"
	msgTitleRequired     = "title is required"
	msgNameRequired      = "name is required"
	msgRatingRange       = "rating must be between 1 and 5"
	msgYearRange         = "year must be a 4-digit year"
	msgRegisterFields    = "username, email, password and name are required"
	msgCredentialsFields = "username and password are required"
	msgUsernameTooLong   = "username must be at most 50 characters"
	msgEmailTooLong      = "email must be at most 255 characters"
	msgNameTooLong       = "name must be at most 100 characters"
	msgTitleTooLong      = "title must be at most 255 characters"
	msgValueTooLong      = "value is too long"
)

// Column lengths of the users and content tables.
const (
	maxUsernameLen = 50
	maxEmailLen    = 255
	maxNameLen     = 100
	maxTitleLen    = 255
)

func tooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}

// ErrInvalidCredentials covers both an unknown login and a wrong password.
var ErrInvalidCredentials = apperr.New(apperr.KindAuthentication, "invalid credentials")

// classify turns repository errors into apperr kinds. notFound is the
// message used when the record is missing or owned by someone else.
func classify(err error, notFound string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, notFound, err)
	case errors.Is(err, store.ErrConflict):
		return apperr.Wrap(apperr.KindConflict, msgUserExists, err)
	case errors.Is(err, store.ErrTooLong):
		return apperr.Wrap(apperr.KindValidation, msgValueTooLong, err)
	}
	var classified *apperr.Error
	if errors.As(err, &classified) {
		return err
	}
	return apperr.Dependency(err)
}
