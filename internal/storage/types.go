package storage

import (
	"context"
	"errors"

	"diskgate/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameTaken and ErrEmailTaken report uniqueness violations. The
	// Postgres repository maps SQLSTATE 23505 onto them so concurrent
	// registrations are serialized by the database constraint rather than by
	// application-level locking.
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

// IsConflict reports whether the error is a uniqueness violation on either
// account field.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken)
}

// CreateUserParams captures the attributes required to register an account.
type CreateUserParams struct {
	Username string
	Email    string
	Password string
}

// Repository is the persistence contract for accounts. The JSON-backed store
// serves development and tests; the Postgres store serves production.
type Repository interface {
	CreateUser(params CreateUserParams) (models.User, error)
	GetUser(id string) (models.User, bool)
	FindUserByUsername(username string) (models.User, bool)
	FindUserByEmail(email string) (models.User, bool)
	AuthenticateUser(username, password string) (models.User, error)
	Ping(ctx context.Context) error
}
