package auth

import (
	"context"

	"github.com/secretkeeper/internal/db"
	"github.com/secretkeeper/internal/domain"
)

var _ domain.LocalAuthenticator = (*LocalStrategy)(nil)

// LocalStrategy authenticates email/password credentials against the user store
type LocalStrategy struct {
	users  domain.UserStore
	hasher domain.PasswordHasher
}

// NewLocalStrategy creates a new local strategy
func NewLocalStrategy(users domain.UserStore, hasher domain.PasswordHasher) *LocalStrategy {
	return &LocalStrategy{users: users, hasher: hasher}
}

// Authenticate returns the user owning email if password matches. Failures are
// domain.ErrUserNotFound or domain.ErrInvalidPassword; callers must not reveal
// which one occurred.
func (s *LocalStrategy) Authenticate(ctx context.Context, email, password string) (*db.User, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, domain.WrapDatabaseOperation("find user by email", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	if !s.hasher.Verify(password, user.Password) {
		return nil, domain.ErrInvalidPassword
	}

	return user, nil
}
