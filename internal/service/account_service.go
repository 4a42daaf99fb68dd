package service

import (
	"context"
	"log/slog"

	"github.com/secretkeeper/internal/db"
	"github.com/secretkeeper/internal/domain"
	"github.com/secretkeeper/internal/validation"
)

// accountService implements the AccountService interface
type accountService struct {
	users  domain.UserStore
	hasher domain.PasswordHasher
	logger *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(users domain.UserStore, hasher domain.PasswordHasher, logger *slog.Logger) domain.AccountService {
	return &accountService{
		users:  users,
		hasher: hasher,
		logger: logger,
	}
}

// Register creates a local account. The existence check and the insert are a
// single statement, so concurrent registrations of one email create one row.
func (s *accountService) Register(ctx context.Context, email, password string) (*db.User, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, domain.WrapValidationError("username", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, domain.WrapValidationError("password", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, domain.WrapPasswordHash(err)
	}

	user, created, err := s.users.InsertUserIfAbsent(ctx, email, hash)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create user", "error", err)
		return nil, domain.WrapDatabaseOperation("create user", err)
	}
	if !created {
		s.logger.InfoContext(ctx, "registration rejected, email taken")
		return nil, domain.ErrUserAlreadyExists
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Secret returns the user's stored secret, or "" when none was set
func (s *accountService) Secret(ctx context.Context, userID string) (string, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return "", domain.WrapDatabaseOperation("find user", err)
	}
	if user == nil {
		return "", domain.ErrUserNotFound
	}
	return user.SecretValue(), nil
}

// SubmitSecret overwrites the user's secret
func (s *accountService) SubmitSecret(ctx context.Context, userID, secret string) error {
	if err := validation.ValidateSecret(secret); err != nil {
		return domain.WrapValidationError("secret", err)
	}

	if err := s.users.UpdateSecret(ctx, userID, secret); err != nil {
		s.logger.ErrorContext(ctx, "failed to update secret", "user_id", userID, "error", err)
		return domain.WrapDatabaseOperation("update secret", err)
	}

	s.logger.DebugContext(ctx, "secret updated", "user_id", userID)
	return nil
}
