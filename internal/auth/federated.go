package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/secretkeeper/internal/constants"
	"github.com/secretkeeper/internal/db"
	"github.com/secretkeeper/internal/domain"
)

var _ domain.FederatedAuthenticator = (*FederatedStrategy)(nil)

// FederatedStrategy turns a verified external identity into a user. Unknown
// emails are provisioned with the federated placeholder credential.
type FederatedStrategy struct {
	users  domain.UserStore
	logger *slog.Logger
}

// NewFederatedStrategy creates a new federated strategy
func NewFederatedStrategy(users domain.UserStore, logger *slog.Logger) *FederatedStrategy {
	return &FederatedStrategy{users: users, logger: logger}
}

// Authenticate finds or provisions the user for identity's email claim
func (s *FederatedStrategy) Authenticate(ctx context.Context, identity *domain.Identity) (*db.User, error) {
	if identity == nil {
		return nil, domain.WrapIdentityRejected("no identity")
	}
	email := strings.TrimSpace(identity.Email)
	if email == "" {
		return nil, domain.WrapIdentityRejected("no email claim")
	}
	if !identity.EmailVerified {
		return nil, domain.WrapIdentityRejected("email not verified")
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, domain.WrapDatabaseOperation("find user by email", err)
	}
	if user != nil {
		s.logExisting(ctx, user, identity)
		return user, nil
	}

	user, created, err := s.users.InsertUserIfAbsent(ctx, email, constants.FederatedCredential)
	if err != nil {
		return nil, domain.WrapDatabaseOperation("provision user", err)
	}
	if created {
		s.logger.InfoContext(ctx, "provisioned federated user",
			"user_id", user.ID,
			"provider", identity.Provider,
		)
		return user, nil
	}

	// A concurrent login provisioned the same email between our lookup and insert
	user, err = s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, domain.WrapDatabaseOperation("find user by email", err)
	}
	if user == nil {
		return nil, domain.WrapDatabaseOperation("provision user", errors.New("user vanished after conflicting insert"))
	}
	s.logExisting(ctx, user, identity)
	return user, nil
}

func (s *FederatedStrategy) logExisting(ctx context.Context, user *db.User, identity *domain.Identity) {
	if user.Password != constants.FederatedCredential {
		s.logger.WarnContext(ctx, "federated login matched an account with a local password",
			"user_id", user.ID,
			"provider", identity.Provider,
		)
	}
}
