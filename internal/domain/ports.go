package domain

import (
	"context"
	"time"

	"github.com/secretkeeper/internal/db"
)

// ============================================================================
// Primary Ports (Application Use Cases)
// ============================================================================

// AccountService defines the account use cases behind the route layer
type AccountService interface {
	Register(ctx context.Context, email, password string) (*db.User, error)
	Secret(ctx context.Context, userID string) (string, error)
	SubmitSecret(ctx context.Context, userID, secret string) error
}

// LocalAuthenticator verifies email/password credentials
type LocalAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (*db.User, error)
}

// FederatedAuthenticator maps a verified external identity to a user,
// provisioning one when needed
type FederatedAuthenticator interface {
	Authenticate(ctx context.Context, identity *Identity) (*db.User, error)
}

// SessionManager serializes an authenticated user into a session token and
// rehydrates it on later requests. A nil user from Deserialize means the
// request is anonymous.
type SessionManager interface {
	Serialize(ctx context.Context, user *db.User) (token string, expiresAt time.Time, err error)
	Deserialize(ctx context.Context, token string) (*db.User, error)
	Destroy(ctx context.Context, token string) error
}

// ============================================================================
// Secondary Ports (Infrastructure)
// ============================================================================

// UserStore is the credential store. Lookups return (nil, nil) when no row matches.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*db.User, error)
	FindUserByID(ctx context.Context, id string) (*db.User, error)
	InsertUserIfAbsent(ctx context.Context, email, credential string) (*db.User, bool, error)
	UpdateSecret(ctx context.Context, id, secret string) error
}

// SessionStore persists session records. GetSession returns (nil, nil) when absent.
type SessionStore interface {
	CreateSession(ctx context.Context, session *db.Session) error
	GetSession(ctx context.Context, id string) (*db.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// PasswordHasher hashes local passwords and verifies them against stored credentials
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, credential string) bool
}

// IdentityProvider runs the OAuth authorization code flow against an external provider
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// ============================================================================
// Value Objects
// ============================================================================

// Identity is an external identity asserted by a provider after it has
// validated the authorization response
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}
