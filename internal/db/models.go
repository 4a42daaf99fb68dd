package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account. Password holds either a bcrypt hash or the
// federated placeholder credential.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"` // Never expose credentials in JSON
	Secret    *string   `json:"-" db:"secret"`   // Nullable
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Session maps a session id to the user it authenticates
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// NewUser creates a new User with a generated UUID
func NewUser(email, credential string) *User {
	return &User{
		ID:        uuid.New().String(),
		Email:     email,
		Password:  credential,
		CreatedAt: time.Now().UTC(),
	}
}

// SecretValue returns the stored secret, or "" when none was set
func (u *User) SecretValue() string {
	if u.Secret == nil {
		return ""
	}
	return *u.Secret
}

// NewSession creates a session for userID that expires ttl after now.
// Times are truncated to seconds, the precision they are stored with.
func NewSession(userID string, now time.Time, ttl time.Duration) *Session {
	created := now.UTC().Truncate(time.Second)
	return &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: created,
		ExpiresAt: created.Add(ttl),
	}
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
