package constants

import "time"

// Session values
const (
	SessionCookieName = "session"
	SessionTTL        = 15 * time.Minute
	SessionIssuer     = "secretkeeper"
)

// OAuth values
const (
	OAuthStateCookieName = "oauth_state"
	OAuthStateTTL        = 10 * time.Minute
	ProviderGoogle       = "google"
)

// Credential values
const (
	// PasswordHashCost is the bcrypt work factor for local accounts
	PasswordHashCost = 10

	// FederatedCredential is stored instead of a hash for accounts created
	// through Google. It is not a bcrypt hash, so it never verifies.
	FederatedCredential = "google"
)

// Request limits
const (
	MaxFormBodySize  = 1 << 20
	MaxEmailLength   = 254
	MaxPasswordBytes = 72 // bcrypt ignores or rejects anything longer
)

// Client-facing messages
const (
	MsgUserAlreadyExists   = "User already exists"
	MsgServerError         = "Server error"
	MsgRegistrationFailed  = "An error occurred during registration. Please try again later."
	MsgSessionLoginFailed  = "Error logging in user"
	MsgGoogleNotConfigured = "Google sign-in is not configured"
)
