package apipaths

import "strings"

// Browser-facing routes. Used by the router, redirects and templates.

const (
	Home           = "/"
	Login          = "/login"
	Register       = "/register"
	Secrets        = "/secrets"
	Submit         = "/submit"
	Logout         = "/logout"
	GoogleLogin    = "/auth/google"
	GoogleCallback = "/auth/google/secrets"
	Health         = "/api/health"
	Static         = "/static"
)

// IsSensitive reports whether responses for path must never be cached
func IsSensitive(path string) bool {
	switch path {
	case Secrets, Submit, Login, Register, Logout:
		return true
	}
	return strings.HasPrefix(path, "/auth/")
}
