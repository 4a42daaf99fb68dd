package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Domain Error Types
// ============================================================================

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError carrying the same code, so wrapped variants
// still satisfy errors.Is against the sentinels below
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ============================================================================
// Common Domain Errors
// ============================================================================

var (
	// Authentication Errors
	ErrUserNotFound = &DomainError{
		Code:    "USER_NOT_FOUND",
		Message: "user not found",
	}
	ErrInvalidPassword = &DomainError{
		Code:    "INVALID_PASSWORD",
		Message: "invalid password",
	}
	ErrIdentityRejected = &DomainError{
		Code:    "IDENTITY_REJECTED",
		Message: "external identity rejected",
	}

	// Registration Errors
	ErrUserAlreadyExists = &DomainError{
		Code:    "USER_ALREADY_EXISTS",
		Message: "User already exists",
	}

	// Credential Errors
	ErrPasswordHash = &DomainError{
		Code:    "PASSWORD_HASH_FAILED",
		Message: "failed to hash password",
	}

	// Session Errors
	ErrSessionLogin = &DomainError{
		Code:    "SESSION_LOGIN_FAILED",
		Message: "failed to establish session",
	}

	// Validation Errors
	ErrValidationFailed = &DomainError{
		Code:    "VALIDATION_FAILED",
		Message: "validation failed",
	}

	// Infrastructure Errors
	ErrDatabaseOperation = &DomainError{
		Code:    "DATABASE_OPERATION_FAILED",
		Message: "database operation failed",
	}
	ErrNetworkOperation = &DomainError{
		Code:    "NETWORK_OPERATION_FAILED",
		Message: "network operation failed",
	}
)

// ============================================================================
// Error Wrapping Helpers
// ============================================================================

// WrapDatabaseOperation wraps an error as a database operation failure
func WrapDatabaseOperation(operation string, cause error) error {
	return &DomainError{
		Code:    ErrDatabaseOperation.Code,
		Message: fmt.Sprintf("database operation failed: %s", operation),
		Cause:   cause,
	}
}

// WrapSessionLogin wraps an error raised while establishing a session
func WrapSessionLogin(cause error) error {
	return &DomainError{
		Code:    ErrSessionLogin.Code,
		Message: ErrSessionLogin.Message,
		Cause:   cause,
	}
}

// WrapPasswordHash wraps a failure to hash a new password
func WrapPasswordHash(cause error) error {
	return &DomainError{
		Code:    ErrPasswordHash.Code,
		Message: ErrPasswordHash.Message,
		Cause:   cause,
	}
}

// WrapIdentityRejected explains why an external identity cannot be used
func WrapIdentityRejected(reason string) error {
	return &DomainError{
		Code:    ErrIdentityRejected.Code,
		Message: fmt.Sprintf("external identity rejected: %s", reason),
	}
}

// WrapNetworkOperation wraps a failed call to an external service
func WrapNetworkOperation(operation string, cause error) error {
	return &DomainError{
		Code:    ErrNetworkOperation.Code,
		Message: fmt.Sprintf("network operation failed: %s", operation),
		Cause:   cause,
	}
}

// WrapValidationError wraps a validation failure for a named field
func WrapValidationError(field string, cause error) error {
	message := fmt.Sprintf("validation failed for %s", field)
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	return &DomainError{
		Code:    ErrValidationFailed.Code,
		Message: message,
		Cause:   cause,
	}
}

// ============================================================================
// Error Checking Helpers
// ============================================================================

// IsAuthFailure checks if an error means the presented credentials or identity
// were not accepted. These never reach the client as anything but a redirect.
func IsAuthFailure(err error) bool {
	return hasCode(err, ErrUserNotFound.Code, ErrInvalidPassword.Code, ErrIdentityRejected.Code)
}

// IsConflictError checks if an error is a duplicate registration
func IsConflictError(err error) bool {
	return hasCode(err, ErrUserAlreadyExists.Code)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasCode(err, ErrValidationFailed.Code)
}

// IsSessionLoginError checks if an error happened while establishing a session
func IsSessionLoginError(err error) bool {
	return hasCode(err, ErrSessionLogin.Code)
}

// IsInfrastructureError checks if an error is an infrastructure error
func IsInfrastructureError(err error) bool {
	return hasCode(err, ErrDatabaseOperation.Code, ErrNetworkOperation.Code)
}

// PublicMessage returns the message without code or cause. Non-domain errors
// collapse to a generic message.
func PublicMessage(err error) string {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return "internal error"
	}
	return domainErr.Message
}

func hasCode(err error, codes ...string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	for _, code := range codes {
		if domainErr.Code == code {
			return true
		}
	}
	return false
}
