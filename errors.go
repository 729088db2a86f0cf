package cineauth

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is an exported constant or variable used by the authentication engine.
	ErrAccountInactive = errors.New("account inactive")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is an exported constant or variable used by the authentication engine.
	ErrEmailExists = errors.New("email already registered")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongTokenPurpose is an exported constant or variable used by the authentication engine.
	ErrWrongTokenPurpose = errors.New("wrong token purpose")
	// ErrSessionInvalid is an exported constant or variable used by the authentication engine.
	ErrSessionInvalid = errors.New("session terminated or expired")
	// ErrSessionNotFound is an exported constant or variable used by the authentication engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrLogoutFailed is an exported constant or variable used by the authentication engine.
	ErrLogoutFailed = errors.New("logout failed")
	// ErrResetRequestInvalid is an exported constant or variable used by the authentication engine.
	ErrResetRequestInvalid = errors.New("password reset request invalid")
	// ErrInvalidOTP is an exported constant or variable used by the authentication engine.
	ErrInvalidOTP = errors.New("invalid one-time code")
	// ErrOTPExpired is an exported constant or variable used by the authentication engine.
	ErrOTPExpired = errors.New("one-time code expired")
	// ErrMaxAttemptsExceeded is an exported constant or variable used by the authentication engine.
	ErrMaxAttemptsExceeded = errors.New("one-time code attempts exceeded")
	// ErrInvalidSource is an exported constant or variable used by the authentication engine.
	ErrInvalidSource = errors.New("request source mismatch")
	// ErrRateLimited is an exported constant or variable used by the authentication engine.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrIPBlocked is an exported constant or variable used by the authentication engine.
	ErrIPBlocked = errors.New("ip temporarily blocked")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrStoreUnavailable = errors.New("backend store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrValidation is an exported constant or variable used by the authentication engine.
	ErrValidation = errors.New("validation failed")
	// ErrProviderDuplicateEmail must be returned by UserProvider.CreateUser
	// when the email is already registered.
	ErrProviderDuplicateEmail = errors.New("provider: duplicate email")
	// ErrProviderUserNotFound must be returned by UserProvider lookups when no
	// account matches. Any other lookup error is treated as a backend outage.
	ErrProviderUserNotFound = errors.New("provider: user not found")
)

// ValidationError carries field-level validation failures. It matches
// [ErrValidation] under errors.Is so callers can branch on the class without
// inspecting fields.
type ValidationError struct {
	Fields map[string]string
}

// Error describes the error operation and its observable behavior.
//
// Error does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	return "validation failed: " + strings.Join(names, ", ")
}

// Is describes the is operation and its observable behavior.
//
// Is does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Fields: map[string]string{
			field: message,
		},
	}
}
