package cineauth

import (
	"context"
	"time"

	"github.com/cinemate/cineauth/internal/rate"
)

// UserRecord defines a public type used by cineauth APIs.
//
// UserRecord instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type UserRecord struct {
	UserID       string
	FullName     string
	Email        string
	PasswordHash string
	Active       bool
	Verified     bool
}

// CreateUserInput defines a public type used by cineauth APIs.
//
// CreateUserInput instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CreateUserInput struct {
	FullName     string
	Email        string
	PasswordHash string
}

// UserProvider is the identity-store boundary. The engine never persists user
// rows itself; it reads and updates them through this interface.
//
// CreateUser must return [ErrProviderDuplicateEmail] when the email is
// already registered. GetUserByEmail and GetUserByID must return
// [ErrProviderUserNotFound] when no account matches; any other lookup error
// is reported to callers as a backend outage, not an absent account.
// UpdateLastLogin is best-effort from the engine's point of view and must not
// fail a login when it errors.
type UserProvider interface {
	GetUserByEmail(email string) (UserRecord, error)
	GetUserByID(userID string) (UserRecord, error)
	CreateUser(input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(userID, newHash string) error
	UpdateLastLogin(userID string, at time.Time) error
}

// CodeDeliverer hands a plaintext one-time code to an out-of-band channel
// (email, SMS). The engine never logs or stores the plaintext code; this
// interface is the only place it leaves the process.
type CodeDeliverer interface {
	DeliverResetCode(ctx context.Context, email, code string) error
}

// DelivererFunc adapts a function to [CodeDeliverer].
type DelivererFunc func(ctx context.Context, email, code string) error

// DeliverResetCode describes the deliverresetcode operation and its observable behavior.
//
// DeliverResetCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (f DelivererFunc) DeliverResetCode(ctx context.Context, email, code string) error {
	return f(ctx, email, code)
}

type noopDeliverer struct{}

func (noopDeliverer) DeliverResetCode(context.Context, string, string) error { return nil }

// SignupInput defines a public type used by cineauth APIs.
//
// SignupInput instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SignupInput struct {
	FullName string
	Email    string
	Password string
}

// SessionSummary is the caller-facing view of one login session.
type SessionSummary struct {
	SessionID  string
	UserID     string
	IPAddress  string
	Platform   string
	DeviceName string
	Status     string
	StartedAt  time.Time
	EndedAt    time.Time
}

// LoginResult defines a public type used by cineauth APIs.
//
// LoginResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginResult struct {
	AccessToken string
	UserID      string
	Session     SessionSummary
}

// AuthResult is the outcome of validating an access token against both the
// token signature and the live session record.
type AuthResult struct {
	UserID    string
	SessionID string
}

// ResetRequestResult defines a public type used by cineauth APIs.
//
// ResetRequestResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ResetRequestResult struct {
	ResetToken string
	RequestID  string
	ExpiresAt  time.Time
}

// PathClass defines a public type used by cineauth APIs.
//
// PathClass instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PathClass = rate.PathClass

const (
	// PathUnclassified is an exported constant or variable used by the authentication engine.
	PathUnclassified = rate.ClassUnclassified
	// PathAuth is an exported constant or variable used by the authentication engine.
	PathAuth = rate.ClassAuth
	// PathCatalog is an exported constant or variable used by the authentication engine.
	PathCatalog = rate.ClassCatalog
	// PathProfile is an exported constant or variable used by the authentication engine.
	PathProfile = rate.ClassProfile
	// PathSearch is an exported constant or variable used by the authentication engine.
	PathSearch = rate.ClassSearch
)

// RatePolicy defines a public type used by cineauth APIs.
//
// RatePolicy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RatePolicy = rate.Policy
