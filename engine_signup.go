package cineauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const minSignupPasswordLength = 8

// Signup describes the signup operation and its observable behavior.
//
// Signup may return an error when input validation, dependency calls, or security checks fail.
// Signup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Signup(ctx context.Context, input SignupInput) (*LoginResult, error) {
	if e == nil || e.passwordHash == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}

	fields := map[string]string{}
	if strings.TrimSpace(input.FullName) == "" {
		fields["full_name"] = "required"
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		fields["email"] = "required"
	} else if !strings.Contains(email, "@") {
		fields["email"] = "invalid format"
	}
	if len(input.Password) < minSignupPasswordLength {
		fields["password"] = fmt.Sprintf("must be at least %d characters", minSignupPasswordLength)
	}
	if len(fields) > 0 {
		validationErr := &ValidationError{Fields: fields}
		e.metricInc(MetricSignupFailure)
		e.emitAudit(ctx, auditEventSignupFailure, false, "", "", "", validationErr, nil)
		return nil, validationErr
	}

	passwordHash, err := e.passwordHash.Hash(input.Password)
	if err != nil {
		validationErr := newValidationError("password", "does not meet policy")
		e.metricInc(MetricSignupFailure)
		e.emitAudit(ctx, auditEventSignupFailure, false, "", "", "", validationErr, nil)
		return nil, validationErr
	}

	user, err := e.userProvider.CreateUser(CreateUserInput{
		FullName:     strings.TrimSpace(input.FullName),
		Email:        email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, ErrProviderDuplicateEmail) {
			// Registered emails answer differently from other failures on
			// purpose; transports wanting to mask account existence must do
			// so themselves.
			e.metricInc(MetricSignupDuplicate)
			e.emitAudit(ctx, auditEventSignupDuplicate, false, "", "", "", ErrEmailExists, nil)
			return nil, newValidationError("email", "already registered")
		}
		e.metricInc(MetricSignupFailure)
		e.emitAudit(ctx, auditEventSignupFailure, false, "", "", "", err, func() map[string]string {
			return map[string]string{
				"reason": "provider_create_failed",
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	result, err := e.createSession(ctx, user)
	if err != nil {
		e.metricInc(MetricSignupFailure)
		e.emitAudit(ctx, auditEventSignupFailure, false, user.UserID, "", "", err, func() map[string]string {
			return map[string]string{
				"reason": "session_create_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignupSuccess, true, user.UserID, result.Session.SessionID, "", nil, nil)

	return result, nil
}
