package cineauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cinemate/cineauth/internal"
	"github.com/cinemate/cineauth/internal/stores"
	"github.com/cinemate/cineauth/jwt"
	"github.com/google/uuid"
)

// RequestPasswordReset describes the requestpasswordreset operation and its observable behavior.
//
// RequestPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// RequestPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Creating a request revokes every prior live request for the same user. The
// one-time code leaves the process only through the configured deliverer; the
// returned token carries the request reference, never the code.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (*ResetRequestResult, error) {
	if e == nil || e.userProvider == nil || e.resetStore == nil {
		return nil, ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, newValidationError("email", "required")
	}

	user, err := e.userProvider.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrProviderUserNotFound) {
			// Unregistered emails answer with a distinct field error. This
			// leaks account existence; transports wanting to mask it must
			// respond uniformly themselves.
			e.emitAudit(ctx, auditEventResetRequest, false, "", "", "", ErrUserNotFound, nil)
			return nil, newValidationError("email", "not registered")
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rid, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	requestID := rid.String()

	code, err := internal.NewOTP(e.config.PasswordReset.CodeDigits)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := &stores.PasswordResetRecord{
		UserID:    user.UserID,
		CodeHash:  internal.HashOTP(code),
		Status:    stores.ResetPending,
		ExpiresAt: now.Add(e.config.PasswordReset.RequestTTL).Unix(),
		CreatedAt: now.Unix(),
		IPAddress: clientIPFromContext(ctx),
	}

	if err := e.resetStore.Create(ctx, requestID, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	token, err := e.jwtManager.IssueReset(user.UserID, requestID)
	if err != nil {
		return nil, err
	}

	if err := e.deliverer.DeliverResetCode(ctx, user.Email, code); err != nil {
		// A request whose code never reached the user is unusable; revoke it
		// so it does not hold the single-live-request slot.
		_ = e.resetStore.RevokeAllForUser(ctx, user.UserID, "")
		e.emitAudit(ctx, auditEventDeliveryFailure, false, user.UserID, "", requestID, ErrStoreUnavailable, nil)
		return nil, fmt.Errorf("%w: reset code delivery failed", ErrStoreUnavailable)
	}
	code = ""

	e.metricInc(MetricResetRequested)
	e.emitAudit(ctx, auditEventResetRequest, true, user.UserID, "", requestID, nil, nil)

	return &ResetRequestResult{
		ResetToken: token,
		RequestID:  requestID,
		ExpiresAt:  time.Unix(record.ExpiresAt, 0).UTC(),
	}, nil
}

// VerifyResetCode describes the verifyresetcode operation and its observable behavior.
//
// VerifyResetCode may return an error when input validation, dependency calls, or security checks fail.
// VerifyResetCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A wrong code consumes an attempt; the configured ceiling revokes the
// request. A source-IP mismatch consumes nothing. Expiry revokes.
func (e *Engine) VerifyResetCode(ctx context.Context, resetToken, code string) error {
	if e == nil || e.resetStore == nil {
		return ErrEngineNotReady
	}

	claims, err := e.parseResetToken(resetToken)
	if err != nil {
		e.metricInc(MetricResetVerifyFailure)
		e.emitAudit(ctx, auditEventResetVerify, false, "", "", "", err, nil)
		return err
	}

	err = e.resetStore.Verify(
		ctx,
		claims.RequestID,
		internal.HashOTP(code),
		clientIPFromContext(ctx),
		e.config.PasswordReset.MaxAttempts,
	)
	if err != nil {
		mapped := mapResetVerifyError(err)
		if errors.Is(mapped, ErrMaxAttemptsExceeded) {
			e.metricInc(MetricResetAttemptsExceeded)
		}
		e.metricInc(MetricResetVerifyFailure)
		event := auditEventResetVerify
		if errors.Is(mapped, ErrResetRequestInvalid) {
			event = auditEventResetReplay
		}
		e.emitAudit(ctx, event, false, claims.Subject, "", claims.RequestID, mapped, nil)
		return mapped
	}

	e.metricInc(MetricResetVerifySuccess)
	e.emitAudit(ctx, auditEventResetVerify, true, claims.Subject, "", claims.RequestID, nil, nil)

	return nil
}

// CompletePasswordReset describes the completepasswordreset operation and its observable behavior.
//
// CompletePasswordReset may return an error when input validation, dependency calls, or security checks fail.
// CompletePasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Requires a verified request. The request moves to completed before the
// credential is replaced, so presenting the same token twice always fails the
// status guard. Every other live request for the user is revoked afterwards.
func (e *Engine) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if e == nil || e.resetStore == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}

	claims, err := e.parseResetToken(resetToken)
	if err != nil {
		e.emitAudit(ctx, auditEventResetComplete, false, "", "", "", err, nil)
		return err
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return newValidationError("password", "does not meet policy")
	}

	record, err := e.resetStore.Complete(ctx, claims.RequestID)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrResetNotVerified), errors.Is(err, stores.ErrResetNotFound):
			e.emitAudit(ctx, auditEventResetReplay, false, claims.Subject, "", claims.RequestID, ErrTokenInvalid, nil)
			return ErrTokenInvalid
		default:
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if record.UserID != claims.Subject {
		e.emitAudit(ctx, auditEventResetComplete, false, claims.Subject, "", claims.RequestID, ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	if err := e.userProvider.UpdatePasswordHash(record.UserID, newHash); err != nil {
		e.emitAudit(ctx, auditEventResetComplete, false, record.UserID, "", claims.RequestID, err, func() map[string]string {
			return map[string]string{
				"reason": "update_hash_failed",
			}
		})
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Parallel reset attempts die with the winning one.
	if err := e.resetStore.RevokeAllForUser(ctx, record.UserID, claims.RequestID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricResetCompleted)
	e.emitAudit(ctx, auditEventResetComplete, true, record.UserID, "", claims.RequestID, nil, nil)

	return nil
}

func (e *Engine) parseResetToken(tokenStr string) (*jwt.Claims, error) {
	claims, err := e.jwtManager.Parse(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != jwt.PurposeReset {
		return nil, ErrWrongTokenPurpose
	}
	if claims.RequestID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func mapResetVerifyError(err error) error {
	switch {
	case errors.Is(err, stores.ErrResetCodeMismatch):
		return ErrInvalidOTP
	case errors.Is(err, stores.ErrResetAttemptsExceeded):
		return ErrMaxAttemptsExceeded
	case errors.Is(err, stores.ErrResetSourceMismatch):
		return ErrInvalidSource
	case errors.Is(err, stores.ErrResetExpired):
		return ErrOTPExpired
	case errors.Is(err, stores.ErrResetNotFound), errors.Is(err, stores.ErrResetNotPending):
		return ErrResetRequestInvalid
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
