package cineauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventSignupSuccess      = "signup_success"
	auditEventSignupFailure      = "signup_failure"
	auditEventSignupDuplicate    = "signup_duplicate"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshInvalid     = "refresh_invalid"
	auditEventLogoutSession      = "logout_session"
	auditEventSessionTerminated  = "session_terminated"
	auditEventResetRequest       = "password_reset_request"
	auditEventResetVerify        = "password_reset_verify"
	auditEventResetComplete      = "password_reset_complete"
	auditEventResetReplay        = "password_reset_replay"
	auditEventRateLimitTriggered = "rate_limit_triggered"
	auditEventIPBlockHit         = "ip_block_hit"
	auditEventDeliveryFailure    = "reset_code_delivery_failure"
)

// AuditErrorCode defines a public type used by cineauth APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountInactive    AuditErrorCode = "account_inactive"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrValidation         AuditErrorCode = "validation_failed"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrWrongPurpose       AuditErrorCode = "wrong_token_purpose"
	auditErrSessionInvalid     AuditErrorCode = "session_invalid"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrResetInvalid       AuditErrorCode = "reset_request_invalid"
	auditErrInvalidOTP         AuditErrorCode = "invalid_otp"
	auditErrOTPExpired         AuditErrorCode = "otp_expired"
	auditErrAttemptsExceeded   AuditErrorCode = "attempts_exceeded"
	auditErrInvalidSource      AuditErrorCode = "invalid_source"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrIPBlocked          AuditErrorCode = "ip_blocked"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	requestID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		RequestID: requestID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountInactive):
		return auditErrAccountInactive
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrEmailExists), errors.Is(err, ErrProviderDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrWrongTokenPurpose):
		return auditErrWrongPurpose
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionInvalid), errors.Is(err, ErrLogoutFailed):
		return auditErrSessionInvalid
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrResetRequestInvalid):
		return auditErrResetInvalid
	case errors.Is(err, ErrInvalidOTP):
		return auditErrInvalidOTP
	case errors.Is(err, ErrOTPExpired):
		return auditErrOTPExpired
	case errors.Is(err, ErrMaxAttemptsExceeded):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrInvalidSource):
		return auditErrInvalidSource
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrIPBlocked):
		return auditErrIPBlocked
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
