package cineauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinemate/cineauth/jwt"
	"github.com/cinemate/cineauth/session"
)

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The presented access token may be past its own expiry; only its signature
// and purpose have to hold. A new token is issued for the same session,
// provided the session is still active and within its refresh window.
func (e *Engine) Refresh(ctx context.Context, accessToken string) (string, error) {
	if e == nil || e.jwtManager == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseIgnoringExpiry(accessToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "decode_failed",
			}
		})
		return "", ErrTokenInvalid
	}
	if claims.Purpose != jwt.PurposeAccess {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, "", "", ErrWrongTokenPurpose, nil)
		return "", ErrWrongTokenPurpose
	}
	if claims.SessionID == "" {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, "", "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "missing_session_reference",
			}
		})
		return "", ErrTokenInvalid
	}

	sess, err := e.sessionStore.Validate(ctx, claims.SessionID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		switch {
		case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionNotActive):
			e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, claims.SessionID, "", ErrSessionInvalid, func() map[string]string {
				return map[string]string{
					"reason": "session_not_active",
				}
			})
			return "", ErrSessionInvalid
		default:
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if sess.UserID != claims.Subject {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, claims.SessionID, "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "subject_mismatch",
			}
		})
		return "", ErrTokenInvalid
	}

	access, err := e.jwtManager.IssueAccess(sess.UserID, sess.SessionID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, sess.UserID, sess.SessionID, "", err, func() map[string]string {
			return map[string]string{
				"reason": "issue_access_failed",
			}
		})
		return "", err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, sess.UserID, sess.SessionID, "", nil, nil)

	return access, nil
}
