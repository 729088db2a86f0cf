package cineauth

import (
	"context"

	"github.com/cinemate/cineauth/jwt"
)

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The token must still be within its own lifetime: an expired access token
// cannot end a session, the session simply runs out on its own.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(accessToken)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, "", "", "", ErrLogoutFailed, func() map[string]string {
			return map[string]string{
				"reason": "invalid_access_token",
			}
		})
		return ErrLogoutFailed
	}
	if claims.Purpose != jwt.PurposeAccess || claims.SessionID == "" {
		e.emitAudit(ctx, auditEventLogoutSession, false, claims.Subject, "", "", ErrLogoutFailed, func() map[string]string {
			return map[string]string{
				"reason": "not_an_access_token",
			}
		})
		return ErrLogoutFailed
	}

	if err := e.sessionStore.Terminate(ctx, claims.SessionID); err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, claims.Subject, claims.SessionID, "", ErrLogoutFailed, func() map[string]string {
			return map[string]string{
				"reason": "terminate_failed",
			}
		})
		return ErrLogoutFailed
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionTerminated)
	e.emitAudit(ctx, auditEventLogoutSession, true, claims.Subject, claims.SessionID, "", nil, nil)

	return nil
}
