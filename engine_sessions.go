package cineauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinemate/cineauth/session"
)

// Sessions describes the sessions operation and its observable behavior.
//
// Sessions may return an error when input validation, dependency calls, or security checks fail.
// Sessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Terminated and expired sessions are included: the listing doubles as the
// user's login history.
func (e *Engine) Sessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUserNotFound
	}

	sessions, err := e.sessionStore.UserSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sessionSummary(sess))
	}
	return summaries, nil
}

// TerminateSession describes the terminatesession operation and its observable behavior.
//
// TerminateSession may return an error when input validation, dependency calls, or security checks fail.
// TerminateSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// userID must own the session; a caller can only end their own devices.
func (e *Engine) TerminateSession(ctx context.Context, userID, sessionID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}

	sess, err := e.sessionStore.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if sess.UserID != userID {
		return ErrSessionNotFound
	}

	if err := e.sessionStore.Terminate(ctx, sessionID); err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			return ErrSessionNotFound
		case errors.Is(err, session.ErrSessionNotActive):
			return ErrSessionInvalid
		default:
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	e.metricInc(MetricSessionTerminated)
	e.emitAudit(ctx, auditEventSessionTerminated, true, userID, sessionID, "", nil, nil)

	return nil
}
