package cineauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cinemate/cineauth/jwt"
	"github.com/cinemate/cineauth/session"
)

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Both checks are mandatory on every call: the token must parse with a valid
// signature AND the session it references must still be active. A token that
// parses cleanly but points at a terminated or expired session is rejected.
func (e *Engine) Validate(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	claims, err := e.jwtManager.Parse(tokenStr)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != jwt.PurposeAccess {
		e.metricInc(MetricValidateFailure)
		return nil, ErrWrongTokenPurpose
	}
	if claims.SessionID == "" {
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenInvalid
	}

	sess, err := e.sessionStore.Validate(ctx, claims.SessionID)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			return nil, ErrSessionNotFound
		case errors.Is(err, session.ErrSessionNotActive):
			return nil, ErrSessionInvalid
		default:
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if sess.UserID != claims.Subject {
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenInvalid
	}

	e.metricInc(MetricValidateSuccess)

	return &AuthResult{
		UserID:    sess.UserID,
		SessionID: sess.SessionID,
	}, nil
}
