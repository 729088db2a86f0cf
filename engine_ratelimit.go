package cineauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cinemate/cineauth/internal/rate"
)

// AdmitRequest describes the admitrequest operation and its observable behavior.
//
// AdmitRequest may return an error when input validation, dependency calls, or security checks fail.
// AdmitRequest does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Gates every inbound request before business logic. A nil error admits;
// [ErrRateLimited] and [ErrIPBlocked] carry the retry-after duration. With
// rate limiting disabled every request is admitted.
func (e *Engine) AdmitRequest(ctx context.Context, ip string, class PathClass, method string) (time.Duration, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if e.rateLimiter == nil {
		return 0, nil
	}

	retryAfter, err := e.rateLimiter.Admit(ctx, ip, class, method)
	switch {
	case err == nil:
		return 0, nil
	case errors.Is(err, rate.ErrIPBlocked):
		e.metricInc(MetricIPBlockHit)
		e.emitAudit(ctx, auditEventIPBlockHit, false, "", "", "", ErrIPBlocked, func() map[string]string {
			return map[string]string{
				"class":  class.String(),
				"method": method,
			}
		})
		return retryAfter, ErrIPBlocked
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricRateLimitHit)
		e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", "", ErrRateLimited, func() map[string]string {
			return map[string]string{
				"class":  class.String(),
				"method": method,
			}
		})
		return retryAfter, ErrRateLimited
	default:
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
