package cineauth

import (
	"time"

	"github.com/cinemate/cineauth/internal/rate"
	"github.com/cinemate/cineauth/internal/stores"
	"github.com/cinemate/cineauth/jwt"
	"github.com/cinemate/cineauth/password"
	"github.com/cinemate/cineauth/session"
)

// Engine defines a public type used by cineauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	sessionStore *session.Store
	resetStore   *stores.PasswordResetStore
	rateLimiter  *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
	passwordHash *password.Hasher
	jwtManager   *jwt.Manager
	userProvider UserProvider
	deliverer    CodeDeliverer
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func sessionSummary(s *session.Session) SessionSummary {
	summary := SessionSummary{
		SessionID:  s.SessionID,
		UserID:     s.UserID,
		IPAddress:  s.IPAddress,
		Platform:   s.Platform,
		DeviceName: s.DeviceName,
		Status:     s.Status.String(),
		StartedAt:  time.Unix(s.StartedAt, 0).UTC(),
	}
	if s.EndedAt != 0 {
		summary.EndedAt = time.Unix(s.EndedAt, 0).UTC()
	}
	return summary
}
