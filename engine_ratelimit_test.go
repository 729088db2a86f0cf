package cineauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAdmitRequestEnforcesAuthCeiling(t *testing.T) {
	te := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.Enabled = true
	})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := te.engine.AdmitRequest(ctx, "203.0.113.7", PathAuth, "POST"); err != nil {
			t.Fatalf("request %d: expected admission, got %v", i, err)
		}
	}

	retryAfter, err := te.engine.AdmitRequest(ctx, "203.0.113.7", PathAuth, "POST")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on breach, got %v", err)
	}
	if retryAfter < time.Minute {
		t.Fatalf("expected the block cooldown as retry-after, got %v", retryAfter)
	}

	// The installed block rejects the IP on every class, exempt ones included.
	if _, err := te.engine.AdmitRequest(ctx, "203.0.113.7", PathSearch, "GET"); !errors.Is(err, ErrIPBlocked) {
		t.Fatalf("expected ErrIPBlocked on exempt class, got %v", err)
	}
	if _, err := te.engine.AdmitRequest(ctx, "203.0.113.7", PathCatalog, "GET"); !errors.Is(err, ErrIPBlocked) {
		t.Fatalf("expected ErrIPBlocked, got %v", err)
	}

	snap := te.engine.MetricsSnapshot()
	if snap.Counters[MetricRateLimitHit] != 1 {
		t.Fatalf("expected one rate-limit hit, got %d", snap.Counters[MetricRateLimitHit])
	}
	if snap.Counters[MetricIPBlockHit] != 2 {
		t.Fatalf("expected two block hits, got %d", snap.Counters[MetricIPBlockHit])
	}
}

func TestAdmitRequestDisabledLimiter(t *testing.T) {
	te := newTestEngine(t, nil) // rate limiting off in the test config
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if _, err := te.engine.AdmitRequest(ctx, "203.0.113.7", PathAuth, "POST"); err != nil {
			t.Fatalf("request %d: expected admission with limiter disabled, got %v", i, err)
		}
	}
}
