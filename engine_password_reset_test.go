package cineauth

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestPasswordResetFullFlow(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.seedUser(t, "alice@example.com", "old-password-123")

	reset, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if reset.ResetToken == "" || reset.RequestID == "" {
		t.Fatalf("expected token and request reference, got %+v", reset)
	}

	code := te.deliverer.code("alice@example.com")
	if len(code) != 6 {
		t.Fatalf("expected six-digit code through the deliverer, got %q", code)
	}

	if err := te.engine.VerifyResetCode(ctx, reset.ResetToken, "000000"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP for wrong code, got %v", err)
	}
	if err := te.engine.VerifyResetCode(ctx, reset.ResetToken, code); err != nil {
		t.Fatalf("VerifyResetCode failed: %v", err)
	}

	if err := te.engine.CompletePasswordReset(ctx, reset.ResetToken, "new-password-456"); err != nil {
		t.Fatalf("CompletePasswordReset failed: %v", err)
	}

	if _, err := te.engine.Login(ctx, "alice@example.com", "old-password-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to stop working, got %v", err)
	}
	if _, err := te.engine.Login(ctx, "alice@example.com", "new-password-456"); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}

	// The consumed request cannot change the password twice.
	err = te.engine.CompletePasswordReset(ctx, reset.ResetToken, "third-password-789")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on replay, got %v", err)
	}
}

func TestPasswordResetAttemptCeiling(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.seedUser(t, "alice@example.com", "old-password-123")

	reset, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	code := te.deliverer.code("alice@example.com")
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 1; i < 3; i++ {
		if err := te.engine.VerifyResetCode(ctx, reset.ResetToken, wrong); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("attempt %d: expected ErrInvalidOTP, got %v", i, err)
		}
	}

	if err := te.engine.VerifyResetCode(ctx, reset.ResetToken, wrong); !errors.Is(err, ErrMaxAttemptsExceeded) {
		t.Fatalf("expected ErrMaxAttemptsExceeded at the ceiling, got %v", err)
	}

	// The correct code arrives too late; the request is revoked.
	if err := te.engine.VerifyResetCode(ctx, reset.ResetToken, code); !errors.Is(err, ErrResetRequestInvalid) {
		t.Fatalf("expected ErrResetRequestInvalid after revocation, got %v", err)
	}

	snap := te.engine.MetricsSnapshot()
	if snap.Counters[MetricResetAttemptsExceeded] != 1 {
		t.Fatalf("expected one attempts-exceeded event, got %d", snap.Counters[MetricResetAttemptsExceeded])
	}
}

func TestPasswordResetSourceBinding(t *testing.T) {
	te := newTestEngine(t, nil)
	te.seedUser(t, "alice@example.com", "old-password-123")

	requestCtx := WithClientIP(context.Background(), "203.0.113.7")
	reset, err := te.engine.RequestPasswordReset(requestCtx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	code := te.deliverer.code("alice@example.com")

	foreignCtx := WithClientIP(context.Background(), "198.51.100.9")
	if err := te.engine.VerifyResetCode(foreignCtx, reset.ResetToken, code); !errors.Is(err, ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource from a foreign IP, got %v", err)
	}

	// The creating IP is still accepted; the mismatch consumed no attempt.
	if err := te.engine.VerifyResetCode(requestCtx, reset.ResetToken, code); err != nil {
		t.Fatalf("VerifyResetCode from the creating IP failed: %v", err)
	}
}

func TestPasswordResetNewRequestSupersedes(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.seedUser(t, "alice@example.com", "old-password-123")

	first, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("first RequestPasswordReset failed: %v", err)
	}
	firstCode := te.deliverer.code("alice@example.com")

	second, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("second RequestPasswordReset failed: %v", err)
	}
	secondCode := te.deliverer.code("alice@example.com")

	if err := te.engine.VerifyResetCode(ctx, first.ResetToken, firstCode); !errors.Is(err, ErrResetRequestInvalid) {
		t.Fatalf("expected superseded request to be invalid, got %v", err)
	}
	if err := te.engine.VerifyResetCode(ctx, second.ResetToken, secondCode); err != nil {
		t.Fatalf("VerifyResetCode on the live request failed: %v", err)
	}
}

func TestPasswordResetUnregisteredEmail(t *testing.T) {
	te := newTestEngine(t, nil)

	_, err := te.engine.RequestPasswordReset(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unregistered email, got %v", err)
	}
}

func TestPasswordResetProviderOutage(t *testing.T) {
	te := newTestEngine(t, nil)
	te.seedUser(t, "alice@example.com", "old-password-123")

	// A transient lookup failure is a backend outage, not an absent account.
	te.provider.lookupErr = errors.New("connection refused")

	_, err := te.engine.RequestPasswordReset(context.Background(), "alice@example.com")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable during provider outage, got %v", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Fatal("provider outage must not look like an unregistered email")
	}
}

func TestPasswordResetConcurrentCompleteSingleWinner(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.seedUser(t, "alice@example.com", "old-password-123")

	reset, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if err := te.engine.VerifyResetCode(ctx, reset.ResetToken, te.deliverer.code("alice@example.com")); err != nil {
		t.Fatalf("VerifyResetCode failed: %v", err)
	}

	const racers = 8
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- te.engine.CompletePasswordReset(ctx, reset.ResetToken, "new-password-456")
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		if !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("loser must fail the status guard, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one completion, got %d", wins)
	}
	if got := te.provider.hashUpdates(); got != 1 {
		t.Fatalf("expected exactly one credential update, got %d", got)
	}

	if _, err := te.engine.Login(ctx, "alice@example.com", "new-password-456"); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}
}

func TestPasswordResetRejectsAccessToken(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.seedUser(t, "alice@example.com", "old-password-123")

	login, err := te.engine.Login(ctx, "alice@example.com", "old-password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := te.engine.VerifyResetCode(ctx, login.AccessToken, "123456"); !errors.Is(err, ErrWrongTokenPurpose) {
		t.Fatalf("expected ErrWrongTokenPurpose, got %v", err)
	}
	if err := te.engine.CompletePasswordReset(ctx, login.AccessToken, "new-password-456"); !errors.Is(err, ErrWrongTokenPurpose) {
		t.Fatalf("expected ErrWrongTokenPurpose, got %v", err)
	}
}

func TestPasswordResetCompleteRequiresVerification(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.seedUser(t, "alice@example.com", "old-password-123")

	reset, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}

	// Skipping code verification must not allow a password change.
	err = te.engine.CompletePasswordReset(ctx, reset.ResetToken, "new-password-456")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on unverified request, got %v", err)
	}

	if _, err := te.engine.Login(ctx, "alice@example.com", "old-password-123"); err != nil {
		t.Fatalf("old password must survive a skipped verification: %v", err)
	}
}

func TestPasswordResetCompleteRejectsWeakPassword(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.seedUser(t, "alice@example.com", "old-password-123")

	reset, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	code := te.deliverer.code("alice@example.com")
	if err := te.engine.VerifyResetCode(ctx, reset.ResetToken, code); err != nil {
		t.Fatalf("VerifyResetCode failed: %v", err)
	}

	if err := te.engine.CompletePasswordReset(ctx, reset.ResetToken, "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for weak password, got %v", err)
	}

	// The request survives the rejected candidate password.
	if err := te.engine.CompletePasswordReset(ctx, reset.ResetToken, "new-password-456"); err != nil {
		t.Fatalf("CompletePasswordReset failed: %v", err)
	}
}

func TestPasswordResetDeliveryFailureRevokesRequest(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.seedUser(t, "alice@example.com", "old-password-123")

	te.deliverer.fail = true
	if _, err := te.engine.RequestPasswordReset(ctx, "alice@example.com"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable on delivery failure, got %v", err)
	}

	// A later request works once delivery recovers.
	te.deliverer.fail = false
	reset, err := te.engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset after recovery failed: %v", err)
	}
	if err := te.engine.VerifyResetCode(ctx, reset.ResetToken, te.deliverer.code("alice@example.com")); err != nil {
		t.Fatalf("VerifyResetCode failed: %v", err)
	}
}
