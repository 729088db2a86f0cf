package cineauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func waitForEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()

	select {
	case event := <-sink.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func TestAuditLoginEvents(t *testing.T) {
	sink := NewChannelSink(16)

	_, rdb := newTestRedis(t)
	cfg := newTestConfig(t)

	provider := newMockUserProvider()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(provider).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	defer engine.Close()

	hash, err := engine.passwordHash.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	provider.put(UserRecord{UserID: "u1", Email: "alice@example.com", PasswordHash: hash, Active: true})

	ctx := WithClientIP(context.Background(), "203.0.113.7")

	if _, err := engine.Login(ctx, "alice@example.com", "wrong-password-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	event := waitForEvent(t, sink)
	if event.EventType != auditEventLoginFailure {
		t.Fatalf("expected %q event, got %q", auditEventLoginFailure, event.EventType)
	}
	if event.Success {
		t.Fatal("failure event must not be marked successful")
	}
	if event.IP != "203.0.113.7" {
		t.Fatalf("expected client IP on the event, got %q", event.IP)
	}
	if event.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("unexpected error code %q", event.Error)
	}
	if event.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("unexpected metadata: %v", event.Metadata)
	}

	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse-battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	event = waitForEvent(t, sink)
	if event.EventType != auditEventLoginSuccess || !event.Success {
		t.Fatalf("expected successful login event, got %+v", event)
	}
	if event.UserID != "u1" || event.SessionID == "" {
		t.Fatalf("expected user and session references, got %+v", event)
	}
}

func TestAuditEventsNeverCarryCodes(t *testing.T) {
	sink := NewChannelSink(64)

	_, rdb := newTestRedis(t)
	cfg := newTestConfig(t)

	provider := newMockUserProvider()
	deliverer := newCaptureDeliverer()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(provider).
		WithCodeDeliverer(deliverer).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	defer engine.Close()

	hash, err := engine.passwordHash.Hash("old-password-123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	provider.put(UserRecord{UserID: "u1", Email: "alice@example.com", PasswordHash: hash, Active: true})

	ctx := context.Background()
	reset, err := engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	code := deliverer.code("alice@example.com")
	if err := engine.VerifyResetCode(ctx, reset.ResetToken, code); err != nil {
		t.Fatalf("VerifyResetCode failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		event := waitForEvent(t, sink)
		raw, err := json.Marshal(event)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if strings.Contains(string(raw), code) {
			t.Fatalf("audit event leaked the one-time code: %s", raw)
		}
	}
}

func TestAuditDisabledByDefault(t *testing.T) {
	te := newTestEngine(t, nil)

	if te.engine.audit != nil {
		t.Fatal("expected no dispatcher without an audit sink")
	}
	if te.engine.AuditDropped() != 0 {
		t.Fatal("expected zero dropped events")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: "login_success",
		UserID:    "u1",
		Success:   true,
	})

	line := strings.TrimSpace(buf.String())
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.EventType != "login_success" || decoded.UserID != "u1" || !decoded.Success {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// A sink that blocks forever forces the buffer to fill.
	blocked := make(chan struct{})

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, blockingSink{blocked})
	defer func() {
		close(blocked)
		d.Close()
	}()

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "login_failure"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, AuditEvent) {
	<-s.release
}
