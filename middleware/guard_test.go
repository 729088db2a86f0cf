package middleware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	cineauth "github.com/cinemate/cineauth"
	"github.com/cinemate/cineauth/password"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type memoryProvider struct {
	mu      sync.RWMutex
	users   map[string]cineauth.UserRecord
	byEmail map[string]string
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{
		users:   make(map[string]cineauth.UserRecord),
		byEmail: make(map[string]string),
	}
}

func (p *memoryProvider) put(u cineauth.UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.UserID] = u
	p.byEmail[u.Email] = u.UserID
}

func (p *memoryProvider) GetUserByEmail(email string) (cineauth.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.byEmail[email]
	if !ok {
		return cineauth.UserRecord{}, cineauth.ErrProviderUserNotFound
	}
	return p.users[id], nil
}

func (p *memoryProvider) GetUserByID(userID string) (cineauth.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	u, ok := p.users[userID]
	if !ok {
		return cineauth.UserRecord{}, cineauth.ErrProviderUserNotFound
	}
	return u, nil
}

func (p *memoryProvider) CreateUser(input cineauth.CreateUserInput) (cineauth.UserRecord, error) {
	return cineauth.UserRecord{}, errors.New("not implemented")
}

func (p *memoryProvider) UpdatePasswordHash(userID, newHash string) error { return nil }

func (p *memoryProvider) UpdateLastLogin(string, time.Time) error { return nil }

func newMiddlewareEngine(t *testing.T) (*cineauth.Engine, string) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := cineauth.DefaultConfig()
	cfg.JWT.Issuer = "cineauth-test"
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16

	provider := newMemoryProvider()
	engine, err := cineauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	// Seed one account and mint a token for it through the engine itself.
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("hasher init failed: %v", err)
	}
	hash, err := hasher.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	provider.put(cineauth.UserRecord{
		UserID:       "u1",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Active:       true,
	})

	result, err := engine.Login(context.Background(), "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	return engine, result.AccessToken
}

func TestGuardAllowsValidToken(t *testing.T) {
	engine, token := newMiddlewareEngine(t)

	var gotUserID string
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if !ok {
			t.Fatal("expected auth result in context")
		}
		gotUserID = res.UserID
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUserID != "u1" {
		t.Fatalf("expected user u1, got %q", gotUserID)
	}
}

func TestGuardRejectsMissingAndInvalidTokens(t *testing.T) {
	engine, _ := newMiddlewareEngine(t)

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	}))

	for _, header := range []string{"", "Bearer ", "Bearer garbage", "Basic dXNlcg=="} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	engine, _ := newMiddlewareEngine(t)

	handler := RateLimit(engine, cineauth.PathAuth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 1; i <= 5; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on breach, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	// The block now rejects the IP with 403 on any route.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/titles", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	RateLimit(engine, cineauth.PathCatalog)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 during block, got %d", rec.Code)
	}
}

func TestRateLimitHonorsForwardedFor(t *testing.T) {
	engine, _ := newMiddlewareEngine(t)

	handler := RateLimit(engine, cineauth.PathAuth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust the ceiling for one forwarded client.
	for i := 0; i < 6; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "10.0.0.1:443"
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		handler.ServeHTTP(rec, req)
	}

	// A different forwarded client behind the same proxy is unaffected.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unblocked client, got %d", rec.Code)
	}
}
