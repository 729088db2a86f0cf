package cineauth

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "hs256 signing valid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "hs256"
			},
			wantValid: true,
		},
		{
			name: "signing method invalid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "access ttl zero",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 0
			},
			wantValid: false,
		},
		{
			name: "reset ttl zero",
			mutate: func(c *Config) {
				c.JWT.ResetTTL = 0
			},
			wantValid: false,
		},
		{
			name: "refresh lifetime zero",
			mutate: func(c *Config) {
				c.Session.RefreshLifetime = 0
			},
			wantValid: false,
		},
		{
			name: "refresh lifetime below access ttl",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = time.Hour
				c.Session.RefreshLifetime = time.Minute
			},
			wantValid: false,
		},
		{
			name: "reset request ttl zero",
			mutate: func(c *Config) {
				c.PasswordReset.RequestTTL = 0
			},
			wantValid: false,
		},
		{
			name: "reset attempts zero",
			mutate: func(c *Config) {
				c.PasswordReset.MaxAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "code digits below floor",
			mutate: func(c *Config) {
				c.PasswordReset.CodeDigits = 4
			},
			wantValid: false,
		},
		{
			name: "code digits above ceiling",
			mutate: func(c *Config) {
				c.PasswordReset.CodeDigits = 12
			},
			wantValid: false,
		},
		{
			name: "rate policy without window",
			mutate: func(c *Config) {
				c.RateLimit.Policies[PathAuth] = RatePolicy{Requests: 5}
			},
			wantValid: false,
		},
		{
			name: "rate policy without ceiling",
			mutate: func(c *Config) {
				c.RateLimit.Policies[PathCatalog] = RatePolicy{Window: time.Minute}
			},
			wantValid: false,
		},
		{
			name: "bad policy ignored when disabled",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.Policies[PathAuth] = RatePolicy{}
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigIsolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte{1, 2, 3}

	cloned := cloneConfig(cfg)

	cfg.JWT.PrivateKey[0] = 99
	if cloned.JWT.PrivateKey[0] != 1 {
		t.Fatal("expected cloned key material to be isolated")
	}

	cfg.RateLimit.Policies[PathAuth] = RatePolicy{Requests: 1, Window: time.Second}
	if cloned.RateLimit.Policies[PathAuth].Requests == 1 {
		t.Fatal("expected cloned policies to be isolated")
	}
}
