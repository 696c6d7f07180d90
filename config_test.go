package authcore

import (
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func TestConfigValidationRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad signing method", func(c *Config) { c.Token.SigningMethod = "rs256" }},
		{"zero token ttl", func(c *Config) { c.Token.TTL = 0 }},
		{"api key without key", func(c *Config) { c.APIKey.Enabled = true; c.APIKey.ServiceIdentityID = "svc" }},
		{"api key without identity", func(c *Config) { c.APIKey.Enabled = true; c.APIKey.Key = []byte("k") }},
		{"zero rate budget", func(c *Config) { c.RateLimit.MaxRequests = 0 }},
		{"zero rate window", func(c *Config) { c.RateLimit.Window = 0 }},
		{"mfa digits too small", func(c *Config) { c.MFA.Digits = 4 }},
		{"mfa skew too large", func(c *Config) { c.MFA.Skew = 9 }},
		{"zero mfa attempts", func(c *Config) { c.MFA.MaxAttempts = 0 }},
		{"zero lockout", func(c *Config) { c.MFA.LockoutDuration = 0 }},
		{"zero code ttl", func(c *Config) { c.MFA.CodeTTL = 0 }},
		{"zero store timeout", func(c *Config) { c.StoreTimeout = 0 }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestCloneConfigDeepCopiesSlices(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.PrivateKey = []byte("private")
	cfg.APIKey.Key = []byte("key")
	cfg.AccessFilter.DenyList = []string{"203.0.113.9"}

	clone := cloneConfig(cfg)
	cfg.Token.PrivateKey[0] = 'X'
	cfg.APIKey.Key[0] = 'X'
	cfg.AccessFilter.DenyList[0] = "changed"

	if clone.Token.PrivateKey[0] != 'p' || clone.APIKey.Key[0] != 'k' {
		t.Fatal("key material shared between clone and original")
	}
	if clone.AccessFilter.DenyList[0] != "203.0.113.9" {
		t.Fatal("filter list shared between clone and original")
	}
}

func TestBuilderRequiresIdentityProvider(t *testing.T) {
	cfg := testConfig(t)
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected build failure without an identity provider")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig(t)).WithIdentityProvider(newStubProvider())
	if _, err := b.Build(); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second build to fail")
	}
}
