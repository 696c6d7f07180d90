package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T, mutate func(*Config)) *Manager {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	cfg := Config{
		TTL:           15 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "authcore-test",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestIssueParseRoundTrip(t *testing.T) {
	m := newTestManager(t, nil)

	token, err := m.Issue("u1", "laptop-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UID != "u1" || claims.Fingerprint != "laptop-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseExpiredToken(t *testing.T) {
	m := newTestManager(t, func(cfg *Config) {
		cfg.TTL = time.Minute
		cfg.Leeway = 0
	})

	token, err := m.IssueAt("u1", "", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("IssueAt: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestLeewayToleratesSmallSkew(t *testing.T) {
	m := newTestManager(t, func(cfg *Config) {
		cfg.TTL = time.Minute
		cfg.Leeway = 30 * time.Second
	})

	// Expired 10s ago, within leeway.
	token, err := m.IssueAt("u1", "", time.Now().Add(-70*time.Second))
	if err != nil {
		t.Fatalf("IssueAt: %v", err)
	}
	if _, err := m.Parse(token); err != nil {
		t.Fatalf("expected leeway to admit the token, got %v", err)
	}
}

func TestParseUsesInjectedTimeFunc(t *testing.T) {
	// A decade in the past relative to the wall clock.
	issued := time.Now().Add(-10 * 365 * 24 * time.Hour)
	verifyAt := issued.Add(30 * time.Second)

	m := newTestManager(t, func(cfg *Config) {
		cfg.TTL = time.Minute
		cfg.TimeFunc = func() time.Time { return verifyAt }
	})

	token, err := m.IssueAt("u1", "", issued)
	if err != nil {
		t.Fatalf("IssueAt: %v", err)
	}

	// Valid by the injected clock even though the wall clock is far past
	// expiry.
	if _, err := m.Parse(token); err != nil {
		t.Fatalf("expected injected-clock validity, got %v", err)
	}

	// And expired once the injected clock moves past the TTL.
	verifyAt = issued.Add(2 * time.Minute)
	if _, err := m.Parse(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired by the injected clock, got %v", err)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	issuerMgr := newTestManager(t, nil)
	verifierMgr := newTestManager(t, nil)

	token, err := issuerMgr.Issue("u1", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifierMgr.Parse(token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for foreign key, got %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	hmacMgr := newTestManager(t, func(cfg *Config) {
		cfg.SigningMethod = MethodHS256
		cfg.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
		cfg.PublicKey = nil
	})
	edMgr := newTestManager(t, nil)

	token, err := hmacMgr.Issue("u1", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := edMgr.Parse(token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for algorithm mismatch, got %v", err)
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}
	base := Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	}

	issuerCfg := base
	issuerCfg.Issuer = "svc-a"
	issuerMgr, err := NewManager(issuerCfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	verifierCfg := base
	verifierCfg.Issuer = "svc-b"
	verifierMgr, err := NewManager(verifierCfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := issuerMgr.Issue("u1", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifierMgr.Parse(token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for issuer mismatch, got %v", err)
	}
}

func TestParseRejectsEmptyUID(t *testing.T) {
	m := newTestManager(t, nil)

	token, err := m.Issue("", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for empty uid, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero ttl", Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub}},
		{"unknown method", Config{TTL: time.Minute, SigningMethod: "rs256"}},
		{"hs256 without key", Config{TTL: time.Minute, SigningMethod: MethodHS256}},
		{"ed25519 without public key", Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv}},
		{"excessive leeway", Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, Leeway: time.Hour}},
	}
	for _, tc := range cases {
		if _, err := NewManager(tc.cfg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
