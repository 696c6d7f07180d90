package middleware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"authcore"
)

type fixedProvider struct {
	identity *authcore.Identity
}

func (p fixedProvider) FindByID(_ context.Context, id string) (*authcore.Identity, error) {
	if p.identity != nil && p.identity.ID == id {
		clone := *p.identity
		return &clone, nil
	}
	return nil, authcore.ErrIdentityNotFound
}

func (p fixedProvider) FindByCredentialLookup(_ context.Context, key string) (*authcore.Identity, error) {
	if p.identity != nil && p.identity.Identifier == key {
		clone := *p.identity
		return &clone, nil
	}
	return nil, authcore.ErrIdentityNotFound
}

func newGuardTestEngine(t *testing.T, mutate func(*authcore.Config)) (*authcore.Engine, *authcore.Identity) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	cfg := authcore.DefaultConfig()
	cfg.Token.PrivateKey = priv
	cfg.Token.PublicKey = pub
	if mutate != nil {
		mutate(&cfg)
	}

	identity := &authcore.Identity{ID: "u1", Status: authcore.IdentityActive, Role: "user"}
	engine, err := authcore.New().
		WithConfig(cfg).
		WithIdentityProvider(fixedProvider{identity: identity}).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, identity
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := DecisionFromContext(r.Context()); !ok {
			http.Error(w, "no decision in context", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func doGuarded(t *testing.T, handler http.Handler, configure func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.RemoteAddr = "192.0.2.1:50123"
	if configure != nil {
		configure(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGuardAdmitsValidToken(t *testing.T) {
	engine, identity := newGuardTestEngine(t, nil)
	token, err := engine.IssueToken(identity, "")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := Guard(engine)(okHandler())
	rec := doGuarded(t, handler, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
}

func TestGuardRejectsMissingCredentials(t *testing.T) {
	engine, _ := newGuardTestEngine(t, nil)

	rec := doGuarded(t, Guard(engine)(okHandler()), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGuardMapsAccessDenialTo403(t *testing.T) {
	engine, identity := newGuardTestEngine(t, func(cfg *authcore.Config) {
		cfg.AccessFilter.DenyList = []string{"192.0.2.1"}
	})
	token, _ := engine.IssueToken(identity, "")

	rec := doGuarded(t, Guard(engine)(okHandler()), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestGuardMapsThrottleTo429(t *testing.T) {
	engine, identity := newGuardTestEngine(t, func(cfg *authcore.Config) {
		cfg.RateLimit.MaxRequests = 1
	})
	token, _ := engine.IssueToken(identity, "")
	handler := Guard(engine)(okHandler())

	withToken := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	if rec := doGuarded(t, handler, withToken); rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}
	if rec := doGuarded(t, handler, withToken); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
}

func TestGuardRejectsUnsatisfiedMFA(t *testing.T) {
	engine, identity := newGuardTestEngine(t, func(cfg *authcore.Config) {
		cfg.DeviceBinding.RequireMFAOnNewDevice = true
	})

	if _, err := engine.BeginEnrollment(context.Background(), identity.ID, authcore.MethodTOTP); err != nil {
		t.Fatalf("BeginEnrollment: %v", err)
	}
	// Pending enrollment does not require step-up; only an enabled factor
	// does, so first exercise the unenrolled path.
	token, _ := engine.IssueToken(identity, "")
	rec := doGuarded(t, Guard(engine)(okHandler()), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set(HeaderFingerprint, "laptop-1")
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("pending enrollment must not block, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	engine, identity := newGuardTestEngine(t, nil)
	token, _ := engine.IssueToken(identity, "")
	withToken := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }

	if rec := doGuarded(t, RequireRole(engine, "user")(okHandler()), withToken); rec.Code != http.StatusOK {
		t.Fatalf("matching role: expected 200, got %d", rec.Code)
	}
	if rec := doGuarded(t, RequireRole(engine, "admin")(okHandler()), withToken); rec.Code != http.StatusForbidden {
		t.Fatalf("mismatched role: expected 403, got %d", rec.Code)
	}
}
