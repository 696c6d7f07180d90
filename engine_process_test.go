package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestProcessFullPipeline(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	identity := env.seedIdentity(t, "u1", "")

	decision, err := env.engine.Process(context.Background(), AccessRequest{
		IP:            "192.0.2.1",
		Authorization: env.bearerFor(t, identity, ""),
		Fingerprint:   "laptop-1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if decision.Identity == nil || decision.Identity.ID != "u1" {
		t.Fatalf("unexpected identity: %+v", decision.Identity)
	}
	if decision.DeviceStatus != BindingNewDevice {
		t.Fatalf("expected NewDevice on first sight, got %s", decision.DeviceStatus)
	}
	if decision.MFAStatus != MFANotRequired {
		t.Fatalf("unenrolled identity must not require MFA, got %v", decision.MFAStatus)
	}
	if decision.RateLimitStatus != RateAdmitted {
		t.Fatalf("expected RateAdmitted, got %v", decision.RateLimitStatus)
	}
}

func TestProcessDenyListSkipsIdentityStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.AccessFilter.DenyList = []string{"203.0.113.9"}
	env := newTestEngine(t, cfg)
	identity := env.seedIdentity(t, "u1", "")
	header := env.bearerFor(t, identity, "")

	_, err := env.engine.Process(context.Background(), AccessRequest{
		IP:            "203.0.113.9",
		Authorization: header,
	})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if n := env.provider.storeQueries(); n != 0 {
		t.Fatalf("denied request must not touch the identity store, got %d queries", n)
	}

	// The rejection itself is still audited.
	if env.engine.AuditLog().Chain(defaultAuditTenant).Len() == 0 {
		t.Fatal("expected an audit entry for the denial")
	}
}

func TestProcessThrottleSkipsIdentityStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.MaxRequests = 1
	env := newTestEngine(t, cfg)
	identity := env.seedIdentity(t, "u1", "")
	header := env.bearerFor(t, identity, "")

	if _, err := env.engine.Process(context.Background(), AccessRequest{IP: "192.0.2.1", Authorization: header}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	queriesAfterFirst := env.provider.storeQueries()

	decision, err := env.engine.Process(context.Background(), AccessRequest{IP: "192.0.2.1", Authorization: header})
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
	if decision.RateLimitStatus != RateThrottled {
		t.Fatalf("expected RateThrottled, got %v", decision.RateLimitStatus)
	}
	if env.provider.storeQueries() != queriesAfterFirst {
		t.Fatal("throttled request must not touch the identity store")
	}
}

func TestProcessRequiresMFAOnNewDevice(t *testing.T) {
	cfg := testConfig(t)
	cfg.DeviceBinding.RequireMFAOnNewDevice = true
	env := newTestEngine(t, cfg)
	identity := env.seedIdentity(t, "u1", "")
	enrollment, _ := enrollTOTP(t, env, "u1")

	// First sight of the fingerprint with no code: advisory MFARequired.
	decision, err := env.engine.Process(context.Background(), AccessRequest{
		IP:            "192.0.2.1",
		Authorization: env.bearerFor(t, identity, ""),
		Fingerprint:   "laptop-1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if decision.MFAStatus != MFARequired {
		t.Fatalf("expected MFARequired on new device, got %v", decision.MFAStatus)
	}

	// Same device again: binding is known, no step-up.
	decision, err = env.engine.Process(context.Background(), AccessRequest{
		IP:            "192.0.2.1",
		Authorization: env.bearerFor(t, identity, ""),
		Fingerprint:   "laptop-1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if decision.MFAStatus != MFANotRequired {
		t.Fatalf("expected MFANotRequired on known device, got %v", decision.MFAStatus)
	}

	// A second new device with a valid code satisfies the requirement inline.
	code := totpCodeAt(t, enrollment.SecretBase32, env.engine.config.MFA, env.clock.Now(), 0)
	decision, err = env.engine.Process(context.Background(), AccessRequest{
		IP:            "192.0.2.1",
		Authorization: env.bearerFor(t, identity, ""),
		Fingerprint:   "phone-1",
		MFACode:       code,
	})
	if err != nil {
		t.Fatalf("Process with code: %v", err)
	}
	if decision.MFAStatus != MFASatisfied {
		t.Fatalf("expected MFASatisfied, got %v", decision.MFAStatus)
	}
}

func TestProcessRejectsBadMFACode(t *testing.T) {
	cfg := testConfig(t)
	cfg.DeviceBinding.RequireMFAOnNewDevice = true
	env := newTestEngine(t, cfg)
	identity := env.seedIdentity(t, "u1", "")
	enrollTOTP(t, env, "u1")

	_, err := env.engine.Process(context.Background(), AccessRequest{
		IP:            "192.0.2.1",
		Authorization: env.bearerFor(t, identity, ""),
		Fingerprint:   "laptop-1",
		MFACode:       "000000",
	})
	if !errors.Is(err, ErrMFAChallengeInvalid) {
		t.Fatalf("expected ErrMFAChallengeInvalid, got %v", err)
	}
}

func TestProcessUsesTokenFingerprintClaim(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	identity := env.seedIdentity(t, "u1", "")

	// No fingerprint header; the binding comes from the token claim.
	header := env.bearerFor(t, identity, "laptop-1")
	if _, err := env.engine.Process(context.Background(), AccessRequest{IP: "192.0.2.1", Authorization: header}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	devices, err := env.engine.KnownDevices(context.Background(), "u1")
	if err != nil || len(devices) != 1 {
		t.Fatalf("expected one binding from the token claim (err=%v, n=%d)", err, len(devices))
	}
}

func TestAuthorize(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	identity := env.seedIdentity(t, "u1", "")
	identity.Role = "user"

	if err := env.engine.Authorize(context.Background(), identity, "user"); err != nil {
		t.Fatalf("matching role rejected: %v", err)
	}
	if err := env.engine.Authorize(context.Background(), identity, "admin"); !errors.Is(err, ErrRoleDenied) {
		t.Fatalf("expected ErrRoleDenied, got %v", err)
	}
	if err := env.engine.Authorize(context.Background(), identity, ""); err != nil {
		t.Fatalf("empty required role must pass: %v", err)
	}
	if err := env.engine.Authorize(context.Background(), nil, "user"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("nil identity: expected ErrAccessDenied, got %v", err)
	}
}

type staticRoleResolver struct{ role string }

func (r staticRoleResolver) RoleOf(context.Context, *Identity) (string, error) {
	return r.role, nil
}

func TestAuthorizePrefersRoleResolver(t *testing.T) {
	cfg := testConfig(t)

	mockEnv := newTestEngine(t, cfg)
	engine, err := New().
		WithConfig(cfg).
		WithIdentityProvider(mockEnv.provider).
		WithRoleResolver(staticRoleResolver{role: "admin"}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)

	// The record says "user" but the resolver says "admin"; the resolver wins.
	identity := &Identity{ID: "u1", Status: IdentityActive, Role: "user"}
	if err := engine.Authorize(context.Background(), identity, "admin"); err != nil {
		t.Fatalf("resolver role rejected: %v", err)
	}
	if err := engine.Authorize(context.Background(), identity, "user"); !errors.Is(err, ErrRoleDenied) {
		t.Fatalf("expected ErrRoleDenied against resolver role, got %v", err)
	}
}
