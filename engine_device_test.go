package authcore

import (
	"context"
	"testing"
	"time"
)

func TestBindDeviceFirstSightThenKnown(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	identity := env.seedIdentity(t, "u1", "")

	status, err := env.engine.BindDevice(context.Background(), identity, "laptop-1")
	if err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if status != BindingNewDevice {
		t.Fatalf("expected NewDevice on first sight, got %s", status)
	}

	status, err = env.engine.BindDevice(context.Background(), identity, "laptop-1")
	if err != nil {
		t.Fatalf("second bind: %v", err)
	}
	if status != BindingKnownDevice {
		t.Fatalf("expected KnownDevice on repeat, got %s", status)
	}

	// A different fingerprint for the same identity is new again.
	status, err = env.engine.BindDevice(context.Background(), identity, "phone-1")
	if err != nil {
		t.Fatalf("third bind: %v", err)
	}
	if status != BindingNewDevice {
		t.Fatalf("expected NewDevice for a fresh fingerprint, got %s", status)
	}
}

func TestBindDeviceEmptyFingerprint(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	identity := env.seedIdentity(t, "u1", "")

	status, err := env.engine.BindDevice(context.Background(), identity, "")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if status != BindingNewDevice {
		t.Fatalf("expected NewDevice for an absent fingerprint, got %s", status)
	}

	devices, err := env.engine.KnownDevices(context.Background(), "u1")
	if err != nil {
		t.Fatalf("KnownDevices: %v", err)
	}
	if len(devices) != 0 {
		t.Fatalf("absent fingerprint must not create a binding, got %d", len(devices))
	}
}

func TestBindDeviceTracksUseCountAndLastSeen(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	identity := env.seedIdentity(t, "u1", "")

	first := env.clock.Now()
	if _, err := env.engine.BindDevice(context.Background(), identity, "laptop-1"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	env.clock.Add(2 * time.Minute)
	if _, err := env.engine.BindDevice(context.Background(), identity, "laptop-1"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	devices, err := env.engine.KnownDevices(context.Background(), "u1")
	if err != nil || len(devices) != 1 {
		t.Fatalf("expected one binding (err=%v, n=%d)", err, len(devices))
	}
	binding := devices[0]
	if binding.UseCount != 2 {
		t.Fatalf("expected use count 2, got %d", binding.UseCount)
	}
	if !binding.LastSeen.After(first) {
		t.Fatalf("LastSeen not advanced: first=%v last=%v", first, binding.LastSeen)
	}
	if binding.FirstSeen.After(binding.LastSeen) {
		t.Fatalf("FirstSeen after LastSeen: %v > %v", binding.FirstSeen, binding.LastSeen)
	}
}

func TestRevokeDevice(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	identity := env.seedIdentity(t, "u1", "")

	if _, err := env.engine.BindDevice(context.Background(), identity, "laptop-1"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := env.engine.RevokeDevice(context.Background(), identity, "laptop-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	status, err := env.engine.BindDevice(context.Background(), identity, "laptop-1")
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if status != BindingNewDevice {
		t.Fatalf("revoked device must be treated as new, got %s", status)
	}
}
