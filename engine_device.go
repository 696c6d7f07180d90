package authcore

import (
	"context"
	"encoding/hex"

	"authcore/internal"
)

const (
	auditDeviceBind   = "device.bind"
	auditDeviceRevoke = "device.revoke"
)

// BindDevice records a sighting of the fingerprint for the identity. First
// sight creates the binding and reports [BindingNewDevice]; later sightings
// update last-seen and report [BindingKnownDevice]. The result is advisory:
// binding never blocks a request, policy layers decide what a new device
// means. Bindings are only removed through [Engine.RevokeDevice].
func (e *Engine) BindDevice(ctx context.Context, identity *Identity, fingerprint string) (BindingResult, error) {
	if e == nil || identity == nil {
		return BindingNewDevice, ErrEngineNotReady
	}
	if fingerprint == "" {
		// Nothing to bind against; treat every sighting as unrecognized.
		return BindingNewDevice, nil
	}

	fpHash := internal.HashFingerprint(fingerprint)
	now := e.now()

	storeCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	binding, err := e.devices.Get(storeCtx, identity.ID, fpHash)
	if err != nil {
		return BindingNewDevice, err
	}

	if binding == nil {
		binding = &DeviceBinding{
			IdentityID:      identity.ID,
			FingerprintHash: fpHash,
			FirstSeen:       now,
			LastSeen:        now,
			UseCount:        1,
		}
		if err := e.devices.Put(storeCtx, binding); err != nil {
			return BindingNewDevice, err
		}
		e.metricInc(MetricDeviceNew)
		e.emitAudit(ctx, auditTenant(identity), identity.ID, auditDeviceBind, fingerprintRef(fpHash), SeverityInfo, CategorySecurity, nil, map[string]string{"result": BindingNewDevice.String()})
		return BindingNewDevice, nil
	}

	binding.LastSeen = now
	binding.UseCount++
	if err := e.devices.Put(storeCtx, binding); err != nil {
		return BindingNewDevice, err
	}

	e.metricInc(MetricDeviceKnown)
	e.emitAudit(ctx, auditTenant(identity), identity.ID, auditDeviceBind, fingerprintRef(fpHash), SeverityInfo, CategorySecurity, nil, map[string]string{"result": BindingKnownDevice.String()})
	return BindingKnownDevice, nil
}

// RevokeDevice removes the binding for the fingerprint. This is the only
// deletion path for device bindings.
func (e *Engine) RevokeDevice(ctx context.Context, identity *Identity, fingerprint string) error {
	if e == nil || identity == nil {
		return ErrEngineNotReady
	}

	fpHash := internal.HashFingerprint(fingerprint)

	storeCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.devices.Delete(storeCtx, identity.ID, fpHash); err != nil {
		return err
	}

	e.metricInc(MetricDeviceRevoked)
	e.emitAudit(ctx, auditTenant(identity), identity.ID, auditDeviceRevoke, fingerprintRef(fpHash), SeverityInfo, CategorySecurity, nil, nil)
	return nil
}

// KnownDevices lists the identity's current bindings.
func (e *Engine) KnownDevices(ctx context.Context, identityID string) ([]DeviceBinding, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	storeCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	return e.devices.List(storeCtx, identityID)
}

// fingerprintRef is the audit resource form of a fingerprint hash. Only a
// short prefix lands in the log; raw fingerprints never do.
func fingerprintRef(fpHash [32]byte) string {
	return "device:" + hex.EncodeToString(fpHash[:6])
}
