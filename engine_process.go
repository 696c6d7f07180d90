package authcore

import (
	"context"
)

const auditAuthorize = "authorize"

// Process runs the full admission pipeline for one inbound request:
// access filter, rate limiter, credential verification, device binding,
// and the MFA requirement check, in that order. A deny or throttle
// short-circuits before any identity store is consulted.
//
// A non-nil Decision with MFAStatus == MFARequired and no error means the
// caller must obtain a challenge response and retry; Process itself never
// blocks a request on that signal.
func (e *Engine) Process(ctx context.Context, req AccessRequest) (*Decision, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.CheckAccess(ctx, req.IP); err != nil {
		return &Decision{RateLimitStatus: RateAdmitted}, err
	}

	if err := e.Admit(ctx, "ip:"+req.IP); err != nil {
		return &Decision{RateLimitStatus: RateThrottled}, err
	}

	identity, claims, err := e.verifyRequestClaims(ctx, req.Authorization, req.APIKey)
	if err != nil {
		return &Decision{RateLimitStatus: RateAdmitted}, err
	}

	decision := &Decision{
		Identity:        identity,
		DeviceStatus:    BindingKnownDevice,
		MFAStatus:       MFANotRequired,
		RateLimitStatus: RateAdmitted,
	}

	fingerprint := req.Fingerprint
	if fingerprint == "" && claims != nil {
		fingerprint = claims.Fingerprint
	}

	if e.config.DeviceBinding.Enabled {
		status, err := e.BindDevice(ctx, identity, fingerprint)
		if err != nil {
			return decision, err
		}
		decision.DeviceStatus = status
	}

	if e.mfaRequired(ctx, identity, decision.DeviceStatus) {
		decision.MFAStatus = MFARequired
		if req.MFACode != "" {
			if err := e.Challenge(ctx, identity.ID, req.MFACode); err != nil {
				return decision, err
			}
			decision.MFAStatus = MFASatisfied
		}
	}

	return decision, nil
}

// mfaRequired decides whether this request needs a challenge response.
// New-device step-up is policy, not a mandate of device binding itself.
func (e *Engine) mfaRequired(ctx context.Context, identity *Identity, deviceStatus BindingResult) bool {
	if !e.config.MFA.Enabled {
		return false
	}
	enrolled, err := e.MFAEnrolled(ctx, identity.ID)
	if err != nil || !enrolled {
		return false
	}
	if e.config.DeviceBinding.Enabled && e.config.DeviceBinding.RequireMFAOnNewDevice {
		return deviceStatus == BindingNewDevice
	}
	return false
}

// Authorize resolves the identity's effective role and compares it against
// the required one. There is no environment in which the comparison is
// skipped. A mismatch is audited as an AUTHORIZATION event.
func (e *Engine) Authorize(ctx context.Context, identity *Identity, requiredRole string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if identity == nil {
		return ErrAccessDenied
	}
	if requiredRole == "" {
		return nil
	}

	role := identity.Role
	if e.roles != nil {
		sctx, cancel := e.storeCtx(ctx)
		resolved, err := e.roles.RoleOf(sctx, identity)
		cancel()
		if err != nil {
			e.emitAudit(ctx, auditTenant(identity), identity.ID, auditAuthorize, requiredRole, SeverityCritical, CategorySystem, err, map[string]string{"kind": "system_error"})
			return ErrIdentityUnavailable
		}
		role = resolved
	}

	if role != requiredRole {
		e.metricInc(MetricAccessDenied)
		e.emitAudit(ctx, auditTenant(identity), identity.ID, auditAuthorize, requiredRole, SeverityWarning, CategoryAuthorization, ErrRoleDenied, map[string]string{"role": role})
		return ErrRoleDenied
	}

	e.emitAudit(ctx, auditTenant(identity), identity.ID, auditAuthorize, requiredRole, SeverityInfo, CategoryAuthorization, nil, nil)
	return nil
}
