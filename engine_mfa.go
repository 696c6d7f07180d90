package authcore

import (
	"context"
	"time"

	"authcore/internal"
)

const (
	auditMFAEnrollBegin   = "mfa.enroll.begin"
	auditMFAEnrollConfirm = "mfa.enroll.confirm"
	auditMFAEnrollDiscard = "mfa.enroll.discard"
	auditMFAChallenge     = "mfa.challenge"
	auditMFALockout       = "mfa.lockout"
	auditMFADisable       = "mfa.disable"
	auditMFAProfileStore  = "mfa.profile.store"
)

// BeginEnrollment starts MFA enrollment for an identity. TOTP enrollment
// returns the generated secret and provisioning URI; SMS and email issue a
// transient confirmation code through the notification dispatcher instead.
// The profile moves to PendingConfirmation; an already-enrolled profile is
// rejected.
func (e *Engine) BeginEnrollment(ctx context.Context, identityID string, method MFAMethod) (*MFAEnrollment, error) {
	if e == nil || !e.config.MFA.Enabled {
		return nil, ErrEngineNotReady
	}

	handler, err := e.methodFor(method)
	if err != nil {
		return nil, err
	}

	unlock := e.profileLocks.Lock(identityID)
	defer unlock()

	profile, err := e.getProfile(ctx, identityID)
	if err != nil {
		return nil, err
	}

	if profile.State == MFAEnrolled || profile.State == MFALocked {
		return nil, ErrMFAAlreadyEnrolled
	}

	profile.Method = method
	profile.Secret = nil
	profile.ConfirmAttempts = 0
	profile.LastUsedCounter = 0

	enrollment, err := handler.begin(ctx, e, profile)
	if err != nil {
		e.emitAudit(ctx, "", identityID, auditMFAEnrollBegin, string(method), SeverityWarning, CategorySecurity, err, nil)
		return nil, err
	}

	profile.State = MFAPendingConfirmation
	if err := e.putProfile(ctx, profile); err != nil {
		return nil, err
	}

	e.metricInc(MetricMFAEnrollment)
	e.emitAudit(ctx, "", identityID, auditMFAEnrollBegin, string(method), SeverityInfo, CategorySecurity, nil, nil)
	return enrollment, nil
}

// ConfirmEnrollment validates the first code against the pending secret.
// Success moves the profile to Enrolled, enables it, and returns the
// freshly generated batch of single-use backup codes. Failures increment a
// confirmation counter; exceeding the cap discards the pending secret and
// returns the profile to Unenrolled.
func (e *Engine) ConfirmEnrollment(ctx context.Context, identityID, code string) ([]string, error) {
	if e == nil || !e.config.MFA.Enabled {
		return nil, ErrEngineNotReady
	}

	unlock := e.profileLocks.Lock(identityID)
	defer unlock()

	profile, err := e.getProfile(ctx, identityID)
	if err != nil {
		return nil, err
	}

	if profile.State != MFAPendingConfirmation {
		return nil, ErrMFAEnrollmentNotPending
	}

	handler, err := e.methodFor(profile.Method)
	if err != nil {
		return nil, err
	}

	ok, err := handler.validate(ctx, e, profile, codePurposeEnroll, code)
	if err != nil {
		e.emitAudit(ctx, "", identityID, auditMFAEnrollConfirm, string(profile.Method), SeverityCritical, CategorySystem, err, map[string]string{"kind": "system_error"})
		return nil, err
	}

	if !ok {
		profile.ConfirmAttempts++
		if profile.ConfirmAttempts >= e.config.MFA.MaxConfirmAttempts {
			profile.State = MFAUnenrolled
			profile.Secret = nil
			profile.ConfirmAttempts = 0
			if putErr := e.putProfile(ctx, profile); putErr != nil {
				return nil, putErr
			}
			e.emitAudit(ctx, "", identityID, auditMFAEnrollDiscard, string(profile.Method), SeverityWarning, CategorySecurity, ErrMFAEnrollmentDiscarded, nil)
			return nil, ErrMFAEnrollmentDiscarded
		}
		if putErr := e.putProfile(ctx, profile); putErr != nil {
			return nil, putErr
		}
		e.emitAudit(ctx, "", identityID, auditMFAEnrollConfirm, string(profile.Method), SeverityWarning, CategorySecurity, ErrMFAChallengeInvalid, nil)
		return nil, ErrMFAChallengeInvalid
	}

	codes, hashes, err := e.newBackupCodes(identityID)
	if err != nil {
		return nil, err
	}

	profile.State = MFAEnrolled
	profile.Enabled = true
	profile.ConfirmAttempts = 0
	profile.FailedAttempts = 0
	profile.BackupCodes = hashes
	if err := e.putProfile(ctx, profile); err != nil {
		return nil, err
	}

	e.emitAudit(ctx, "", identityID, auditMFAEnrollConfirm, string(profile.Method), SeverityInfo, CategorySecurity, nil, nil)
	return codes, nil
}

// IssueChallenge produces a fresh login challenge for methods that need
// delivery (SMS, email). TOTP profiles need nothing sent and return nil.
func (e *Engine) IssueChallenge(ctx context.Context, identityID string) error {
	if e == nil || !e.config.MFA.Enabled {
		return ErrEngineNotReady
	}

	unlock := e.profileLocks.Lock(identityID)
	defer unlock()

	profile, err := e.getProfile(ctx, identityID)
	if err != nil {
		return err
	}
	if profile.State != MFAEnrolled && profile.State != MFALocked {
		return ErrMFANotEnrolled
	}

	handler, err := e.methodFor(profile.Method)
	if err != nil {
		return err
	}
	return handler.send(ctx, e, profile, codePurposeChallenge)
}

// Challenge evaluates a login challenge code against the enrolled method.
//
// A correct code leaves the profile Enrolled and resets the failure counter.
// An incorrect code increments it; reaching the configured maximum locks the
// profile until now+LockoutDuration. While locked every attempt fails with
// [ErrMFALockedOut] without touching the counter, so repeated attempts
// cannot extend the lockout; once the deadline passes the next challenge is
// evaluated as if Enrolled with a fresh counter.
func (e *Engine) Challenge(ctx context.Context, identityID, code string) error {
	if e == nil || !e.config.MFA.Enabled {
		return ErrEngineNotReady
	}

	unlock := e.profileLocks.Lock(identityID)
	defer unlock()

	profile, err := e.getProfile(ctx, identityID)
	if err != nil {
		return err
	}

	switch profile.State {
	case MFAEnrolled:
	case MFALocked:
		if e.now().Before(profile.LockedUntil) {
			e.metricInc(MetricMFAChallengeFailure)
			e.emitAudit(ctx, "", identityID, auditMFAChallenge, string(profile.Method), SeverityWarning, CategorySecurity, ErrMFALockedOut, nil)
			return &LockoutError{Until: profile.LockedUntil}
		}
		profile.State = MFAEnrolled
		profile.FailedAttempts = 0
	default:
		return ErrMFANotEnrolled
	}

	handler, err := e.methodFor(profile.Method)
	if err != nil {
		return err
	}

	ok, err := handler.validate(ctx, e, profile, codePurposeChallenge, code)
	if err != nil {
		e.emitAudit(ctx, "", identityID, auditMFAChallenge, string(profile.Method), SeverityCritical, CategorySystem, err, map[string]string{"kind": "system_error"})
		return err
	}

	if ok {
		profile.FailedAttempts = 0
		if err := e.putProfile(ctx, profile); err != nil {
			return err
		}
		e.metricInc(MetricMFAChallengeSuccess)
		e.emitAudit(ctx, "", identityID, auditMFAChallenge, string(profile.Method), SeverityInfo, CategorySecurity, nil, nil)
		return nil
	}

	profile.FailedAttempts++
	if profile.FailedAttempts >= e.config.MFA.MaxAttempts {
		profile.State = MFALocked
		profile.LockedUntil = e.now().Add(e.config.MFA.LockoutDuration)
		if err := e.putProfile(ctx, profile); err != nil {
			return err
		}
		e.metricInc(MetricMFALockout)
		e.emitAudit(ctx, "", identityID, auditMFALockout, string(profile.Method), SeverityCritical, CategorySecurity, ErrMFALockedOut, map[string]string{
			"until": profile.LockedUntil.UTC().Format(time.RFC3339),
		})
		return &LockoutError{Until: profile.LockedUntil}
	}

	if err := e.putProfile(ctx, profile); err != nil {
		return err
	}
	e.metricInc(MetricMFAChallengeFailure)
	e.emitAudit(ctx, "", identityID, auditMFAChallenge, string(profile.Method), SeverityWarning, CategorySecurity, ErrMFAChallengeInvalid, nil)
	return ErrMFAChallengeInvalid
}

// DisableMFA turns the factor off. The caller is assumed to have already
// re-authenticated. The profile returns to Unenrolled with its secret and
// backup codes cleared; the record itself is preserved, never deleted.
func (e *Engine) DisableMFA(ctx context.Context, identityID string) error {
	if e == nil || !e.config.MFA.Enabled {
		return ErrEngineNotReady
	}

	unlock := e.profileLocks.Lock(identityID)
	defer unlock()

	profile, err := e.getProfile(ctx, identityID)
	if err != nil {
		return err
	}

	method := profile.Method
	profile.State = MFAUnenrolled
	profile.Enabled = false
	profile.Secret = nil
	profile.BackupCodes = nil
	profile.ConfirmAttempts = 0
	profile.FailedAttempts = 0
	profile.LastUsedCounter = 0
	if err := e.putProfile(ctx, profile); err != nil {
		return err
	}

	e.emitAudit(ctx, "", identityID, auditMFADisable, string(method), SeverityWarning, CategorySecurity, nil, nil)
	return nil
}

// MFAEnrolled reports whether the identity currently has an enabled factor.
func (e *Engine) MFAEnrolled(ctx context.Context, identityID string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}

	profile, err := e.getProfile(ctx, identityID)
	if err != nil {
		return false, err
	}
	return profile.Enabled && (profile.State == MFAEnrolled || profile.State == MFALocked), nil
}

func (e *Engine) getProfile(ctx context.Context, identityID string) (*MFAProfile, error) {
	storeCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	profile, err := e.profiles.Get(storeCtx, identityID)
	if err != nil {
		e.emitAudit(ctx, "", identityID, auditMFAProfileStore, "", SeverityCritical, CategorySystem, err, map[string]string{"kind": "system_error"})
		return nil, ErrMFAUnavailable
	}
	if profile == nil {
		profile = &MFAProfile{IdentityID: identityID, State: MFAUnenrolled}
	}
	return profile, nil
}

func (e *Engine) putProfile(ctx context.Context, profile *MFAProfile) error {
	profile.UpdatedAt = e.now()

	storeCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.profiles.Put(storeCtx, profile); err != nil {
		e.emitAudit(ctx, "", profile.IdentityID, auditMFAProfileStore, "", SeverityCritical, CategorySystem, err, map[string]string{"kind": "system_error"})
		return ErrMFAUnavailable
	}
	return nil
}

func (e *Engine) newBackupCodes(identityID string) ([]string, [][32]byte, error) {
	count := e.config.MFA.BackupCodeCount
	length := e.config.MFA.BackupCodeLength

	codes := make([]string, 0, count)
	hashes := make([][32]byte, 0, count)
	for i := 0; i < count; i++ {
		raw, err := internal.NewBackupCode(length)
		if err != nil {
			return nil, nil, err
		}
		canonical := internal.CanonicalizeBackupCode(raw)
		hashes = append(hashes, internal.BackupCodeHash(identityID, canonical))
		codes = append(codes, internal.FormatBackupCode(raw))
	}
	return codes, hashes, nil
}
