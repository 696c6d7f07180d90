package authcore

import (
	"context"
	"strconv"

	"authcore/internal"
)

const (
	auditBackupRedeem     = "mfa.backup.redeem"
	auditBackupRegenerate = "mfa.backup.regenerate"
)

// RedeemBackupCode consumes one single-use backup code in place of a regular
// challenge. A match behaves as a successful challenge (failure counter
// reset) and removes the spent hash so the code can never be replayed.
// Lockout applies the same as to regular challenges.
func (e *Engine) RedeemBackupCode(ctx context.Context, identityID, code string) error {
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
			e.metricInc(MetricBackupCodeFailed)
			e.emitAudit(ctx, "", identityID, auditBackupRedeem, "", SeverityWarning, CategorySecurity, ErrMFALockedOut, nil)
			return &LockoutError{Until: profile.LockedUntil}
		}
		profile.State = MFAEnrolled
		profile.FailedAttempts = 0
	default:
		return ErrMFANotEnrolled
	}

	if len(profile.BackupCodes) == 0 {
		e.metricInc(MetricBackupCodeFailed)
		e.emitAudit(ctx, "", identityID, auditBackupRedeem, "", SeverityWarning, CategorySecurity, ErrBackupCodeExhausted, nil)
		return ErrBackupCodeExhausted
	}

	canonical := internal.CanonicalizeBackupCode(code)
	target := internal.BackupCodeHash(identityID, canonical)

	match := -1
	for i, h := range profile.BackupCodes {
		if h == target {
			match = i
			break
		}
	}
	if match < 0 {
		e.metricInc(MetricBackupCodeFailed)
		e.emitAudit(ctx, "", identityID, auditBackupRedeem, "", SeverityWarning, CategorySecurity, ErrBackupCodeInvalid, nil)
		return ErrBackupCodeInvalid
	}

	profile.BackupCodes = append(profile.BackupCodes[:match], profile.BackupCodes[match+1:]...)
	profile.FailedAttempts = 0
	if err := e.putProfile(ctx, profile); err != nil {
		return err
	}

	e.metricInc(MetricBackupCodeUsed)
	e.emitAudit(ctx, "", identityID, auditBackupRedeem, "", SeverityInfo, CategorySecurity, nil, map[string]string{
		"remaining": strconv.Itoa(len(profile.BackupCodes)),
	})
	return nil
}

// RegenerateBackupCodes replaces the entire batch. A fresh primary-method
// code is required so a stolen session cannot rotate codes silently.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, identityID, challengeCode string) ([]string, error) {
	if e == nil || !e.config.MFA.Enabled {
		return nil, ErrEngineNotReady
	}

	unlock := e.profileLocks.Lock(identityID)
	defer unlock()

	profile, err := e.getProfile(ctx, identityID)
	if err != nil {
		return nil, err
	}

	if profile.State != MFAEnrolled {
		return nil, ErrMFANotEnrolled
	}

	handler, err := e.methodFor(profile.Method)
	if err != nil {
		return nil, err
	}

	ok, err := handler.validate(ctx, e, profile, codePurposeChallenge, challengeCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.emitAudit(ctx, "", identityID, auditBackupRegenerate, "", SeverityWarning, CategorySecurity, ErrMFAChallengeInvalid, nil)
		return nil, ErrMFAChallengeInvalid
	}

	codes, hashes, err := e.newBackupCodes(identityID)
	if err != nil {
		return nil, err
	}

	profile.BackupCodes = hashes
	if err := e.putProfile(ctx, profile); err != nil {
		return nil, err
	}

	e.emitAudit(ctx, "", identityID, auditBackupRegenerate, "", SeverityInfo, CategorySecurity, nil, nil)
	return codes, nil
}
