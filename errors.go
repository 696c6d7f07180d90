package authcore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication core.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrMalformedCredential indicates a credential header that could not be
	// parsed (wrong scheme, empty value). Returned before any store access.
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrTokenExpired indicates a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a token that failed structural or signature checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrAPIKeyInvalid indicates a missing or mismatched API key.
	ErrAPIKeyInvalid = errors.New("invalid api key")
	// ErrInvalidCredentials indicates a failed identifier/password verification.
	// Deliberately generic: unknown identifier and wrong password are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdentityInactive indicates the resolved identity is deactivated or locked.
	ErrIdentityInactive = errors.New("identity inactive")
	// ErrIdentityNotFound is returned by identity providers for unknown ids.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityUnavailable indicates the identity backend is unreachable or timed out.
	ErrIdentityUnavailable = errors.New("identity backend unavailable")

	// ErrMFANotEnrolled indicates a challenge against a profile with no enrolled method.
	ErrMFANotEnrolled = errors.New("mfa not enrolled")
	// ErrMFAAlreadyEnrolled indicates enrollment was started on an enrolled profile.
	ErrMFAAlreadyEnrolled = errors.New("mfa already enrolled")
	// ErrMFAEnrollmentNotPending indicates confirmation without a pending enrollment.
	ErrMFAEnrollmentNotPending = errors.New("mfa enrollment not pending")
	// ErrMFAEnrollmentDiscarded indicates the pending secret was discarded after
	// too many failed confirmation attempts.
	ErrMFAEnrollmentDiscarded = errors.New("mfa enrollment discarded")
	// ErrMFAChallengeInvalid indicates an incorrect challenge code.
	ErrMFAChallengeInvalid = errors.New("mfa challenge invalid")
	// ErrMFALockedOut indicates the profile is locked out from further challenges.
	ErrMFALockedOut = errors.New("mfa locked out")
	// ErrMFAMethodUnknown indicates an unsupported enrollment method.
	ErrMFAMethodUnknown = errors.New("unknown mfa method")
	// ErrMFAUnavailable indicates the MFA profile or code backend is unreachable.
	ErrMFAUnavailable = errors.New("mfa backend unavailable")
	// ErrBackupCodeInvalid indicates no stored backup-code hash matched.
	ErrBackupCodeInvalid = errors.New("invalid backup code")
	// ErrBackupCodeExhausted indicates no unused backup codes remain.
	ErrBackupCodeExhausted = errors.New("backup codes exhausted")

	// ErrThrottled indicates the caller exceeded the sliding-window budget.
	ErrThrottled = errors.New("request throttled")
	// ErrAccessDenied indicates the caller IP was rejected by the access filter.
	ErrAccessDenied = errors.New("access denied")
	// ErrRoleDenied indicates the identity's resolved role did not satisfy the requirement.
	ErrRoleDenied = errors.New("role denied")

	// ErrAuditChainCorrupted indicates a hash-chain integrity violation. It is
	// never recovered locally: the affected chain refuses all further appends.
	ErrAuditChainCorrupted = errors.New("audit chain corrupted")
	// ErrAuditChainHalted indicates an append against a chain that already
	// observed corruption.
	ErrAuditChainHalted = errors.New("audit chain halted")
)

// LockoutError carries the lockout deadline alongside [ErrMFALockedOut].
// Lockout is the one failure surfaced precisely to callers; concealing it
// would hurt usability without a security benefit.
type LockoutError struct {
	Until time.Time
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("mfa locked out until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *LockoutError) Unwrap() error { return ErrMFALockedOut }

// ChainCorruptionError reports the first entry index at which audit-chain
// verification failed.
type ChainCorruptionError struct {
	Chain string
	Index uint64
}

func (e *ChainCorruptionError) Error() string {
	return fmt.Sprintf("audit chain %q corrupted at entry %d", e.Chain, e.Index)
}

func (e *ChainCorruptionError) Unwrap() error { return ErrAuditChainCorrupted }
