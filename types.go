package authcore

import (
	"context"
	"time"
)

// IdentityStatus represents the lifecycle state of an identity.
type IdentityStatus uint8

const (
	// IdentityActive is an exported constant or variable used by the authentication core.
	IdentityActive IdentityStatus = iota
	// IdentityDisabled is an exported constant or variable used by the authentication core.
	IdentityDisabled
	// IdentityLocked is an exported constant or variable used by the authentication core.
	IdentityLocked
)

// Identity is the stable account record resolved by the credential verifier.
// The role is an opaque string resolved externally through [RoleResolver].
type Identity struct {
	ID             string
	Identifier     string
	TenantID       string
	CredentialHash string
	Status         IdentityStatus
	Role           string
}

// Active reports whether the identity may authenticate.
func (i *Identity) Active() bool {
	return i != nil && i.Status == IdentityActive
}

// IdentityProvider is the interface callers implement to connect the core to
// their identity store. Lookups may block; the engine applies its configured
// timeout around every call.
type IdentityProvider interface {
	FindByID(ctx context.Context, id string) (*Identity, error)
	FindByCredentialLookup(ctx context.Context, key string) (*Identity, error)
}

// RoleResolver maps an identity to its effective role. Role-to-permission
// mapping is out of scope for the core; this lookup is the only policy
// surface it consumes.
type RoleResolver interface {
	RoleOf(ctx context.Context, identity *Identity) (string, error)
}

// MFAMethod identifies the enrolled second factor.
type MFAMethod string

const (
	// MethodTOTP is an exported constant or variable used by the authentication core.
	MethodTOTP MFAMethod = "totp"
	// MethodSMS is an exported constant or variable used by the authentication core.
	MethodSMS MFAMethod = "sms"
	// MethodEmail is an exported constant or variable used by the authentication core.
	MethodEmail MFAMethod = "email"
)

// MFAState is the challenge-engine state machine position of a profile.
type MFAState uint8

const (
	// MFAUnenrolled is an exported constant or variable used by the authentication core.
	MFAUnenrolled MFAState = iota
	// MFAPendingConfirmation is an exported constant or variable used by the authentication core.
	MFAPendingConfirmation
	// MFAEnrolled is an exported constant or variable used by the authentication core.
	MFAEnrolled
	// MFALocked is an exported constant or variable used by the authentication core.
	MFALocked
)

// MFAProfile is the per-identity MFA record. Exactly one profile exists per
// identity. Disabling preserves the record with Enabled=false; profiles are
// never hard-deleted. Secret holds opaque material (TOTP secrets) and is
// never written to audit detail.
type MFAProfile struct {
	IdentityID      string
	Enabled         bool
	Method          MFAMethod
	State           MFAState
	Secret          []byte
	ConfirmAttempts int
	FailedAttempts  int
	LastUsedCounter int64
	LockedUntil     time.Time
	BackupCodes     [][32]byte
	UpdatedAt       time.Time
}

// MFAProfileStore persists MFA profiles. Implementations are expected to be
// backed by the external secret store; the core never logs secret material.
// Get returns a zero-state profile (not an error) for identities with no
// record yet.
type MFAProfileStore interface {
	Get(ctx context.Context, identityID string) (*MFAProfile, error)
	Put(ctx context.Context, profile *MFAProfile) error
}

// DeviceBinding maps (identity, fingerprint hash) to sighting metadata.
// Bindings are created on first sight and only removed by explicit revoke.
type DeviceBinding struct {
	IdentityID      string
	FingerprintHash [32]byte
	FirstSeen       time.Time
	LastSeen        time.Time
	UseCount        uint64
}

// DeviceBindingStore persists device bindings.
type DeviceBindingStore interface {
	Get(ctx context.Context, identityID string, fingerprintHash [32]byte) (*DeviceBinding, error)
	Put(ctx context.Context, binding *DeviceBinding) error
	Delete(ctx context.Context, identityID string, fingerprintHash [32]byte) error
	List(ctx context.Context, identityID string) ([]DeviceBinding, error)
}

// NotificationChannel selects the delivery transport for one-time codes.
type NotificationChannel string

const (
	// ChannelSMS is an exported constant or variable used by the authentication core.
	ChannelSMS NotificationChannel = "sms"
	// ChannelEmail is an exported constant or variable used by the authentication core.
	ChannelEmail NotificationChannel = "email"
)

// NotificationDispatcher delivers one-time codes. The core generates and
// validates codes; delivery is entirely the dispatcher's concern.
type NotificationDispatcher interface {
	SendCode(ctx context.Context, channel NotificationChannel, destination, code string) error
}

// BindingResult is the advisory signal produced by device binding.
type BindingResult uint8

const (
	// BindingKnownDevice is an exported constant or variable used by the authentication core.
	BindingKnownDevice BindingResult = iota
	// BindingNewDevice is an exported constant or variable used by the authentication core.
	BindingNewDevice
)

func (r BindingResult) String() string {
	if r == BindingNewDevice {
		return "new_device"
	}
	return "known_device"
}

// MFAStatus is the decision pipeline's MFA outcome for a request.
type MFAStatus uint8

const (
	// MFANotRequired is an exported constant or variable used by the authentication core.
	MFANotRequired MFAStatus = iota
	// MFARequired is an exported constant or variable used by the authentication core.
	MFARequired
	// MFASatisfied is an exported constant or variable used by the authentication core.
	MFASatisfied
)

// RateLimitStatus is the admission outcome for a request.
type RateLimitStatus uint8

const (
	// RateAdmitted is an exported constant or variable used by the authentication core.
	RateAdmitted RateLimitStatus = iota
	// RateThrottled is an exported constant or variable used by the authentication core.
	RateThrottled
)

// AccessRequest is the inbound request surface consumed by [Engine.Process].
type AccessRequest struct {
	IP            string
	Authorization string
	APIKey        string
	Fingerprint   string
	MFACode       string
}

// Decision is the single request-scoped object handed to business handlers
// after the full chain. HTTP status mapping is a collaborator concern.
type Decision struct {
	Identity        *Identity
	DeviceStatus    BindingResult
	MFAStatus       MFAStatus
	RateLimitStatus RateLimitStatus
}

// MFAEnrollment is returned by BeginEnrollment; SecretBase32 and URI are set
// for TOTP only.
type MFAEnrollment struct {
	Method       MFAMethod
	SecretBase32 string
	URI          string
}
