package authcore

import (
	"errors"
	"time"
)

// Config defines the immutable configuration of an [Engine].
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token         TokenConfig
	APIKey        APIKeyConfig
	AccessFilter  AccessFilterConfig
	RateLimit     RateLimitConfig
	DeviceBinding DeviceBindingConfig
	MFA           MFAConfig
	Password      PasswordConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	StoreTimeout  time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures bearer-token verification.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
API KEY CONFIG
====================================
*/

// APIKeyConfig configures the static service-key credential path.
// ServiceIdentityID names the identity resolved for a matching key.
//
// APIKeyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type APIKeyConfig struct {
	Enabled           bool
	Key               []byte
	ServiceIdentityID string
}

/*
====================================
ACCESS FILTER CONFIG
====================================
*/

// AccessFilterConfig holds the static IP allow/deny lists. Entries may be
// bare IPs or CIDR blocks. A non-empty deny list rejects matches
// unconditionally; a non-empty allow list rejects everything else.
//
// AccessFilterConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccessFilterConfig struct {
	AllowList []string
	DenyList  []string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the sliding-window request limiter.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
}

/*
====================================
DEVICE BINDING CONFIG
====================================
*/

// DeviceBindingConfig tunes device fingerprint tracking.
// RequireMFAOnNewDevice is a policy flag consumed by the decision pipeline;
// binding itself never blocks a request.
//
// DeviceBindingConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DeviceBindingConfig struct {
	Enabled               bool
	RequireMFAOnNewDevice bool
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig tunes the challenge engine.
//
// MFAConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MFAConfig struct {
	Enabled            bool
	Issuer             string
	Digits             int
	Period             int
	Algorithm          string // "SHA1" (default), "SHA256", "SHA512"
	Skew               int    // accepted time-step drift in each direction
	CodeTTL            time.Duration
	MaxAttempts        int
	MaxConfirmAttempts int
	LockoutDuration    time.Duration
	BackupCodeCount    int
	BackupCodeLength   int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters for credential-hash verification.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig tunes the asynchronous sink dispatcher. Chain appends are
// always synchronous and ordered regardless of these settings.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the internal atomic counters.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration: Ed25519 tokens with a
// 15-minute TTL, 100 requests per 60-second window, six-digit TOTP with a
// two-step skew, three challenge attempts before a 15-minute lockout, and
// ten backup codes.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:           15 * time.Minute,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxRequests: 100,
			Window:      60 * time.Second,
		},
		DeviceBinding: DeviceBindingConfig{
			Enabled: true,
		},
		MFA: MFAConfig{
			Enabled:            true,
			Issuer:             "authcore",
			Digits:             6,
			Period:             30,
			Algorithm:          "SHA1",
			Skew:               2,
			CodeTTL:            10 * time.Minute,
			MaxAttempts:        3,
			MaxConfirmAttempts: 3,
			LockoutDuration:    15 * time.Minute,
			BackupCodeCount:    10,
			BackupCodeLength:   10,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		StoreTimeout: 3 * time.Second,
	}
}

func (c *Config) validate() error {
	switch c.Token.SigningMethod {
	case "ed25519", "hs256":
	default:
		return errors.New("unsupported token signing method")
	}
	if c.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.APIKey.Enabled {
		if len(c.APIKey.Key) == 0 {
			return errors.New("api key auth enabled without a key")
		}
		if c.APIKey.ServiceIdentityID == "" {
			return errors.New("api key auth enabled without a service identity")
		}
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxRequests <= 0 {
			return errors.New("rate limit max requests must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("rate limit window must be positive")
		}
	}
	if c.MFA.Enabled {
		if c.MFA.Digits < 6 || c.MFA.Digits > 10 {
			return errors.New("mfa digits out of range")
		}
		if c.MFA.Period <= 0 {
			return errors.New("mfa period must be positive")
		}
		if c.MFA.Skew < 0 || c.MFA.Skew > 4 {
			return errors.New("mfa skew out of range")
		}
		if c.MFA.MaxAttempts <= 0 {
			return errors.New("mfa max attempts must be positive")
		}
		if c.MFA.MaxConfirmAttempts <= 0 {
			return errors.New("mfa max confirm attempts must be positive")
		}
		if c.MFA.LockoutDuration <= 0 {
			return errors.New("mfa lockout duration must be positive")
		}
		if c.MFA.CodeTTL <= 0 {
			return errors.New("mfa code ttl must be positive")
		}
		if c.MFA.BackupCodeCount < 0 || c.MFA.BackupCodeCount > 64 {
			return errors.New("mfa backup code count out of range")
		}
	}
	if c.StoreTimeout <= 0 {
		return errors.New("store timeout must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = append([]byte(nil), cfg.Token.PrivateKey...)
	out.Token.PublicKey = append([]byte(nil), cfg.Token.PublicKey...)
	out.APIKey.Key = append([]byte(nil), cfg.APIKey.Key...)
	out.AccessFilter.AllowList = append([]string(nil), cfg.AccessFilter.AllowList...)
	out.AccessFilter.DenyList = append([]string(nil), cfg.AccessFilter.DenyList...)
	return out
}
