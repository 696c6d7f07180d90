package authcore

import (
	"errors"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"

	"authcore/internal"
	"authcore/internal/rate"
	"authcore/jwt"
	"authcore/password"
)

// Builder assembles an [Engine]. Collaborator stores default to in-memory or
// Redis-backed implementations where one exists; the identity provider has no
// default and must be supplied.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	identities IdentityProvider
	roles      RoleResolver
	profiles   MFAProfileStore
	devices    DeviceBindingStore
	notifier   NotificationDispatcher
	auditSink  AuditSink
	chainStore func(chain string) ChainStore
	clock      clock.Clock

	built bool
}

// New returns a builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis provides the Redis client backing transient challenge codes and
// the default device-binding store.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithIdentityProvider sets the identity store collaborator (required).
func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.identities = p
	return b
}

// WithRoleResolver sets the external role lookup. Without one, authorization
// compares against the role carried on the identity record.
func (b *Builder) WithRoleResolver(r RoleResolver) *Builder {
	b.roles = r
	return b
}

// WithMFAProfileStore sets the secret-store-backed MFA profile persistence.
// Defaults to an in-memory store.
func (b *Builder) WithMFAProfileStore(s MFAProfileStore) *Builder {
	b.profiles = s
	return b
}

// WithDeviceStore overrides the device-binding store.
func (b *Builder) WithDeviceStore(s DeviceBindingStore) *Builder {
	b.devices = s
	return b
}

// WithNotifier sets the one-time-code delivery collaborator. Required when
// SMS or email enrollment is used.
func (b *Builder) WithNotifier(n NotificationDispatcher) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the asynchronous observer of committed audit entries.
func (b *Builder) WithAuditSink(s AuditSink) *Builder {
	b.auditSink = s
	return b
}

// WithChainStore sets the factory for per-tenant audit chain backing stores.
// Defaults to in-memory arenas.
func (b *Builder) WithChainStore(f func(chain string) ChainStore) *Builder {
	b.chainStore = f
	return b
}

// WithClock injects the time source. Defaults to the wall clock.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b == nil || b.built {
		return nil, errors.New("builder already consumed")
	}
	if err := b.config.validate(); err != nil {
		return nil, err
	}
	if b.identities == nil {
		return nil, errors.New("identity provider is required")
	}

	clk := b.clock
	if clk == nil {
		clk = clock.New()
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		TTL:           b.config.Token.TTL,
		SigningMethod: jwt.SigningMethod(b.config.Token.SigningMethod),
		PrivateKey:    b.config.Token.PrivateKey,
		PublicKey:     b.config.Token.PublicKey,
		Issuer:        b.config.Token.Issuer,
		Leeway:        b.config.Token.Leeway,
		TimeFunc:      clk.Now,
	})
	if err != nil {
		return nil, err
	}

	passwordHash, err := password.NewArgon2(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	allowSet, err := internal.ParseIPSet(b.config.AccessFilter.AllowList)
	if err != nil {
		return nil, err
	}
	denySet, err := internal.ParseIPSet(b.config.AccessFilter.DenyList)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       b.config,
		clock:        clk,
		identities:   b.identities,
		roles:        b.roles,
		profiles:     b.profiles,
		devices:      b.devices,
		notifier:     b.notifier,
		jwtManager:   jwtManager,
		passwordHash: passwordHash,
		totp:         newTOTPManager(b.config.MFA),
		allowSet:     allowSet,
		denySet:      denySet,
		metrics:      NewMetrics(),
		profileLocks: newKeyedMutex(),
	}

	if b.config.RateLimit.Enabled {
		engine.limiter = rate.New(rate.Config{
			MaxRequests: b.config.RateLimit.MaxRequests,
			Window:      b.config.RateLimit.Window,
		}, clk)
	}

	if engine.profiles == nil {
		engine.profiles = NewMemoryMFAProfileStore()
	}
	if engine.devices == nil {
		if b.redis != nil {
			engine.devices = newRedisDeviceStore(b.redis)
		} else {
			engine.devices = NewMemoryDeviceStore()
		}
	}
	if b.redis != nil {
		engine.codes = newChallengeCodeStore(b.redis)
	}

	engine.audit = NewAuditLog(AuditLogOptions{
		Config:   b.config.Audit,
		Sink:     b.auditSink,
		Clock:    clk,
		NewStore: b.chainStore,
	})

	b.built = true
	return engine, nil
}
