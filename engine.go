package authcore

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"authcore/internal"
	"authcore/internal/rate"
	"authcore/jwt"
	"authcore/password"
)

const defaultAuditTenant = "default"

// Engine is the authentication and security-audit core. It owns credential
// verification, device binding, the MFA challenge state machine, request
// admission, and the tamper-evident audit log.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	clock        clock.Clock
	identities   IdentityProvider
	roles        RoleResolver
	profiles     MFAProfileStore
	devices      DeviceBindingStore
	notifier     NotificationDispatcher
	codes        *challengeCodeStore
	limiter      *rate.Limiter
	allowSet     *internal.IPSet
	denySet      *internal.IPSet
	jwtManager   *jwt.Manager
	passwordHash *password.Argon2
	totp         *totpManager
	audit        *AuditLog
	metrics      *Metrics
	profileLocks *keyedMutex
}

// Close drains the audit sink dispatcher setup. Committed chain entries are
// unaffected.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many entries the asynchronous sink dispatcher
// discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditLog exposes the engine's audit log for chain access and verification.
func (e *Engine) AuditLog() *AuditLog {
	if e == nil {
		return nil
	}
	return e.audit
}

// VerifyAuditChain checks the tenant's chain across the inclusive range.
// A [ChainCorruptionError] result halts the chain's further appends; callers
// must surface it to an operator rather than swallow it.
func (e *Engine) VerifyAuditChain(tenant string, from, to uint64) error {
	if e == nil || e.audit == nil {
		return ErrEngineNotReady
	}
	if tenant == "" {
		tenant = defaultAuditTenant
	}
	return e.audit.Verify(tenant, from, to)
}

// MetricsSnapshot returns a point-in-time copy of the internal counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || !e.config.Metrics.Enabled {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}

// storeCtx bounds any external store call with the configured timeout.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, e.config.StoreTimeout)
}

func auditTenant(identity *Identity) string {
	if identity != nil && identity.TenantID != "" {
		return identity.TenantID
	}
	return defaultAuditTenant
}

// emitAudit commits one entry to the tenant's chain. err carries the failure
// cause into the detail blob; secrets and codes never pass through here.
func (e *Engine) emitAudit(ctx context.Context, tenant, actor, action, resource string, severity Severity, category Category, err error, detail map[string]string) {
	if e == nil || e.audit == nil || !e.config.Audit.Enabled {
		return
	}
	if tenant == "" {
		tenant = defaultAuditTenant
	}

	if err != nil {
		if detail == nil {
			detail = map[string]string{}
		}
		detail["outcome"] = "failure"
		detail["error"] = err.Error()
	} else {
		if detail == nil {
			detail = map[string]string{}
		}
		if _, ok := detail["outcome"]; !ok {
			detail["outcome"] = "success"
		}
	}

	if _, appendErr := e.audit.Append(ctx, tenant, actor, action, resource, severity, category, detail); appendErr == nil {
		e.metricInc(MetricAuditAppended)
	}
}
