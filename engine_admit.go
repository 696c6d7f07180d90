package authcore

import (
	"context"
	"errors"
	"fmt"
	"net"

	"authcore/internal/rate"
)

const (
	auditAccessDeny = "access.deny"
	auditThrottle   = "rate.throttle"
)

// CheckAccess applies the IP allow/deny filter. The deny list wins over the
// allow list, and both are evaluated before any identity store is touched so
// a blocked caller learns nothing about account existence.
func (e *Engine) CheckAccess(ctx context.Context, ip string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if net.ParseIP(ip) == nil {
		e.metricInc(MetricAccessDenied)
		e.emitAudit(ctx, "", ip, auditAccessDeny, "", SeverityWarning, CategorySecurity, fmt.Errorf("%w: unparseable address", ErrAccessDenied), nil)
		return ErrAccessDenied
	}

	if e.denySet.Contains(ip) {
		e.metricInc(MetricAccessDenied)
		e.emitAudit(ctx, "", ip, auditAccessDeny, "", SeverityWarning, CategorySecurity, ErrAccessDenied, map[string]string{"list": "deny"})
		return ErrAccessDenied
	}

	if !e.allowSet.Empty() && !e.allowSet.Contains(ip) {
		e.metricInc(MetricAccessDenied)
		e.emitAudit(ctx, "", ip, auditAccessDeny, "", SeverityWarning, CategorySecurity, ErrAccessDenied, map[string]string{"list": "allow"})
		return ErrAccessDenied
	}

	return nil
}

// Admit counts one request against the caller's sliding window. Admitted
// requests are not audited; throttles are.
func (e *Engine) Admit(ctx context.Context, key string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.limiter == nil {
		return nil
	}

	if err := e.limiter.Admit(key); err != nil {
		if errors.Is(err, rate.ErrThrottled) {
			e.metricInc(MetricThrottled)
			e.emitAudit(ctx, "", key, auditThrottle, "", SeverityWarning, CategorySecurity, ErrThrottled, nil)
			return ErrThrottled
		}
		return err
	}
	return nil
}

// RateRemaining reports how many requests the key may still issue in the
// current window.
func (e *Engine) RateRemaining(key string) int {
	if e == nil || e.limiter == nil {
		return -1
	}
	return e.limiter.Remaining(key)
}
