package authcore

import (
	"sync/atomic"
)

// MetricID identifies one internal counter.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricVerifySuccess is an exported constant or variable used by the authentication core.
	MetricVerifySuccess MetricID = iota
	// MetricVerifyFailure is an exported constant or variable used by the authentication core.
	MetricVerifyFailure
	// MetricVerifyError is an exported constant or variable used by the authentication core.
	MetricVerifyError
	// MetricAPIKeySuccess is an exported constant or variable used by the authentication core.
	MetricAPIKeySuccess
	// MetricAPIKeyFailure is an exported constant or variable used by the authentication core.
	MetricAPIKeyFailure
	// MetricPasswordSuccess is an exported constant or variable used by the authentication core.
	MetricPasswordSuccess
	// MetricPasswordFailure is an exported constant or variable used by the authentication core.
	MetricPasswordFailure
	// MetricDeviceNew is an exported constant or variable used by the authentication core.
	MetricDeviceNew
	// MetricDeviceKnown is an exported constant or variable used by the authentication core.
	MetricDeviceKnown
	// MetricDeviceRevoked is an exported constant or variable used by the authentication core.
	MetricDeviceRevoked
	// MetricMFAChallengeSuccess is an exported constant or variable used by the authentication core.
	MetricMFAChallengeSuccess
	// MetricMFAChallengeFailure is an exported constant or variable used by the authentication core.
	MetricMFAChallengeFailure
	// MetricMFALockout is an exported constant or variable used by the authentication core.
	MetricMFALockout
	// MetricMFAEnrollment is an exported constant or variable used by the authentication core.
	MetricMFAEnrollment
	// MetricBackupCodeUsed is an exported constant or variable used by the authentication core.
	MetricBackupCodeUsed
	// MetricBackupCodeFailed is an exported constant or variable used by the authentication core.
	MetricBackupCodeFailed
	// MetricThrottled is an exported constant or variable used by the authentication core.
	MetricThrottled
	// MetricAccessDenied is an exported constant or variable used by the authentication core.
	MetricAccessDenied
	// MetricAuditAppended is an exported constant or variable used by the authentication core.
	MetricAuditAppended

	metricCount
)

// MetricName returns the stable exposition name for a metric.
func MetricName(id MetricID) string {
	switch id {
	case MetricVerifySuccess:
		return "authcore_verify_success_total"
	case MetricVerifyFailure:
		return "authcore_verify_failure_total"
	case MetricVerifyError:
		return "authcore_verify_error_total"
	case MetricAPIKeySuccess:
		return "authcore_apikey_success_total"
	case MetricAPIKeyFailure:
		return "authcore_apikey_failure_total"
	case MetricPasswordSuccess:
		return "authcore_password_success_total"
	case MetricPasswordFailure:
		return "authcore_password_failure_total"
	case MetricDeviceNew:
		return "authcore_device_new_total"
	case MetricDeviceKnown:
		return "authcore_device_known_total"
	case MetricDeviceRevoked:
		return "authcore_device_revoked_total"
	case MetricMFAChallengeSuccess:
		return "authcore_mfa_challenge_success_total"
	case MetricMFAChallengeFailure:
		return "authcore_mfa_challenge_failure_total"
	case MetricMFALockout:
		return "authcore_mfa_lockout_total"
	case MetricMFAEnrollment:
		return "authcore_mfa_enrollment_total"
	case MetricBackupCodeUsed:
		return "authcore_backup_code_used_total"
	case MetricBackupCodeFailed:
		return "authcore_backup_code_failed_total"
	case MetricThrottled:
		return "authcore_throttled_total"
	case MetricAccessDenied:
		return "authcore_access_denied_total"
	case MetricAuditAppended:
		return "authcore_audit_appended_total"
	default:
		return ""
	}
}

// AllMetricIDs returns every defined metric id in declaration order.
func AllMetricIDs() []MetricID {
	ids := make([]MetricID, 0, metricCount)
	for id := MetricID(0); id < metricCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Metrics holds lock-free counters. The zero value is not usable; construct
// through [NewMetrics].
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Inc describes the inc operation and its observable behavior.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Get describes the get operation and its observable behavior.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id >= metricCount {
		return 0
	}
	return m.counters[id].Load()
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot describes the snapshot operation and its observable behavior.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		if v := m.counters[id].Load(); v > 0 {
			snap.Counters[id] = v
		}
	}
	return snap
}
