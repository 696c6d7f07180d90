package internaldefs

import (
	"authcore"
)

// CounterDef defines a public type used by authcore exporter packages.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication core.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricVerifySuccess, Name: "authcore_verify_success_total", Help: "Successful credential verifications."},
	{ID: authcore.MetricVerifyFailure, Name: "authcore_verify_failure_total", Help: "Failed credential verifications."},
	{ID: authcore.MetricVerifyError, Name: "authcore_verify_error_total", Help: "Credential verifications aborted by backend errors."},
	{ID: authcore.MetricAPIKeySuccess, Name: "authcore_apikey_success_total", Help: "Successful API-key verifications."},
	{ID: authcore.MetricAPIKeyFailure, Name: "authcore_apikey_failure_total", Help: "Failed API-key verifications."},
	{ID: authcore.MetricPasswordSuccess, Name: "authcore_password_success_total", Help: "Successful password verifications."},
	{ID: authcore.MetricPasswordFailure, Name: "authcore_password_failure_total", Help: "Failed password verifications."},
	{ID: authcore.MetricDeviceNew, Name: "authcore_device_new_total", Help: "First-sight device bindings."},
	{ID: authcore.MetricDeviceKnown, Name: "authcore_device_known_total", Help: "Known-device binding matches."},
	{ID: authcore.MetricDeviceRevoked, Name: "authcore_device_revoked_total", Help: "Explicitly revoked device bindings."},
	{ID: authcore.MetricMFAChallengeSuccess, Name: "authcore_mfa_challenge_success_total", Help: "Successful MFA challenge validations."},
	{ID: authcore.MetricMFAChallengeFailure, Name: "authcore_mfa_challenge_failure_total", Help: "Failed MFA challenge validations."},
	{ID: authcore.MetricMFALockout, Name: "authcore_mfa_lockout_total", Help: "MFA lockouts triggered."},
	{ID: authcore.MetricMFAEnrollment, Name: "authcore_mfa_enrollment_total", Help: "Completed MFA enrollments."},
	{ID: authcore.MetricBackupCodeUsed, Name: "authcore_backup_code_used_total", Help: "Successful backup-code redemptions."},
	{ID: authcore.MetricBackupCodeFailed, Name: "authcore_backup_code_failed_total", Help: "Failed backup-code redemptions."},
	{ID: authcore.MetricThrottled, Name: "authcore_throttled_total", Help: "Requests rejected by the rate limiter."},
	{ID: authcore.MetricAccessDenied, Name: "authcore_access_denied_total", Help: "Requests rejected by the access filter or authorization."},
	{ID: authcore.MetricAuditAppended, Name: "authcore_audit_appended_total", Help: "Entries committed to audit chains."},
}
