// Package authcore provides the authentication and security-audit core of an
// access-facing service: credential verification (bearer tokens, API keys,
// Argon2id passwords), device binding, an MFA challenge engine with lockout,
// admission control (sliding-window rate limiting plus an IP allow/deny
// filter), and a SHA-256 hash-chained tamper-evident audit log.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces ([IdentityProvider], [MFAProfileStore],
// [DeviceBindingStore], [NotificationDispatcher], [RoleResolver]), and value
// types (Decision, AuditEntry, MetricsSnapshot). Helper mechanics — random
// material, IP set parsing, the rate limiter — live under internal/ and are
// never exported.
//
// # What this package must NOT do
//
//   - Store identities, credentials, or MFA secrets itself; persistence is
//     always behind a collaborator interface.
//   - Write secret material or challenge codes into audit detail.
//   - Skip authorization in any environment or build mode.
//
// # Failure contract
//
// Credential failures are genericized: callers can distinguish the sentinel
// classes ([ErrTokenExpired], [ErrTokenInvalid], [ErrMalformedCredential],
// ...) but no error reveals whether an identity exists. The one precise
// failure is MFA lockout, which carries its expiry ([LockoutError]). Audit
// chain corruption is fail-stop: a chain that has observed corruption
// refuses further appends until operators intervene.
package authcore
