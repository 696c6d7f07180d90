// Package middleware exposes HTTP middleware adapters built on top of
// authcore.Engine's admission pipeline.
//
// # Guards
//
//   - [Guard] — full pipeline: access filter, rate limiter, credential
//     verification, device binding, MFA requirement.
//   - [RequireRole] — Guard plus a role check for the wrapped handler.
//
// Each guard extracts credentials and request metadata from headers, calls
// Engine.Process, and injects the resulting Decision into the request
// context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Process and Engine.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create credentials directly (delegates to Engine).
//   - Touch any backing store (Engine handles I/O).
//   - Make admission decisions beyond mapping Engine outcomes to status
//     codes.
package middleware
