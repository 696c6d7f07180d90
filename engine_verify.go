package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"authcore/jwt"
)

const (
	auditTokenVerify    = "token.verify"
	auditAPIKeyVerify   = "apikey.verify"
	auditPasswordVerify = "password.verify"
)

// VerifyRequest triages the two credential surfaces of an inbound call: a
// bearer Authorization header or a dedicated API-key value. Malformed headers
// fail fast with [ErrMalformedCredential] before any store access. Exactly
// one audit entry is committed per attempt, success or failure.
func (e *Engine) VerifyRequest(ctx context.Context, authorization, apiKey string) (*Identity, error) {
	identity, _, err := e.verifyRequestClaims(ctx, authorization, apiKey)
	return identity, err
}

func (e *Engine) verifyRequestClaims(ctx context.Context, authorization, apiKey string) (*Identity, *jwt.Claims, error) {
	if e == nil {
		return nil, nil, ErrEngineNotReady
	}

	if apiKey != "" {
		identity, err := e.VerifyAPIKey(ctx, apiKey)
		return identity, nil, err
	}

	raw, ok := bearerToken(authorization)
	if !ok {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, "", "", auditTokenVerify, "", SeverityWarning, CategoryAuthentication, ErrMalformedCredential, nil)
		return nil, nil, ErrMalformedCredential
	}

	return e.verifyTokenClaims(ctx, raw)
}

// VerifyToken parses and verifies a bearer token, then resolves the embedded
// identity. Verification of the token itself is pure; expiry is absolute.
func (e *Engine) VerifyToken(ctx context.Context, rawToken string) (*Identity, error) {
	identity, _, err := e.verifyTokenClaims(ctx, rawToken)
	return identity, err
}

func (e *Engine) verifyTokenClaims(ctx context.Context, rawToken string) (*Identity, *jwt.Claims, error) {
	if e == nil {
		return nil, nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(rawToken)
	if err != nil {
		outcome := ErrTokenInvalid
		if errors.Is(err, jwt.ErrExpired) {
			outcome = ErrTokenExpired
		}
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, "", "", auditTokenVerify, "", SeverityWarning, CategoryAuthentication, outcome, nil)
		return nil, nil, outcome
	}

	identity, err := e.resolveIdentity(ctx, claims.UID)
	if err != nil {
		return nil, nil, err
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditTenant(identity), identity.ID, auditTokenVerify, "", SeverityInfo, CategoryAuthentication, nil, nil)
	return identity, claims, nil
}

// resolveIdentity looks the id up with the configured timeout. A store
// timeout fails closed and audits as a system error rather than a security
// failure; an unknown id degrades to the generic invalid-token outcome.
func (e *Engine) resolveIdentity(ctx context.Context, id string) (*Identity, error) {
	lookupCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	identity, err := e.identities.FindByID(lookupCtx, id)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, "", id, auditTokenVerify, "", SeverityWarning, CategoryAuthentication, ErrTokenInvalid, nil)
			return nil, ErrTokenInvalid
		}
		e.metricInc(MetricVerifyError)
		e.emitAudit(ctx, "", id, auditTokenVerify, "", SeverityCritical, CategorySystem, ErrIdentityUnavailable, map[string]string{"kind": "system_error"})
		return nil, ErrIdentityUnavailable
	}

	if !identity.Active() {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditTenant(identity), identity.ID, auditTokenVerify, "", SeverityWarning, CategoryAuthentication, ErrIdentityInactive, nil)
		return nil, ErrIdentityInactive
	}

	return identity, nil
}

// VerifyAPIKey compares the presented key against the configured one in
// constant time. Any mismatch, including a missing or disabled key, yields
// [ErrAPIKeyInvalid]; on match the configured service identity is resolved.
func (e *Engine) VerifyAPIKey(ctx context.Context, presented string) (*Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	cfg := e.config.APIKey
	if !cfg.Enabled || presented == "" ||
		subtle.ConstantTimeCompare([]byte(presented), cfg.Key) != 1 {
		e.metricInc(MetricAPIKeyFailure)
		e.emitAudit(ctx, "", "", auditAPIKeyVerify, "", SeverityWarning, CategoryAuthentication, ErrAPIKeyInvalid, nil)
		return nil, ErrAPIKeyInvalid
	}

	identity, err := e.resolveIdentity(ctx, cfg.ServiceIdentityID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricAPIKeySuccess)
	e.emitAudit(ctx, auditTenant(identity), identity.ID, auditAPIKeyVerify, "", SeverityInfo, CategoryAuthentication, nil, nil)
	return identity, nil
}

// VerifyPassword verifies an identifier/password pair against the stored
// credential hash. Unknown identifier and wrong password are deliberately
// indistinguishable to the caller.
func (e *Engine) VerifyPassword(ctx context.Context, identifier, password string) (*Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	lookupCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	identity, err := e.identities.FindByCredentialLookup(lookupCtx, identifier)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			e.metricInc(MetricPasswordFailure)
			e.emitAudit(ctx, "", "", auditPasswordVerify, "", SeverityWarning, CategoryAuthentication, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		e.metricInc(MetricVerifyError)
		e.emitAudit(ctx, "", "", auditPasswordVerify, "", SeverityCritical, CategorySystem, ErrIdentityUnavailable, map[string]string{"kind": "system_error"})
		return nil, ErrIdentityUnavailable
	}

	ok, err := e.passwordHash.Verify(password, identity.CredentialHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordFailure)
		e.emitAudit(ctx, auditTenant(identity), identity.ID, auditPasswordVerify, "", SeverityWarning, CategoryAuthentication, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if !identity.Active() {
		e.metricInc(MetricPasswordFailure)
		e.emitAudit(ctx, auditTenant(identity), identity.ID, auditPasswordVerify, "", SeverityWarning, CategoryAuthentication, ErrIdentityInactive, nil)
		return nil, ErrIdentityInactive
	}

	e.metricInc(MetricPasswordSuccess)
	e.emitAudit(ctx, auditTenant(identity), identity.ID, auditPasswordVerify, "", SeverityInfo, CategoryAuthentication, nil, nil)
	return identity, nil
}

// IssueToken signs a token for an identity with the fingerprint claim bound.
// Provided for collaborators that mint tokens after a password or MFA flow.
func (e *Engine) IssueToken(identity *Identity, fingerprint string) (string, error) {
	if e == nil || identity == nil {
		return "", ErrEngineNotReady
	}
	return e.jwtManager.IssueAt(identity.ID, fingerprint, e.now())
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
