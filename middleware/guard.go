package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"authcore"
)

// Request headers the guards read. The fingerprint and MFA code headers are
// optional; the pipeline treats their absence the same as empty values.
const (
	HeaderAPIKey      = "X-API-Key"
	HeaderFingerprint = "X-Device-Fingerprint"
	HeaderMFACode     = "X-MFA-Code"
)

type decisionContextKey struct{}

// DecisionFromContext returns the Decision a guard attached to the request.
func DecisionFromContext(ctx context.Context) (*authcore.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(*authcore.Decision)
	return d, ok
}

// Guard runs the full admission pipeline for each request and injects the
// Decision into the request context. Outcomes map to status codes: throttle
// to 429, access or role denial to 403, everything else to 401. An
// MFARequired decision without a satisfying code is rejected with 401.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, ok := process(engine, w, r)
			if !ok {
				return
			}

			ctx := context.WithValue(r.Context(), decisionContextKey{}, decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole is Guard plus an Authorize call against the given role.
func RequireRole(engine *authcore.Engine, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, ok := process(engine, w, r)
			if !ok {
				return
			}

			if err := engine.Authorize(r.Context(), decision.Identity, role); err != nil {
				reject(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), decisionContextKey{}, decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func process(engine *authcore.Engine, w http.ResponseWriter, r *http.Request) (*authcore.Decision, bool) {
	if engine == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	decision, err := engine.Process(r.Context(), authcore.AccessRequest{
		IP:            clientIP(r),
		Authorization: r.Header.Get("Authorization"),
		APIKey:        r.Header.Get(HeaderAPIKey),
		Fingerprint:   r.Header.Get(HeaderFingerprint),
		MFACode:       r.Header.Get(HeaderMFACode),
	})
	if err != nil {
		reject(w, err)
		return nil, false
	}

	if decision.MFAStatus == authcore.MFARequired {
		http.Error(w, "mfa required", http.StatusUnauthorized)
		return nil, false
	}

	return decision, true
}

func reject(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authcore.ErrThrottled):
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	case errors.Is(err, authcore.ErrAccessDenied), errors.Is(err, authcore.ErrRoleDenied):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
