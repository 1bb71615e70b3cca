package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"pyquest/auth"
	"pyquest/infrastructure/observability"
)

// Identity headers set by the trusted session gateway
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderUserEmail = "X-User-Email"
)

type principalKey struct{}

// PrincipalFrom returns the caller stored by the identity middleware
func PrincipalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

// WithPrincipal stores p on ctx
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// identity rejects requests without a caller id and resolves the caller's role
func identity(admins auth.AdminEmailChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := auth.NewPrincipal(
				r.Header.Get(HeaderUserID),
				r.Header.Get(HeaderUserRole),
				r.Header.Get(HeaderUserEmail),
				admins,
			)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if principal.ID == "" {
				writeError(w, http.StatusUnauthorized, "missing "+HeaderUserID)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// requireCapability lets through only callers whose role grants capability
func requireCapability(capability auth.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok || !principal.Can(capability) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// principalKeyFunc keys rate limits by caller id
func principalKeyFunc(r *http.Request) string {
	if p, ok := PrincipalFrom(r.Context()); ok {
		return p.ID
	}
	return ""
}

// requestLogger logs every request with logrus and records HTTP metrics
func requestLogger(metrics *observability.MetricsProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)
			metrics.RecordHTTPRequest(r.Method, route, status, duration)

			log.WithFields(log.Fields{
				"requestID": middleware.GetReqID(r.Context()),
				"method":    r.Method,
				"route":     route,
				"status":    status,
				"bytes":     ww.BytesWritten(),
				"duration":  duration.String(),
			}).Info("Handled request")
		})
	}
}
