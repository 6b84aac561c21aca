package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ensembled/ensemble/pkg/api"
	"github.com/ensembled/ensemble/pkg/observability"
	"github.com/ensembled/ensemble/pkg/storage"
)

// DefaultBypassEndpoints lists paths served without authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}

// Middleware guards an HTTP handler with the authenticator chain and an
// optional rate limiter. Granted requests continue with the identity in
// their context and, when the identity carries a tenant, with the
// conversation store scoped to it. Refusals are written as the API
// error envelope.
func Middleware(chain *Chain, limiter Limiter, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)
			if result.Decision != Granted || result.Identity == nil {
				slog.Warn("authentication refused",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				writeError(w, http.StatusUnauthorized,
					api.NewInvalidRequestError("authorization", ErrUnauthenticated.Error()))
				return
			}

			id := result.Identity
			if id.Subject == "" {
				slog.Error("authenticator granted an identity with no subject")
				writeError(w, http.StatusInternalServerError,
					api.NewServerError("internal authentication error"))
				return
			}

			if limiter != nil {
				if err := limiter.Allow(r.Context(), id); err != nil {
					slog.Warn("rate limit exceeded", "subject", id.Subject, "tier", tierOf(id))
					observability.RateLimitRejectedTotal.WithLabelValues(tierOf(id)).Inc()
					writeError(w, http.StatusTooManyRequests,
						api.NewTooManyRequestsError(ErrTooManyRequests.Error()))
					return
				}
			}

			slog.Debug("authenticated", "subject", id.Subject, "tenant", id.Tenant, "path", r.URL.Path)

			ctx := WithIdentity(r.Context(), id)
			if id.Tenant != "" {
				ctx = storage.SetTenant(ctx, id.Tenant)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeError writes an APIError in the standard envelope.
func writeError(w http.ResponseWriter, status int, apiErr *api.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}
