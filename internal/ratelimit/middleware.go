package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/auth"
	apperrors "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/errors"
	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/metrics"
	sharedmiddleware "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/middleware"
)

// Middleware applies per-identity sliding-window quotas. It must sit after
// authentication in the chain so that the identity, not just the client IP,
// keys the counters; unauthenticated traffic falls back to the IP.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := ClassifyRoute(r.Method, r.URL.Path)

			subject := sharedmiddleware.ClientIP(r)
			role := auth.RoleUnknown
			roleLabel := "anonymous"
			if identity := auth.IdentityFromContext(r.Context()); identity != nil {
				if identity.SubjectID != "" {
					subject = identity.SubjectID
				}
				role = identity.Role
				if identity.RoleLabel != "" {
					roleLabel = identity.RoleLabel
				}
			}

			decision := limiter.Admit(subject, role, class)
			if decision.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				if decision.Remaining >= 0 {
					w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
				}
			}
			if !decision.Allowed {
				metrics.RecordRateLimitRejection(string(class), roleLabel)
				retryAfter := int(decision.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				appErr := apperrors.RateLimited(retryAfter, decision.Limit, string(class))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.WriteHeader(appErr.HTTPStatus)
				json.NewEncoder(w).Encode(appErr)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
