package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/adviserops/chaser/internal/api"
)

type contextKey string

const FirmIDKey contextKey = "firm_id"

// AuthValidator resolves an API key token to the firm that owns it.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// APIKeyAuth authenticates requests with a Bearer chs_ token and stores the
// resolved firm ID in the request context.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			firmID, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			// Mirrored into a header so outer middleware (access log,
			// sentry) can see the firm after the handler returns.
			r.Header.Set("X-Firm-ID", firmID)

			ctx := context.WithValue(r.Context(), FirmIDKey, firmID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetFirmID returns the authenticated firm ID from context, or "".
func GetFirmID(ctx context.Context) string {
	firmID, _ := ctx.Value(FirmIDKey).(string)
	return firmID
}
