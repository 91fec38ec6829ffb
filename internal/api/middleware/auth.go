package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/orderdesk/internal/api"
	"github.com/cloo-solutions/orderdesk/internal/domain"
)

type contextKey string

const OwnerIDKey contextKey = "owner_id"

// TokenPublisher receives API tokens injected by the front end.
type TokenPublisher interface {
	Publish(token string)
}

// BearerIngest publishes the bearer token of a request to the token stream.
// Requests without an Authorization header pass through untouched; a header
// that is not a bearer token is rejected. The token is shared by every caller,
// so a bearer sent from a browser page other than appOrigin is refused.
func BearerIngest(tokens TokenPublisher, appOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" {
				api.Error(w, http.StatusUnauthorized, "empty bearer token")
				return
			}

			if origin := r.Header.Get("Origin"); origin != "" && origin != appOrigin {
				api.HandleError(w, domain.ErrForeignOrigin)
				return
			}

			tokens.Publish(token)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner reads the X-Owner-ID header naming the page or modal instance
// that owns the per-request search state.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get(HeaderOwnerID))
		if ownerID == "" {
			api.Error(w, http.StatusBadRequest, "missing "+HeaderOwnerID+" header")
			return
		}

		ctx := context.WithValue(r.Context(), OwnerIDKey, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetOwnerID(ctx context.Context) string {
	ownerID, _ := ctx.Value(OwnerIDKey).(string)
	return ownerID
}
