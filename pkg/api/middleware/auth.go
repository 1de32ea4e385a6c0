package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type contextKey string

const profileKey contextKey = "auth_profile"

type SessionVerifier interface {
	Verify(ctx context.Context, token string) (domain.Profile, error)
}

// Auth resolves the bearer session token and injects the user profile into
// the request context. Requests with a missing, unknown or expired token are
// rejected as unauthenticated.
func Auth(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, err := verifier.Verify(r.Context(), BearerToken(r))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "Authentication required"}) //nolint:errcheck
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithProfile(r.Context(), profile)))
		})
	}
}

func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

func ContextWithProfile(ctx context.Context, profile domain.Profile) context.Context {
	return context.WithValue(ctx, profileKey, profile)
}

func ProfileFromContext(ctx context.Context) (domain.Profile, bool) {
	profile, ok := ctx.Value(profileKey).(domain.Profile)
	return profile, ok
}
