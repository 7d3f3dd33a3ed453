package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/skyvault/skyvault/internal/api"
)

// Typed context keys for claims added by Authenticate.
type contextKey string

const UserIDKey contextKey = "userID"
const UsernameKey contextKey = "username"

// Authenticate validates the access token (cookie or bearer header) and adds
// the user's identity to the request context. Protected routes sit behind it;
// a missing or invalid token fails the whole request before any storage
// access.
func Authenticate(authService AuthService, cookies *CookieHelper, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			tokenString := cookies.TokenFromRequest(r)
			if tokenString == "" {
				l.WarnContext(ctx, "Missing auth token")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			claims, err := authService.Verify(ctx, tokenString)
			if err != nil {
				l.WarnContext(ctx, "Token validation failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UsernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext returns the authenticated user's id set by Authenticate.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}
