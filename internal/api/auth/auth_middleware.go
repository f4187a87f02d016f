package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/nmateus/go-user-accounts/app/observability/metrics"
	"github.com/nmateus/go-user-accounts/internal/api"
)

type contextKey string

const UserIDKey contextKey = "userID"

// GetUserIDFromContext returns the identity attached by Authenticate.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// Authenticate guards protected operations: it extracts the access token from
// the accessToken cookie (falling back to a Bearer header), verifies it,
// resolves the user and attaches the identity to the request context. A user
// deleted after token issuance is rejected like any other bad token. The user
// lookup sits behind a short-TTL cache so a burst of requests from the same
// session costs one query.
func Authenticate(logger *slog.Logger, issuer *TokenIssuer, svc AuthService) func(next http.Handler) http.Handler {
	userCache := gocache.New(30*time.Second, time.Minute)

	reject := func(w http.ResponseWriter, r *http.Request, reason string) {
		metrics.Get().AuthFailuresTotal.Add(r.Context(), 1,
			metric.WithAttributes(attribute.String("reason", reason)))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized request")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			tokenString := accessTokenFromRequest(r)
			if tokenString == "" {
				l.WarnContext(ctx, "Missing access token")
				reject(w, r, "missing_token")
				return
			}

			claims, err := issuer.VerifyAccessToken(tokenString)
			if err != nil {
				l.WarnContext(ctx, "Access token verification failed", slog.Any("error", err))
				reject(w, r, "invalid_token")
				return
			}

			if _, found := userCache.Get(claims.UserID); !found {
				if _, err := svc.GetUserByID(ctx, claims.UserID); err != nil {
					l.WarnContext(ctx, "Token subject no longer exists", slog.String("userID", claims.UserID))
					reject(w, r, "unknown_user")
					return
				}
				userCache.SetDefault(claims.UserID, struct{}{})
			}

			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accessTokenFromRequest prefers the httpOnly cookie; API clients without
// cookie support may send the same token as a Bearer header.
func accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
		return ""
	}
	return headerParts[1]
}
