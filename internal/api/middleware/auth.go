package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/msassist/internal/api"
	"github.com/cloo-solutions/msassist/internal/logger"
	"go.uber.org/zap"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// JWTAuth rejects requests without a valid bearer token and stores the
// authenticated user id in the request context.
func JWTAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			userID, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = logger.AddFields(ctx, zap.String("user_id", userID))
			if holder, ok := ctx.Value(userHolderKey).(*userHolder); ok {
				holder.id = userID
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// WithUserID returns ctx carrying userID, as JWTAuth would.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

const userHolderKey contextKey = "user_holder"

// userHolder lets outer middleware see the user id that JWTAuth resolves
// further down the chain.
type userHolder struct {
	id string
}

func withUserHolder(ctx context.Context) (context.Context, *userHolder) {
	if h, ok := ctx.Value(userHolderKey).(*userHolder); ok {
		return ctx, h
	}
	h := &userHolder{}
	return context.WithValue(ctx, userHolderKey, h), h
}
