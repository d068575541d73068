package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"debtster-collector/internal/domain"
)

type ctxKey string

const UserIDKey ctxKey = "userID"

// TokenRepository resolves a plain bearer token to its stored record.
type TokenRepository interface {
	FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error)
}

// SanctumMiddleware authenticates requests with a personal access token from
// the Authorization header or, for websocket upgrades, the token query
// parameter.
func SanctumMiddleware(tokens TokenRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plainToken := bearerToken(r)
			if plainToken == "" {
				plainToken = r.URL.Query().Get("token")
			}
			if plainToken == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			pat, err := tokens.FindTokenByPlainToken(r.Context(), plainToken)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if pat.ExpiresAt != nil && pat.ExpiresAt.Before(time.Now()) {
				http.Error(w, "Token expired", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, pat.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func GetUserID(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	if !ok {
		return 0, errors.New("userID not found in context")
	}
	return userID, nil
}
