package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"go-marketplace-api/common"
	"go-marketplace-api/model"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	UserKey   contextKey = "user"
)

type accessTokenVerifier interface {
	VerifyAccessToken(token string) (*model.TokenClaims, error)
}

type revocationChecker interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// userLookup returns active users only; repository.IUserRepository satisfies it.
type userLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" || headerParts[1] == "" {
		return "", false
	}
	return headerParts[1], true
}

// AuthMiddleware admits requests carrying a valid, unrevoked access token whose
// subject is still an active user. The stored user, not the token claims, is
// what lands in the request context, so role changes apply immediately.
func AuthMiddleware(tokens accessTokenVerifier, ledger revocationChecker, users userLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil).Send(w)
				return
			}
			tokenString, ok := bearerToken(r)
			if !ok {
				common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil).Send(w)
				return
			}

			claims, err := tokens.VerifyAccessToken(tokenString)
			if err != nil {
				common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", nil).Send(w)
				return
			}

			revoked, err := ledger.IsBlacklisted(r.Context(), tokenString)
			if err != nil {
				common.NewAppError(http.StatusInternalServerError, "Could not verify token", err).Send(w)
				return
			}
			if revoked {
				common.NewAppError(http.StatusUnauthorized, "Token has been revoked", nil).Send(w)
				return
			}

			user, err := users.GetByID(r.Context(), claims.Subject)
			if errors.Is(err, sql.ErrNoRows) {
				common.NewAppError(http.StatusUnauthorized, "User no longer exists or is inactive", nil).Send(w)
				return
			}
			if err != nil {
				common.NewAppError(http.StatusInternalServerError, "Could not load user", err).Send(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
			ctx = context.WithValue(ctx, UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := r.Context().Value(UserKey).(*model.User)
			if user == nil || !user.HasRole(role) {
				common.NewAppError(http.StatusForbidden, "Access denied. "+string(role)+" role required.", nil).Send(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}
