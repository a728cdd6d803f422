package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-marketplace-api/common"
	"go-marketplace-api/service"
)

func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

// serviceError maps service sentinels to HTTP statuses. Anything unknown is a 500
// and keeps the cause for logging.
func serviceError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return common.NewAppError(http.StatusUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, service.ErrDuplicateAccount):
		return common.NewAppError(http.StatusConflict, "An account with this email already exists", nil)
	case errors.Is(err, service.ErrTokenInvalid):
		return common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", nil)
	case errors.Is(err, service.ErrUserNotFound):
		return common.NewAppError(http.StatusNotFound, "User not found", nil)
	case errors.Is(err, service.ErrInvalidRole):
		return common.NewAppError(http.StatusBadRequest, "Invalid role specified", nil)
	default:
		return common.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
