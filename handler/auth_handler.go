package handler

import (
	"context"
	"net/http"

	"go-marketplace-api/common"
	"go-marketplace-api/logger"
	"go-marketplace-api/model"
	"go-marketplace-api/service"
)

type authService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.PublicUser, error)
	Login(ctx context.Context, email, password string) (*model.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*model.RefreshResult, error)
	Logout(ctx context.Context, accessToken string) error
	Profile(ctx context.Context, userID string) (*model.PublicUser, error)
}

type AuthHandler struct {
	service authService
}

func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates an account. Roles default to ["user"].
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      model.RegisterRequest  true  "Account details"
// @Success      201      {object}  model.PublicUser
// @Failure      400      {object}  common.AppError
// @Failure      409      {object}  common.AppError
// @Failure      429      {object}  common.AppError
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Roles:     req.Roles,
	})
	if err != nil {
		return serviceError(err)
	}

	writeJSON(w, http.StatusCreated, user)
	return nil
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges email and password for an access token and a refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      model.LoginRequest  true  "Credentials"
// @Success      200      {object}  model.LoginResult
// @Failure      400      {object}  common.AppError
// @Failure      401      {object}  common.AppError
// @Failure      429      {object}  common.AppError
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}

	writeJSON(w, http.StatusOK, res)
	return nil
}

// Refresh godoc
// @Summary      Refresh the access token
// @Description  Rotates the refresh token. The presented refresh token cannot be used again.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      model.RefreshTokenRequest  true  "Refresh token"
// @Success      200      {object}  model.RefreshResult
// @Failure      400      {object}  common.AppError
// @Failure      401      {object}  common.AppError
// @Failure      404      {object}  common.AppError
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshTokenRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	res, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		return serviceError(err)
	}

	writeJSON(w, http.StatusOK, res)
	return nil
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the bearer access token and ends the refresh session. Always succeeds for unusable tokens.
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      500  {object}  common.AppError
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	token, ok := bearerToken(r)
	if !ok {
		logger.Log.Debug("Logout without bearer token")
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		return serviceError(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Profile godoc
// @Summary      Current user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  model.PublicUser
// @Failure      401  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /api/auth/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		return serviceError(err)
	}

	writeJSON(w, http.StatusOK, user)
	return nil
}
