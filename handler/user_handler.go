package handler

import (
	"context"
	"net/http"

	"go-marketplace-api/common"
	"go-marketplace-api/logger"
	"go-marketplace-api/model"

	"github.com/sirupsen/logrus"
)

type userService interface {
	ListUsers(ctx context.Context) ([]*model.PublicUser, error)
	UpdateUserRoles(ctx context.Context, userID string, roles []model.Role) error
}

type UserHandler struct {
	service userService
}

func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// ListUsers godoc
// @Summary      List all users
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   model.PublicUser
// @Failure      401  {object}  common.AppError
// @Failure      403  {object}  common.AppError
// @Router       /api/admin/users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) *common.AppError {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		return serviceError(err)
	}
	writeJSON(w, http.StatusOK, users)
	return nil
}

// UpdateUserRoles godoc
// @Summary      Replace a user's roles
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "User ID"
// @Param        request  body      model.UpdateUserRolesRequest  true  "New roles"
// @Success      200      {object}  map[string]string
// @Failure      400      {object}  common.AppError
// @Failure      403      {object}  common.AppError
// @Failure      404      {object}  common.AppError
// @Router       /api/admin/users/{id}/roles [put]
func (h *UserHandler) UpdateUserRoles(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID := r.PathValue("id")
	if userID == "" {
		return common.NewAppError(http.StatusBadRequest, "Invalid user ID", nil)
	}

	var req model.UpdateUserRolesRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	adminID, _ := userIDFromContext(r.Context())
	logger.Log.WithFields(logrus.Fields{
		"admin_id": adminID,
		"user_id":  userID,
		"roles":    req.Roles,
	}).Info("Update user roles request received")

	if err := h.service.UpdateUserRoles(r.Context(), userID, req.Roles); err != nil {
		return serviceError(err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User roles updated successfully"})
	return nil
}
