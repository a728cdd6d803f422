package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-marketplace-api/logger"
	"go-marketplace-api/model"
	"go-marketplace-api/repository"

	"github.com/sirupsen/logrus"
)

// UserService handles user administration.
type UserService struct {
	userRepo repository.IUserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.IUserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context) ([]*model.PublicUser, error) {
	users, err := s.userRepo.GetAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]*model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// UpdateUserRoles replaces the roles of a user. Only known roles can be
// assigned and a user always keeps at least one.
func (s *UserService) UpdateUserRoles(ctx context.Context, userID string, roles []model.Role) error {
	if len(roles) == 0 {
		return ErrInvalidRole
	}
	for _, r := range roles {
		if !r.Valid() {
			return ErrInvalidRole
		}
	}

	err := s.userRepo.UpdateRoles(ctx, userID, roles)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update roles: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"roles":   roles,
	}).Info("User roles updated")
	return nil
}
