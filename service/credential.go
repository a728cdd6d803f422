package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-marketplace-api/model"
	"go-marketplace-api/repository"
)

// CredentialVerifier checks an email/password pair against the stored hash.
type CredentialVerifier struct {
	users  repository.IUserRepository
	hasher PasswordHasher
}

func NewCredentialVerifier(users repository.IUserRepository, hasher PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{users: users, hasher: hasher}
}

// Validate returns the user on a match. An unknown email and a wrong password
// both yield ErrInvalidCredentials.
func (v *CredentialVerifier) Validate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := v.users.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := v.hasher.Compare(password, user.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
