package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-marketplace-api/logger"
	"go-marketplace-api/metrics"
	"go-marketplace-api/model"
	"go-marketplace-api/repository"

	"github.com/sirupsen/logrus"
)

// RegisterInput carries the fields of a new account. Roles defaults to {user}.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Roles     []model.Role
}

// AuthService coordinates the session lifecycle: register, login, refresh
// with rotation, and logout. The stored refresh token hash on the user row is
// the only session state; it is overwritten by login, rotated by refresh with
// a compare-and-set, and cleared by logout.
type AuthService struct {
	users         repository.IUserRepository
	credentials   *CredentialVerifier
	tokens        *TokenService
	ledger        *RevocationLedger
	hasher        PasswordHasher
	returnRotated bool
	now           func() time.Time
}

// NewAuthService creates an AuthService. returnRotated controls whether Refresh
// hands the rotated refresh token back.
func NewAuthService(users repository.IUserRepository, tokens *TokenService, ledger *RevocationLedger, hasher PasswordHasher, returnRotated bool) *AuthService {
	return &AuthService{
		users:         users,
		credentials:   NewCredentialVerifier(users, hasher),
		tokens:        tokens,
		ledger:        ledger,
		hasher:        hasher,
		returnRotated: returnRotated,
		now:           time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user *model.PublicUser, err error) {
	defer func() { metrics.RecordAuth("register", outcome(err)) }()

	_, err = s.users.GetByEmail(ctx, in.Email)
	if err == nil {
		return nil, ErrDuplicateAccount
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	roles := in.Roles
	if len(roles) == 0 {
		roles = []model.Role{model.RoleUser}
	}
	u := &model.User{
		Email:     in.Email,
		Password:  hashed,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Roles:     roles,
	}
	if err = s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": u.ID,
		"roles":   u.Roles,
	}).Info("User registered")
	return u.Public(), nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (res *model.LoginResult, err error) {
	defer func() { metrics.RecordAuth("login", outcome(err)) }()

	user, err := s.credentials.Validate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	access, accessExp, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	hash, err := s.hasher.Hash(FingerprintToken(refresh))
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}
	if err = s.users.UpdateRefreshTokenHash(ctx, user.ID, &hash); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	now := s.now()
	user.LastLoginAt = &now
	logger.Log.WithField("user_id", user.ID).Info("Login succeeded")

	return &model.LoginResult{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: refreshExp,
		User:                  user.Public(),
	}, nil
}

// Refresh exchanges a refresh token for a new access token and rotates the
// refresh token. A token can be exchanged at most once; of two concurrent
// exchanges with the same token exactly one succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (res *model.RefreshResult, err error) {
	defer func() { metrics.RecordAuth("refresh", outcome(err)) }()

	revoked, err := s.ledger.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenInvalid
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.RefreshTokenHash == nil {
		return nil, ErrTokenInvalid
	}
	prev := *user.RefreshTokenHash
	ok, err := s.hasher.Compare(FingerprintToken(refreshToken), prev)
	if err != nil {
		return nil, fmt.Errorf("failed to compare refresh token hash: %w", err)
	}
	if !ok {
		return nil, ErrTokenInvalid
	}

	access, accessExp, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	next, nextExp, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	nextHash, err := s.hasher.Hash(FingerprintToken(next))
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}

	swapped, err := s.users.SwapRefreshTokenHash(ctx, user.ID, prev, nextHash)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !swapped {
		return nil, ErrTokenInvalid
	}

	// The hash swap already invalidated the old token; the ledger entry only
	// lets replays fail before the user lookup.
	if err := s.ledger.Blacklist(ctx, refreshToken, claims.ExpiresAt.Time, true, &user.ID, model.RevocationReasonRotation); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Warn("Failed to revoke rotated refresh token")
	}

	logger.Log.WithField("user_id", user.ID).Info("Refresh token rotated")

	res = &model.RefreshResult{
		AccessToken:          access,
		AccessTokenExpiresAt: accessExp,
	}
	if s.returnRotated {
		res.RefreshToken = next
		res.RefreshTokenExpiresAt = &nextExp
	}
	return res, nil
}

// Logout revokes the access token until it expires and ends the refresh
// session of its subject. A token that cannot be decoded makes logout a no-op.
func (s *AuthService) Logout(ctx context.Context, accessToken string) (err error) {
	defer func() { metrics.RecordAuth("logout", outcome(err)) }()

	claims, decodeErr := s.tokens.DecodeAccessToken(accessToken)
	if decodeErr != nil {
		logger.Log.Debug("Logout with undecodable token ignored")
		return nil
	}

	userID := claims.Subject
	if exp := claims.ExpiresAt.Time; !s.now().After(exp) {
		if err = s.ledger.Blacklist(ctx, accessToken, exp, false, &userID, model.RevocationReasonLogout); err != nil {
			return err
		}
	}

	if err = s.users.UpdateRefreshTokenHash(ctx, userID, nil); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	logger.Log.WithField("user_id", userID).Info("Logout completed")
	return nil
}

// Profile returns the public projection of an active user.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user.Public(), nil
}
