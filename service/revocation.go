package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-marketplace-api/logger"
	"go-marketplace-api/model"
	"go-marketplace-api/repository"

	"github.com/sirupsen/logrus"
)

const revokedKeyPrefix = "revoked:"

// RevocationLedger records tokens rejected before their natural expiry.
// Postgres is the source of truth; the optional cache only short-circuits
// positive lookups.
type RevocationLedger struct {
	repo  repository.IRevocationRepository
	cache ICacheClient
	now   func() time.Time
}

// NewRevocationLedger creates a ledger. cache may be nil.
func NewRevocationLedger(repo repository.IRevocationRepository, cache ICacheClient) *RevocationLedger {
	return &RevocationLedger{repo: repo, cache: cache, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (l *RevocationLedger) WithClock(now func() time.Time) *RevocationLedger {
	l.now = now
	return l
}

// Blacklist revokes token until expiresAt. Revoking the same token twice is harmless.
func (l *RevocationLedger) Blacklist(ctx context.Context, token string, expiresAt time.Time, isRefreshToken bool, userID *string, reason string) error {
	fp := FingerprintToken(token)
	rec := &model.RevokedToken{
		TokenHash:      fp,
		ExpiresAt:      expiresAt,
		IsRefreshToken: isRefreshToken,
		UserID:         userID,
		Reason:         reason,
	}
	if err := l.repo.Insert(ctx, rec); err != nil {
		return fmt.Errorf("failed to record revoked token: %w", err)
	}

	if l.cache != nil {
		if ttl := expiresAt.Sub(l.now()); ttl > 0 {
			if err := l.cache.Set(ctx, revokedKeyPrefix+fp, reason, ttl).Err(); err != nil {
				logger.Log.WithError(err).Warn("Failed to cache revoked token")
			}
		}
	}
	return nil
}

// IsBlacklisted reports whether token has an unexpired revocation record.
func (l *RevocationLedger) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	fp := FingerprintToken(token)

	if l.cache != nil {
		n, err := l.cache.Exists(ctx, revokedKeyPrefix+fp).Result()
		if err == nil && n > 0 {
			return true, nil
		}
		if err != nil {
			logger.Log.WithError(err).Warn("Revocation cache unavailable, falling back to database")
		}
	}

	_, err := l.repo.FindActive(ctx, fp, l.now())
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return true, nil
}

// PurgeExpired deletes records whose token has expired anyway.
func (l *RevocationLedger) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := l.repo.DeleteExpired(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}
	logger.Log.WithFields(logrus.Fields{"deleted": n}).Info("Purged expired revocations")
	return n, nil
}
