package repository

import (
	"context"
	"database/sql"
	"time"

	"go-marketplace-api/logger"
	"go-marketplace-api/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"
)

// IRevocationRepository stores revoked token fingerprints.
type IRevocationRepository interface {
	Insert(ctx context.Context, token *model.RevokedToken) error
	// FindActive returns the revocation for tokenHash that has not yet expired
	// at now, or sql.ErrNoRows.
	FindActive(ctx context.Context, tokenHash string, now time.Time) (*model.RevokedToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type RevocationRepository struct {
	DB *sql.DB
}

func NewRevocationRepository(db *sql.DB) *RevocationRepository {
	return &RevocationRepository{DB: db}
}

func (r *RevocationRepository) Insert(ctx context.Context, token *model.RevokedToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"is_refresh_token": token.IsRefreshToken,
		"reason":           token.Reason,
		"expires_at":       token.ExpiresAt,
	})
	log.Info("Executing query to revoke token")

	query, args, err := psql.Insert("revoked_tokens").
		Columns("token_hash", "expires_at", "is_refresh_token", "user_id", "reason").
		Values(token.TokenHash, token.ExpiresAt, token.IsRefreshToken, token.UserID, token.Reason).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return err
	}

	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&token.ID, &token.CreatedAt); err != nil {
		log.WithError(err).Error("Failed to execute revoke token query")
		return err
	}
	return nil
}

func (r *RevocationRepository) FindActive(ctx context.Context, tokenHash string, now time.Time) (*model.RevokedToken, error) {
	query, args, err := psql.Select("id", "token_hash", "expires_at", "is_refresh_token", "user_id", "reason", "created_at").
		From("revoked_tokens").
		Where(sq.Eq{"token_hash": tokenHash}).
		Where(sq.GtOrEq{"expires_at": now}).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		t      model.RevokedToken
		userID sql.NullString
		reason sql.NullString
	)
	err = r.DB.QueryRowContext(ctx, query, args...).
		Scan(&t.ID, &t.TokenHash, &t.ExpiresAt, &t.IsRefreshToken, &userID, &reason, &t.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).Error("Failed to execute revoked token lookup")
		}
		return nil, err
	}
	if userID.Valid {
		id := userID.String
		t.UserID = &id
	}
	t.Reason = reason.String
	return &t, nil
}

// DeleteExpired removes every record whose expiry is strictly before now.
func (r *RevocationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	log := logger.Log.WithField("before", now)
	log.Info("Executing query to purge expired revocations")

	query, args, err := psql.Delete("revoked_tokens").
		Where(sq.Lt{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute purge query")
		return 0, err
	}
	return res.RowsAffected()
}
