// file: repository/user_repository.go

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-marketplace-api/ids"
	"go-marketplace-api/logger"
	"go-marketplace-api/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateEmail is returned by Create when the email is already taken.
var ErrDuplicateEmail = errors.New("email already registered")

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var userColumns = []string{
	"id", "email", "password", "first_name", "last_name", "roles",
	"is_active", "refresh_token_hash", "last_login_at", "created_at", "updated_at",
}

// IUserRepository defines the contract for user database operations.
// Lookups only return active users; a missing or inactive user yields sql.ErrNoRows.
type IUserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetAllUsers(ctx context.Context) ([]*model.User, error)
	UpdateRoles(ctx context.Context, userID string, roles []model.Role) error
	// UpdateRefreshTokenHash overwrites the stored hash; nil clears it.
	UpdateRefreshTokenHash(ctx context.Context, userID string, hash *string) error
	// SwapRefreshTokenHash replaces the stored hash only if it still equals expected.
	// It reports false when another writer got there first.
	SwapRefreshTokenHash(ctx context.Context, userID, expected, next string) (bool, error)
}

// UserRepository implements IUserRepository.
type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u           model.User
		roles       pq.StringArray
		refreshHash sql.NullString
		lastLogin   sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &roles,
		&u.IsActive, &refreshHash, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Roles = model.RolesFromStrings(roles)
	if refreshHash.Valid {
		h := refreshHash.String
		u.RefreshTokenHash = &h
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Create inserts a new user. An empty ID is filled with a fresh ULID.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = ids.New()
	}
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"roles":   user.Roles,
	})
	log.Info("Executing query to create a new user")

	query, args, err := psql.Insert("users").
		Columns("id", "email", "password", "first_name", "last_name", "roles").
		Values(user.ID, user.Email, user.Password, user.FirstName, user.LastName,
			pq.StringArray(model.RolesToStrings(user.Roles))).
		Suffix("RETURNING is_active, created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}

	err = r.DB.QueryRowContext(ctx, query, args...).Scan(&user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			log.Info("User email already registered")
			return ErrDuplicateEmail
		}
		log.WithError(err).Error("Failed to execute create user query")
		return err
	}
	return nil
}

// GetByEmail compares emails case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	log := logger.Log
	log.Info("Executing query to get user by email")

	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(sq.Expr("LOWER(email) = LOWER(?)", email)).
		Where(sq.Eq{"is_active": true}).
		ToSql()
	if err != nil {
		return nil, err
	}

	user, err := scanUser(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute get user by email query")
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	log := logger.Log.WithField("user_id", id)
	log.Info("Executing query to get user by ID")

	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"is_active": true}).
		ToSql()
	if err != nil {
		return nil, err
	}

	user, err := scanUser(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute get user by ID query")
		}
		return nil, err
	}
	return user, nil
}

// GetAllUsers retrieves every user, active or not. For admin use only.
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]*model.User, error) {
	log := logger.Log
	log.Info("Executing query to get all users")

	query, args, err := psql.Select(userColumns...).
		From("users").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for all users")
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan user row")
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateRoles replaces the roles of an active user. It returns sql.ErrNoRows if no row matched.
func (r *UserRepository) UpdateRoles(ctx context.Context, userID string, roles []model.Role) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"roles":   roles,
	})
	log.Info("Executing query to update user roles")

	query, args, err := psql.Update("users").
		Set("roles", pq.StringArray(model.RolesToStrings(roles))).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": userID}).
		Where(sq.Eq{"is_active": true}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute update user roles query")
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *UserRepository) UpdateRefreshTokenHash(ctx context.Context, userID string, hash *string) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"clear":   hash == nil,
	})
	log.Info("Executing query to update refresh token hash")

	b := psql.Update("users").
		Set("refresh_token_hash", hash).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": userID})
	if hash != nil {
		b = b.Set("last_login_at", time.Now().UTC())
	}
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}

	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to execute update refresh token hash query")
		return err
	}
	return nil
}

func (r *UserRepository) SwapRefreshTokenHash(ctx context.Context, userID, expected, next string) (bool, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to rotate refresh token hash")

	query, args, err := psql.Update("users").
		Set("refresh_token_hash", next).
		Set("last_login_at", time.Now().UTC()).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": userID}).
		Where(sq.Eq{"refresh_token_hash": expected}).
		Where(sq.Eq{"is_active": true}).
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute rotate refresh token hash query")
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		log.Warn("Refresh token hash changed concurrently, rotation rejected")
	}
	return n == 1, nil
}
