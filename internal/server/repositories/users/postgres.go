package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/dmitrijs2005/thriftmarket/internal/dbx"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
)

const userColumns = `id, name, email, password_hash, role, mfa_secret, mfa_enabled,
		        failed_login_attempts, lock_until, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.Role).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email = $1`

	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id = $1`

	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var lockUntil sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.MFASecret, &user.MFAEnabled,
		&user.FailedLoginAttempts, &lockUntil, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lockUntil.Valid {
		user.LockUntil = &lockUntil.Time
	}
	return user, nil
}

func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	query :=
		`UPDATE users SET
		   failed_login_attempts = CASE WHEN failed_login_attempts + 1 >= $2 THEN 0 ELSE failed_login_attempts + 1 END,
		   lock_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE lock_until END
		 WHERE id = $1
		 RETURNING failed_login_attempts, lock_until`

	var attempts int
	var until sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id, maxAttempts, lockUntil).Scan(&attempts, &until)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, common.ErrorNotFound
		}
		return 0, nil, fmt.Errorf("db error: %w", err)
	}

	if !until.Valid {
		return attempts, nil, nil
	}
	return attempts, &until.Time, nil
}

func (r *PostgresRepository) ResetLoginFailures(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET failed_login_attempts = 0, lock_until = NULL
		 WHERE id = $1`

	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) SetMFASecret(ctx context.Context, id string, secret string) error {
	query :=
		`UPDATE users SET mfa_secret = $2, mfa_enabled = FALSE
		 WHERE id = $1`

	return r.exec(ctx, query, id, secret)
}

func (r *PostgresRepository) EnableMFA(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET mfa_enabled = TRUE
		 WHERE id = $1 AND mfa_secret <> ''`

	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) DisableMFA(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET mfa_enabled = FALSE, mfa_secret = ''
		 WHERE id = $1`

	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
