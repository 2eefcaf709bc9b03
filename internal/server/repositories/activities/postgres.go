package activities

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/thriftmarket/internal/dbx"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append is idempotent on the activity id, so a retried emit writes one row.
func (r *PostgresRepository) Append(ctx context.Context, a *models.Activity) error {
	query :=
		`INSERT INTO activity_logs (id, user_id, action, details, severity, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.Action, a.Details, a.Severity, a.IPAddress, a.UserAgent, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Activity, error) {
	query :=
		`SELECT id, user_id, action, details, severity, ip_address, user_agent, created_at
		 FROM activity_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Activity
	for rows.Next() {
		a := &models.Activity{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.Details, &a.Severity,
			&a.IPAddress, &a.UserAgent, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
