package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/dmitrijs2005/thriftmarket/internal/dbx"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// uuidArray renders ids as a Postgres array literal for ANY($1::uuid[]).
func uuidArray(ids []string) string {
	return "{" + strings.Join(ids, ",") + "}"
}

func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query :=
		`SELECT id, name, price_cents, category, condition, quantity, is_sold, owner_id, created_at
		 FROM products
		 WHERE id = ANY($1::uuid[])`

	rows, err := r.db.QueryContext(ctx, query, uuidArray(ids))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Category, &p.Condition,
			&p.Quantity, &p.IsSold, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Decrement(ctx context.Context, id string) (*models.Product, error) {
	query :=
		`UPDATE products
		 SET quantity = quantity - 1, is_sold = (quantity - 1 = 0)
		 WHERE id = $1 AND quantity > 0
		 RETURNING id, name, price_cents, quantity, is_sold`

	p := &models.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.PriceCents, &p.Quantity, &p.IsSold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrOutOfStock
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}
