package orders

import (
	"context"
	"fmt"

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

// Create should run inside a transaction; items are separate statements.
func (r *PostgresRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	query :=
		`INSERT INTO orders (buyer_id, total_cents, status, payment_intent_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		order.BuyerID, order.TotalCents, order.Status, order.PaymentIntentID).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	itemQuery :=
		`INSERT INTO order_items (order_id, position, product_id, price_cents)
		 VALUES ($1, $2, $3, $4)`

	for i, item := range order.Items {
		if _, err := r.db.ExecContext(ctx, itemQuery, order.ID, i, item.ProductID, item.PriceCents); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}

	return order, nil
}

func (r *PostgresRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error) {
	query :=
		`SELECT o.id, o.total_cents, o.status, o.payment_intent_id, o.created_at,
		        i.product_id, i.price_cents
		 FROM orders o
		 JOIN order_items i ON i.order_id = o.id
		 WHERE o.buyer_id = $1
		 ORDER BY o.created_at DESC, o.id, i.position`

	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Order
	var current *models.Order
	for rows.Next() {
		var o models.Order
		var item models.OrderItem
		if err := rows.Scan(&o.ID, &o.TotalCents, &o.Status, &o.PaymentIntentID, &o.CreatedAt,
			&item.ProductID, &item.PriceCents); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if current == nil || current.ID != o.ID {
			o.BuyerID = buyerID
			current = &o
			result = append(result, current)
		}
		current.Items = append(current.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
