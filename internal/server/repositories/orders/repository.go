// Package orders persists settled orders and their line items.
package orders

import (
	"context"

	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
)

type Repository interface {
	// Create inserts the order and its items. A second order for the same
	// payment intent fails with common.ErrorAlreadyExists.
	Create(ctx context.Context, order *models.Order) (*models.Order, error)

	// ListByBuyer returns the buyer's orders, newest first, items included.
	ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error)
}
