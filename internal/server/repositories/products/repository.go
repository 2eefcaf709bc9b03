// Package products reads catalogue rows for pricing and performs the
// conditional stock decrement used by settlement.
package products

import (
	"context"

	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
)

type Repository interface {
	// GetByIDs returns the products that exist among ids, in no particular
	// order. ids must be well-formed UUIDs.
	GetByIDs(ctx context.Context, ids []string) ([]*models.Product, error)

	// Decrement takes one unit of stock from product id. It fails with
	// common.ErrOutOfStock when there is nothing left to take, leaving the
	// row untouched.
	Decrement(ctx context.Context, id string) (*models.Product, error)
}
