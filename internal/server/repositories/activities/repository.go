// Package activities appends rows to the activity log. Rows are never
// updated or deleted.
package activities

import (
	"context"

	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, a *models.Activity) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Activity, error)
}
