// Package refreshtokens stores the refresh half of browser sessions.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
)

type Repository interface {
	// Create stores token for userID, redeemable until expiresAt.
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// Take deletes token and returns what it held, so a token can be
	// redeemed once even under concurrent refreshes. Unknown tokens give
	// common.ErrorNotFound.
	Take(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete is idempotent.
	Delete(ctx context.Context, token string) error

	// DeleteExpired purges tokens that expired before now and reports how many went.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
