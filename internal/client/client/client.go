package client

import (
	"context"

	"github.com/dmitrijs2005/thriftmarket/internal/client/models"
)

type Client interface {
	Close() error
	Captcha(ctx context.Context) (*models.Captcha, error)
	Register(ctx context.Context, r models.Registration) (*models.User, error)
	Login(ctx context.Context, c models.Credentials) (*models.LoginResult, error)
	VerifyMFA(ctx context.Context, tempToken, code string) (*models.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	SetupMFA(ctx context.Context) (*models.Enrollment, error)
	EnableMFA(ctx context.Context, code string) error
	DisableMFA(ctx context.Context, code string) error
	CreateIntent(ctx context.Context, productIDs []string) (*models.Intent, error)
	ConfirmOrder(ctx context.Context, intentID string, productIDs []string) (*models.Order, error)
	MyOrders(ctx context.Context) ([]*models.Order, error)
}
