package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/thriftmarket/internal/client/client"
	"github.com/dmitrijs2005/thriftmarket/internal/client/models"
)

var ErrNoProducts = errors.New("no product ids given")

// CheckoutResult is an intent plus, in simulation mode, the order it
// settled into. A live intent has no order yet: the buyer pays in the
// browser and confirms afterwards.
type CheckoutResult struct {
	Intent *models.Intent
	Order  *models.Order
}

type CheckoutService interface {
	Checkout(ctx context.Context, productIDs []string) (*CheckoutResult, error)
	Confirm(ctx context.Context, intentID string, productIDs []string) (*models.Order, error)
	Orders(ctx context.Context) ([]*models.Order, error)
}

type checkoutService struct {
	client client.Client
}

func NewCheckoutService(c client.Client) CheckoutService {
	return &checkoutService{client: c}
}

func (s *checkoutService) Checkout(ctx context.Context, productIDs []string) (*CheckoutResult, error) {
	if len(productIDs) == 0 {
		return nil, ErrNoProducts
	}
	intent, err := s.client.CreateIntent(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	res := &CheckoutResult{Intent: intent}
	if !intent.IsSimulation {
		return res, nil
	}

	// a simulated client secret is the intent id itself
	order, err := s.client.ConfirmOrder(ctx, intent.ClientSecret, productIDs)
	if err != nil {
		return res, err
	}
	res.Order = order
	return res, nil
}

func (s *checkoutService) Confirm(ctx context.Context, intentID string, productIDs []string) (*models.Order, error) {
	if len(productIDs) == 0 {
		return nil, ErrNoProducts
	}
	return s.client.ConfirmOrder(ctx, intentID, productIDs)
}

func (s *checkoutService) Orders(ctx context.Context) ([]*models.Order, error) {
	return s.client.MyOrders(ctx)
}
