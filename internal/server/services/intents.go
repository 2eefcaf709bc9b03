package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/dmitrijs2005/thriftmarket/internal/logging"
	"github.com/dmitrijs2005/thriftmarket/internal/server/payments"
)

// CheckoutIntent is what the buyer needs to complete a payment.
// ClientSecret is the provider's client handle in live mode and the intent
// id itself in simulation mode.
type CheckoutIntent struct {
	ClientSecret string
	AmountCents  int64
	Simulated    bool
}

// IntentService prices a cart and provisions a payment intent bound to the
// buyer and the priced product ids. It never writes local state.
type IntentService struct {
	pricing  *PricingService
	provider payments.Provider
	currency string
	logger   logging.Logger
}

func NewIntentService(pricing *PricingService, provider payments.Provider, currency string, logger logging.Logger) *IntentService {
	return &IntentService{
		pricing:  pricing,
		provider: provider,
		currency: currency,
		logger:   logger.With("module", "intents"),
	}
}

func (s *IntentService) CreateIntent(ctx context.Context, userID string, productIDs []string) (*CheckoutIntent, error) {
	quote, err := s.pricing.Quote(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	req := payments.IntentRequest{
		Amount:     quote.TotalCents,
		Currency:   s.currency,
		UserID:     userID,
		ProductIDs: quote.ProductIDs(),
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	intent, err := s.provider.CreateIntent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create intent: %w", err)
	}

	s.logger.Info(ctx, "payment intent created",
		"user_id", userID, "amount_cents", quote.TotalCents, "items", len(quote.Items), "simulated", s.provider.Simulated())

	return &CheckoutIntent{
		ClientSecret: intent.ClientSecret,
		AmountCents:  quote.TotalCents,
		Simulated:    s.provider.Simulated(),
	}, nil
}
