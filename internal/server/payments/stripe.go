package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// PlaceholderKey is the sample key shipped in example configs. It selects
// simulation like an empty key does.
const PlaceholderKey = "sk_test_placeholder"

// IsLiveKey reports whether key should select the live provider.
func IsLiveKey(key string) bool {
	return key != "" && key != PlaceholderKey
}

type StripeProvider struct {
	client *paymentintent.Client
}

// NewStripeProvider builds a client whose calls time out after timeout and
// are never retried.
func NewStripeProvider(key string, timeout time.Duration) *StripeProvider {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	})
	return newStripeProviderWithBackend(key, backend)
}

func newStripeProviderWithBackend(key string, backend stripe.Backend) *StripeProvider {
	return &StripeProvider{client: &paymentintent.Client{B: backend, Key: key}}
}

func (p *StripeProvider) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata() {
		params.AddMetadata(k, v)
	}

	pi, err := p.client.New(params)
	if err != nil {
		return nil, mapStripeErr("create intent", err)
	}
	return fromStripe(pi), nil
}

func (p *StripeProvider) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.client.Get(id, params)
	if err != nil {
		return nil, mapStripeErr("retrieve intent", err)
	}
	return fromStripe(pi), nil
}

func (p *StripeProvider) Simulated() bool { return false }

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}
}

// mapStripeErr keeps request errors (bad request, unknown intent) apart from
// failures on our side of the account or the network, which become
// ErrProviderUnavailable.
func mapStripeErr(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		switch code := se.HTTPStatusCode; {
		case code == http.StatusNotFound:
			return fmt.Errorf("stripe %s: %s: %w", op, se.Msg, common.ErrorNotFound)
		case code == 0, code >= 500,
			code == http.StatusUnauthorized, code == http.StatusForbidden, code == http.StatusTooManyRequests:
			return fmt.Errorf("stripe %s: %s: %w", op, se.Msg, common.ErrProviderUnavailable)
		default:
			return fmt.Errorf("stripe %s: %s (%s): %w", op, se.Msg, se.Code, common.ErrProviderRejected)
		}
	}
	return fmt.Errorf("stripe %s: %v: %w", op, err, common.ErrProviderUnavailable)
}
