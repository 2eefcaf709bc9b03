package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func TestJoinSplitProductIDs(t *testing.T) {
	ids := []string{"c", "a", "b"}
	joined := JoinProductIDs(ids)

	assert.Equal(t, "a,b,c", joined)
	assert.Equal(t, []string{"c", "a", "b"}, ids, "input must not be reordered")
	assert.Equal(t, []string{"a", "b", "c"}, SplitProductIDs(joined))
	assert.Nil(t, SplitProductIDs(""))
}

func uuids(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids
}

func TestMetadata_ShardsLargeCarts(t *testing.T) {
	tests := []struct {
		items      int
		wantShards int
	}{
		{items: 13, wantShards: 0},
		{items: 14, wantShards: 2},
		{items: 40, wantShards: 4},
	}
	for _, tt := range tests {
		ids := uuids(tt.items)
		md := IntentRequest{UserID: "u1", ProductIDs: ids}.Metadata()

		assert.Equal(t, "u1", md[MetaUserID])
		for k, v := range md {
			assert.LessOrEqual(t, len(v), MetadataValueLimit, "key %s", k)
		}
		if tt.wantShards == 0 {
			assert.Contains(t, md, MetaProductIDs)
		} else {
			assert.NotContains(t, md, MetaProductIDs)
			assert.Len(t, md, tt.wantShards+1)
		}
		assert.ElementsMatch(t, ids, ProductIDsFromMetadata(md), "%d items", tt.items)
		assert.NoError(t, IntentRequest{ProductIDs: ids}.Validate())
	}
}

func TestValidate_RejectsOversizeCart(t *testing.T) {
	assert.NoError(t, IntentRequest{ProductIDs: uuids(MaxCartItems)}.Validate())
	assert.Error(t, IntentRequest{ProductIDs: uuids(MaxCartItems + 1)}.Validate())
}

func TestProductIDsFromMetadata_Empty(t *testing.T) {
	assert.Nil(t, ProductIDsFromMetadata(map[string]string{MetaUserID: "u1"}))
	assert.Equal(t, []string{"a", "b"}, ProductIDsFromMetadata(map[string]string{MetaProductIDs: "a,b"}))
}

func TestIsLiveKey(t *testing.T) {
	assert.False(t, IsLiveKey(""))
	assert.False(t, IsLiveKey(PlaceholderKey))
	assert.True(t, IsLiveKey("sk_test_51abc"))
}

func TestSimulatedProvider(t *testing.T) {
	p := NewSimulatedProvider()
	require.True(t, p.Simulated())

	in, err := p.CreateIntent(context.Background(), IntentRequest{
		Amount: 3499, Currency: "usd", UserID: "u1", ProductIDs: []string{"p2", "p1"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(in.ID, common.SimulatedIntentPrefix))
	assert.Equal(t, in.ID, in.ClientSecret)
	assert.Equal(t, int64(3499), in.Amount)
	assert.Equal(t, map[string]string{MetaUserID: "u1", MetaProductIDs: "p1,p2"}, in.Metadata)

	other, err := p.CreateIntent(context.Background(), IntentRequest{Amount: 1})
	require.NoError(t, err)
	assert.NotEqual(t, in.ID, other.ID)

	_, err = p.RetrieveIntent(context.Background(), in.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func newTestStripe(t *testing.T, h http.HandlerFunc) *StripeProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return newStripeProviderWithBackend("sk_test_123", backend)
}

const intentJSON = `{
  "id": "pi_123",
  "object": "payment_intent",
  "amount": 3499,
  "currency": "usd",
  "status": "succeeded",
  "client_secret": "pi_123_secret_abc",
  "metadata": {"userId": "u1", "productIds": "p1,p2"}
}`

func TestStripeProvider_CreateIntent(t *testing.T) {
	p := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "3499", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "u1", r.PostForm.Get("metadata[userId]"))
		assert.Equal(t, "p1,p2", r.PostForm.Get("metadata[productIds]"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(intentJSON))
	})
	assert.False(t, p.Simulated())

	in, err := p.CreateIntent(context.Background(), IntentRequest{
		Amount: 3499, Currency: "usd", UserID: "u1", ProductIDs: []string{"p2", "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, &Intent{
		ID: "pi_123", ClientSecret: "pi_123_secret_abc", Amount: 3499, Currency: "usd",
		Status: StatusSucceeded, Metadata: map[string]string{"userId": "u1", "productIds": "p1,p2"},
	}, in)
}

func TestStripeProvider_RetrieveIntent(t *testing.T) {
	p := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(intentJSON))
	})

	in, err := p.RetrieveIntent(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, in.Status)
	assert.Equal(t, int64(3499), in.Amount)
}

func TestStripeProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		is     error
	}{
		{"unknown intent", http.StatusNotFound, `{"error":{"type":"invalid_request_error","message":"No such payment_intent","code":"resource_missing"}}`, common.ErrorNotFound},
		{"provider outage", http.StatusServiceUnavailable, `{"error":{"type":"api_error","message":"try later"}}`, common.ErrProviderUnavailable},
		{"bad api key", http.StatusUnauthorized, `{"error":{"type":"invalid_request_error","message":"Invalid API Key provided"}}`, common.ErrProviderUnavailable},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"type":"invalid_request_error","message":"Too many requests","code":"rate_limit"}}`, common.ErrProviderUnavailable},
		{"malformed id", http.StatusBadRequest, `{"error":{"type":"invalid_request_error","message":"Invalid id","code":"parameter_invalid"}}`, common.ErrProviderRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := p.RetrieveIntent(context.Background(), "pi_x")
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestStripeProvider_BadRequestIsNotOutage(t *testing.T) {
	p := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Amount must be at least 50 cents","code":"amount_too_small"}}`))
	})

	_, err := p.CreateIntent(context.Background(), IntentRequest{Amount: 1, Currency: "usd"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrProviderUnavailable)
	assert.ErrorIs(t, err, common.ErrProviderRejected)
	assert.Contains(t, err.Error(), "amount_too_small")
}

func TestStripeProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(url),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	p := newStripeProviderWithBackend("sk_test_123", backend)

	_, err := p.CreateIntent(context.Background(), IntentRequest{Amount: 100, Currency: "usd"})
	assert.ErrorIs(t, err, common.ErrProviderUnavailable)
}
