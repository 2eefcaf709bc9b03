package payments

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/google/uuid"
)

// SimulatedProvider fabricates intents without contacting anyone. Its
// intents carry no authorization; settlement must not ask it to verify them.
// The intent id doubles as the client handle.
type SimulatedProvider struct{}

func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{}
}

func (p *SimulatedProvider) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	id := common.SimulatedIntentPrefix + uuid.NewString()
	return &Intent{
		ID:           id,
		ClientSecret: id,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       StatusRequiresPaymentMethod,
		Metadata:     req.Metadata(),
	}, nil
}

func (p *SimulatedProvider) RetrieveIntent(_ context.Context, id string) (*Intent, error) {
	return nil, fmt.Errorf("simulated intent %s cannot be retrieved: %w", id, common.ErrorNotFound)
}

func (p *SimulatedProvider) Simulated() bool { return true }
