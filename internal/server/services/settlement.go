package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/dmitrijs2005/thriftmarket/internal/dbx"
	"github.com/dmitrijs2005/thriftmarket/internal/logging"
	"github.com/dmitrijs2005/thriftmarket/internal/server/audit"
	"github.com/dmitrijs2005/thriftmarket/internal/server/challenges"
	"github.com/dmitrijs2005/thriftmarket/internal/server/metrics"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
	"github.com/dmitrijs2005/thriftmarket/internal/server/payments"
	"github.com/dmitrijs2005/thriftmarket/internal/server/repositories/repomanager"
)

// settlementMarkerTTL bounds how long a simulated intent id stays burned.
// Completed orders are also protected by the unique intent id column.
const settlementMarkerTTL = 30 * 24 * time.Hour

// SettlementService turns a paid intent into stock decrements and exactly
// one order.
type SettlementService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	provider    payments.Provider
	challenges  challenges.Store
	audit       *audit.Recorder
	metrics     *metrics.Metrics
	logger      logging.Logger
}

func NewSettlementService(db *sql.DB, m repomanager.RepositoryManager, provider payments.Provider,
	store challenges.Store, rec *audit.Recorder, met *metrics.Metrics, logger logging.Logger) *SettlementService {
	return &SettlementService{
		db:          db,
		repomanager: m,
		provider:    provider,
		challenges:  store,
		audit:       rec,
		metrics:     met,
		logger:      logger.With("module", "settlement"),
	}
}

// Confirm verifies intentID against the caller and the declared products,
// then settles. Nothing is written unless every check passes, and the stock
// decrements and the order commit together.
func (s *SettlementService) Confirm(ctx context.Context, userID, intentID string, productIDs []string) (*models.Order, error) {
	if intentID == "" {
		return nil, fmt.Errorf("%w: paymentIntentId is required", common.ErrValidation)
	}

	var err error
	simulated := strings.HasPrefix(intentID, common.SimulatedIntentPrefix)
	if simulated {
		err = s.claimSimulated(ctx, userID, intentID)
	} else {
		err = s.verifyLive(ctx, userID, intentID, productIDs)
	}
	if err != nil {
		return nil, err
	}

	order, err := s.settle(ctx, userID, intentID, productIDs)
	if err != nil {
		if errors.Is(err, common.ErrIntentAlreadyConsumed) {
			s.metrics.Settlement(metrics.SettlementRejected)
			s.audit.Recordf(ctx, userID, audit.ActionSecurityAlert, "payment intent %s presented twice", intentID)
		} else {
			s.metrics.Settlement(metrics.SettlementFailed)
			if simulated {
				s.releaseSimulated(ctx, intentID)
			}
		}
		return nil, err
	}

	s.metrics.Settlement(metrics.SettlementCompleted)
	s.audit.Recordf(ctx, userID, audit.ActionOrderPlaced, "Order #%s placed successfully. Amount: %d cents", order.ID, order.TotalCents)
	s.logger.Info(ctx, "order settled", "order_id", order.ID, "user_id", userID, "total_cents", order.TotalCents)
	return order, nil
}

// ListOrders returns the buyer's order history.
func (s *SettlementService) ListOrders(ctx context.Context, userID string) ([]*models.Order, error) {
	return s.repomanager.Orders(s.db).ListByBuyer(ctx, userID)
}

// claimSimulated accepts a simulated intent only when the server itself runs
// the simulated backend, and only once.
func (s *SettlementService) claimSimulated(ctx context.Context, userID, intentID string) error {
	if !s.provider.Simulated() {
		s.reject(ctx, userID, audit.ActionSecurityAlert, "simulated intent %s presented to live provider", intentID)
		return common.ErrPaymentNotSucceeded
	}

	claimed, err := s.challenges.Claim(ctx, challenges.SettlementPrefix+intentID, settlementMarkerTTL)
	if err != nil {
		s.metrics.Settlement(metrics.SettlementFailed)
		return fmt.Errorf("claim intent: %w", err)
	}
	if !claimed {
		s.reject(ctx, userID, audit.ActionSecurityAlert, "simulated intent %s presented twice", intentID)
		return common.ErrIntentAlreadyConsumed
	}
	return nil
}

// releaseSimulated frees the marker after a settlement that wrote nothing,
// so the buyer can retry the same intent.
func (s *SettlementService) releaseSimulated(ctx context.Context, intentID string) {
	if err := s.challenges.Release(ctx, challenges.SettlementPrefix+intentID); err != nil {
		s.logger.Error(ctx, "release settlement marker", "intent_id", intentID, "error", err)
	}
}

func (s *SettlementService) verifyLive(ctx context.Context, userID, intentID string, productIDs []string) error {
	intent, err := s.provider.RetrieveIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrProviderRejected) {
			s.reject(ctx, userID, audit.ActionPaymentFailed, "Payment confirmation failed for Intent %s: %v", intentID, err)
			return common.ErrPaymentNotSucceeded
		}
		s.metrics.Settlement(metrics.SettlementFailed)
		s.audit.Recordf(ctx, userID, audit.ActionPaymentFailed, "Payment confirmation failed for Intent %s: %v", intentID, err)
		return err
	}

	if intent.Status != payments.StatusSucceeded {
		s.reject(ctx, userID, audit.ActionPaymentFailed, "Payment confirmation failed for Intent %s: status %s", intentID, intent.Status)
		return common.ErrPaymentNotSucceeded
	}

	if intent.Metadata[payments.MetaUserID] != userID {
		s.reject(ctx, userID, audit.ActionSecurityAlert, "Payment metadata mismatch on Intent %s - Potential fraud attempt", intentID)
		return common.ErrAuthorizationMismatch
	}

	authorized := payments.ProductIDsFromMetadata(intent.Metadata)
	if !sameProductSet(authorized, productIDs) {
		s.reject(ctx, userID, audit.ActionSecurityAlert, "Order content mismatch on Intent %s - Potential tampering", intentID)
		return common.ErrIntegrityCheckFailed
	}
	return nil
}

func (s *SettlementService) reject(ctx context.Context, userID, action, format string, args ...any) {
	s.metrics.Settlement(metrics.SettlementRejected)
	s.audit.Recordf(ctx, userID, action, format, args...)
}

func (s *SettlementService) settle(ctx context.Context, userID, intentID string, productIDs []string) (*models.Order, error) {
	ids := validProductIDs(productIDs)

	var order *models.Order
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		products := s.repomanager.Products(tx)

		names := map[string]string{}
		if len(ids) > 0 {
			found, err := products.GetByIDs(ctx, unique(ids))
			if err != nil {
				return fmt.Errorf("error loading products: %w", err)
			}
			for _, p := range found {
				names[p.ID] = p.Name
			}
		}

		o := &models.Order{
			BuyerID:         userID,
			Status:          models.OrderStatusCompleted,
			PaymentIntentID: intentID,
		}
		for _, id := range ids {
			name, ok := names[id]
			if !ok {
				continue
			}
			p, err := products.Decrement(ctx, id)
			if err != nil {
				if errors.Is(err, common.ErrOutOfStock) {
					return &common.StockError{ProductName: name}
				}
				return fmt.Errorf("error decrementing stock: %w", err)
			}
			o.Items = append(o.Items, models.OrderItem{ProductID: p.ID, PriceCents: p.PriceCents})
			o.TotalCents += p.PriceCents
		}
		if len(o.Items) == 0 {
			return common.ErrEmptyOrder
		}

		created, err := s.repomanager.Orders(tx).Create(ctx, o)
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.ErrIntentAlreadyConsumed
			}
			return fmt.Errorf("error creating order: %w", err)
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// sameProductSet reports whether a and b hold the same ids with the same
// multiplicity, in any order.
func sameProductSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := make([]string, 0, len(b))
	for _, id := range b {
		if c := validProductIDs([]string{id}); len(c) == 1 {
			id = c[0]
		}
		y = append(y, id)
	}
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
