package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
	"github.com/dmitrijs2005/thriftmarket/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Quote is the authoritative price of a cart. Items holds one entry per
// requested line that resolved to a product, in request order.
type Quote struct {
	Items      []*models.Product
	TotalCents int64
}

// ProductIDs returns the ids of the priced lines.
func (q *Quote) ProductIDs() []string {
	ids := make([]string, len(q.Items))
	for i, p := range q.Items {
		ids[i] = p.ID
	}
	return ids
}

// PricingService computes cart totals from stored prices only.
type PricingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewPricingService(db *sql.DB, m repomanager.RepositoryManager) *PricingService {
	return &PricingService{db: db, repomanager: m}
}

// Quote prices ids. Unknown or malformed ids are skipped; the first
// unavailable product aborts the whole computation.
func (s *PricingService) Quote(ctx context.Context, ids []string) (*Quote, error) {
	valid := validProductIDs(ids)
	if len(valid) == 0 {
		return nil, common.ErrEmptyOrder
	}

	found, err := s.repomanager.Products(s.db).GetByIDs(ctx, unique(valid))
	if err != nil {
		return nil, fmt.Errorf("error loading products: %w", err)
	}
	byID := make(map[string]*models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	q := &Quote{}
	for _, id := range valid {
		p, ok := byID[id]
		if !ok {
			continue
		}
		if !p.Available() {
			return nil, &common.StockError{ProductName: p.Name}
		}
		q.Items = append(q.Items, p)
		q.TotalCents += p.PriceCents
	}

	if q.TotalCents == 0 {
		return nil, common.ErrEmptyOrder
	}
	return q, nil
}

// validProductIDs keeps well-formed ids in canonical form, preserving order
// and duplicates.
func validProductIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		out = append(out, u.String())
	}
	return out
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
