package httpserver

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/server/auth"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
)

type itemRef struct {
	ID string `json:"id"`
}

type createIntentRequest struct {
	Items []itemRef `json:"items"`
}

type createIntentResponse struct {
	Success      bool    `json:"success"`
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	IsSimulation bool    `json:"isSimulation"`
}

type confirmOrderRequest struct {
	PaymentIntentID string    `json:"paymentIntentId"`
	Items           []itemRef `json:"items"`
}

type orderItemDTO struct {
	Product string  `json:"product"`
	Price   float64 `json:"price"`
}

type orderDTO struct {
	ID              string         `json:"id"`
	Buyer           string         `json:"buyer"`
	Items           []orderItemDTO `json:"items"`
	TotalAmount     float64        `json:"totalAmount"`
	Status          string         `json:"status"`
	PaymentIntentID string         `json:"paymentIntentId"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func itemIDs(items []itemRef) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// majorUnits converts minor currency units for display.
func (s *HTTPServer) majorUnits(cents int64) float64 {
	return float64(cents) / float64(s.minorUnitFactor)
}

func (s *HTTPServer) toOrderDTO(o *models.Order) orderDTO {
	items := make([]orderItemDTO, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemDTO{Product: it.ProductID, Price: s.majorUnits(it.PriceCents)}
	}
	return orderDTO{
		ID:              o.ID,
		Buyer:           o.BuyerID,
		Items:           items,
		TotalAmount:     s.majorUnits(o.TotalCents),
		Status:          o.Status,
		PaymentIntentID: o.PaymentIntentID,
		CreatedAt:       o.CreatedAt,
	}
}

func (s *HTTPServer) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var req createIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ci, err := s.checkout.CreateIntent(r.Context(), id.UserID, itemIDs(req.Items))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createIntentResponse{
		Success:      true,
		ClientSecret: ci.ClientSecret,
		Amount:       s.majorUnits(ci.AmountCents),
		IsSimulation: ci.Simulated,
	})
}

func (s *HTTPServer) handleConfirmOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var req confirmOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.settlement.Confirm(r.Context(), id.UserID, req.PaymentIntentID, itemIDs(req.Items))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": s.toOrderDTO(order)})
}

func (s *HTTPServer) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	orders, err := s.settlement.ListOrders(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, s.toOrderDTO(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}
