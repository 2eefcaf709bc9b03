package models

import "time"

// OrderStatusCompleted is the only status settlement produces.
const OrderStatusCompleted = "Completed"

// Order is written once per successful settlement and never changed.
type Order struct {
	ID              string
	BuyerID         string
	Items           []OrderItem
	TotalCents      int64
	Status          string
	PaymentIntentID string
	CreatedAt       time.Time
}

// OrderItem records the price a product actually sold for.
type OrderItem struct {
	ProductID  string
	PriceCents int64
}
