package models

import "time"

// Product is a listed item. PriceCents is the only price the server trusts.
type Product struct {
	ID         string
	Name       string
	PriceCents int64
	Category   string
	Condition  string
	Quantity   int
	IsSold     bool
	OwnerID    string
	CreatedAt  time.Time
}

// Available reports whether at least one unit can still be sold.
func (p *Product) Available() bool {
	return !p.IsSold && p.Quantity > 0
}
