package types

import (
	"math"
	"time"
)

type PurchaseType string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

// OrderData is the decision returned by a strategy for one probe direction.
type OrderData struct {
	// Price overrides the caller's candidate price. Zero means use the candidate price.
	Price float64 `json:"price"`
	// Size of the order, positive to buy and negative to sell. Zero means no order.
	Size float64 `json:"size"`
	// Alert asks the caller to keep an alert at the candidate price when no order is placed.
	Alert bool `json:"alert"`
}

// HasOrder reports whether the decision asks for an order to be placed.
func (o OrderData) HasOrder() bool {
	return o.Size != 0
}

// Side returns the purchase side implied by the size sign.
func (o OrderData) Side() PurchaseType {
	if o.Size < 0 {
		return PurchaseTypeSell
	}

	return PurchaseTypeBuy
}

// Fill is an executed trade reported back to the strategy.
// A zero Size records an alert or a rejected order.
type Fill struct {
	ID    string    `json:"id"`
	Price float64   `json:"price"`
	Size  float64   `json:"size"`
	Time  time.Time `json:"time"`
}

// Direction returns the sign of the fill size.
func (f Fill) Direction() int {
	switch {
	case f.Size > 0:
		return 1
	case f.Size < 0:
		return -1
	default:
		return 0
	}
}

// Notional returns the absolute traded value.
func (f Fill) Notional() float64 {
	return math.Abs(f.Size * f.Price)
}
