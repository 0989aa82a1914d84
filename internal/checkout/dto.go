package checkout

import (
	"github.com/peakrent/peakrent-backend/internal/orders"
)

// Request carries the optional caller-supplied order reference.
type Request struct {
	Reference string `json:"reference,omitempty" validate:"omitempty,max=40"`
}

// Result is the created order plus what the client needs to confirm payment.
type Result struct {
	Order           orders.OrderDTO `json:"order"`
	RequiresPayment bool            `json:"requires_payment"`
	ClientSecret    string          `json:"client_secret,omitempty"`
}
