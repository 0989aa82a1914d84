package payloads

import (
	"github.com/google/uuid"

	"github.com/peakrent/peakrent-backend/pkg/enums"
)

// OrderEvent is the payload shared by every order lifecycle event.
type OrderEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	Reference      string            `json:"reference"`
	UserID         uuid.UUID         `json:"user_id"`
	Status         enums.OrderStatus `json:"status"`
	PreviousStatus enums.OrderStatus `json:"previous_status,omitempty"`
	ChargedAmount  int64             `json:"charged_amount"`
	Currency       string            `json:"currency"`
	Reason         string            `json:"reason,omitempty"`
}
