package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/outbox"
	"github.com/peakrent/peakrent-backend/pkg/outbox/payloads"
)

// Transition moves an order to a new status.
type Transition struct {
	Order      *models.Order
	To         enums.OrderStatus
	Reason     string
	Actor      *outbox.ActorRef
	OccurredAt time.Time
}

// EventForStatus names the outbox event emitted when an order enters status.
func EventForStatus(status enums.OrderStatus) enums.OutboxEventType {
	switch status {
	case enums.OrderStatusCompleted:
		return enums.EventOrderPaid
	case enums.OrderStatusFailed:
		return enums.EventOrderPaymentFailed
	case enums.OrderStatusCancelled:
		return enums.EventOrderCancelled
	}
	return enums.EventOrderStatusChanged
}

// ApplyTransition writes the order status, re-projects its items and queues
// the matching outbox event, all with tx. It reports whether the status changed.
// A transition to the current status is a no-op.
func ApplyTransition(ctx context.Context, tx *gorm.DB, emitter outbox.Emitter, t Transition) (bool, error) {
	from := t.Order.Status
	if from == t.To {
		return false, nil
	}
	itemStatus := ItemStatusForOrderStatus(t.To)

	repo := NewRepository(tx)
	if err := repo.UpdateStatus(ctx, t.Order.ID, t.To); err != nil {
		return false, err
	}
	if err := repo.ProjectItems(ctx, t.Order.ID, itemStatus); err != nil {
		return false, err
	}
	t.Order.Status = t.To

	event := outbox.DomainEvent{
		EventType:     EventForStatus(t.To),
		AggregateType: enums.AggregateOrder,
		AggregateID:   t.Order.ID,
		Actor:         t.Actor,
		OccurredAt:    t.OccurredAt,
		Data: payloads.OrderEvent{
			OrderID:        t.Order.ID,
			Reference:      t.Order.Reference,
			UserID:         t.Order.UserID,
			Status:         t.To,
			PreviousStatus: from,
			ChargedAmount:  t.Order.ChargedAmount,
			Currency:       t.Order.Currency,
			Reason:         t.Reason,
		},
	}
	if err := emitter.Emit(ctx, tx, event); err != nil {
		return false, err
	}
	return true, nil
}
