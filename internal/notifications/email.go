package notifications

import (
	"fmt"
	"strings"

	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/mailer"
	"github.com/peakrent/peakrent-backend/pkg/money"
)

const rentalDateLayout = "Mon 02 Jan 2006"

type emailKind struct {
	template string
	subject  string
}

var emailsByEvent = map[enums.OutboxEventType]emailKind{
	enums.EventOrderCreated:       {mailer.TemplateOrderCreated, "Your PeakRent order %s"},
	enums.EventOrderPaid:          {mailer.TemplateOrderPaid, "Payment received for order %s"},
	enums.EventOrderPaymentFailed: {mailer.TemplateOrderPaymentFailed, "Payment failed for order %s"},
	enums.EventOrderCancelled:     {mailer.TemplateOrderCancelled, "Order %s cancelled"},
}

// buildMessage renders the email for an order event. It reports false for
// events that do not notify the customer.
func buildMessage(eventType enums.OutboxEventType, order *models.Order, reason string) (mailer.Message, bool) {
	kind, ok := emailsByEvent[eventType]
	if !ok || order.User == nil {
		return mailer.Message{}, false
	}
	return mailer.Message{
		To:       order.User.Email,
		Subject:  fmt.Sprintf(kind.subject, order.Reference),
		Template: kind.template,
		Data:     orderEmail(order, reason),
	}, true
}

func orderEmail(order *models.Order, reason string) mailer.OrderEmail {
	name := strings.TrimSpace(order.User.FirstName + " " + order.User.LastName)
	if name == "" {
		name = order.User.Email
	}
	data := mailer.OrderEmail{
		CustomerName: name,
		Reference:    order.Reference,
		Items:        make([]mailer.OrderEmailItem, 0, len(order.Items)),
		Subtotal:     money.Format(order.SubtotalAmount, order.Currency),
		Discount:     money.Format(order.DiscountAmount, order.Currency),
		Total:        money.Format(order.ChargedAmount, order.Currency),
		Reason:       reason,
	}
	for _, item := range order.Items {
		label := "Rental item"
		if item.Variant != nil {
			label = item.Variant.Name
			if item.Variant.Product != nil && item.Variant.Product.Name != "" && !strings.HasPrefix(item.Variant.Name, item.Variant.Product.Name) {
				label = item.Variant.Product.Name + " " + item.Variant.Name
			}
		}
		data.Items = append(data.Items, mailer.OrderEmailItem{
			Name:      label,
			Quantity:  item.Quantity,
			StartsOn:  item.StartsAt.UTC().Format(rentalDateLayout),
			EndsOn:    item.EndsAt.UTC().Format(rentalDateLayout),
			LineTotal: money.Format(item.LineTotal, order.Currency),
		})
	}
	return data
}
