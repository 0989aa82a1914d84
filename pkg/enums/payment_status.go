package enums

// PaymentStatus mirrors the payment-intent status reported by Stripe.
// Payments store the raw value, so unknown statuses are kept as-is.
type PaymentStatus string

const (
	PaymentStatusRequiresPaymentMethod PaymentStatus = "requires_payment_method"
	PaymentStatusRequiresConfirmation  PaymentStatus = "requires_confirmation"
	PaymentStatusRequiresAction        PaymentStatus = "requires_action"
	PaymentStatusProcessing            PaymentStatus = "processing"
	PaymentStatusRequiresCapture       PaymentStatus = "requires_capture"
	PaymentStatusCanceled              PaymentStatus = "canceled"
	PaymentStatusSucceeded             PaymentStatus = "succeeded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusRequiresPaymentMethod,
	PaymentStatusRequiresConfirmation,
	PaymentStatusRequiresAction,
	PaymentStatusProcessing,
	PaymentStatusRequiresCapture,
	PaymentStatusCanceled,
	PaymentStatusSucceeded,
}

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool {
	return contains(validPaymentStatuses, p)
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse("payment status", value, validPaymentStatuses)
}

// PaymentProvider names the gateway that owns a payment.
type PaymentProvider string

const PaymentProviderStripe PaymentProvider = "stripe"
