package enums

// CartStatus tracks whether a cart can still be edited.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
	CartStatusAbandoned CartStatus = "abandoned"
)

var validCartStatuses = []CartStatus{CartStatusActive, CartStatusConverted, CartStatusAbandoned}

func (c CartStatus) String() string {
	return string(c)
}

func (c CartStatus) IsValid() bool {
	return contains(validCartStatuses, c)
}

func ParseCartStatus(value string) (CartStatus, error) {
	return parse("cart status", value, validCartStatuses)
}
