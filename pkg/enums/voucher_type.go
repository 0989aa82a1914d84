package enums

// VoucherType selects how a voucher amount is interpreted.
type VoucherType string

const (
	// VoucherTypePercentage amounts are whole percents in [1, 100].
	VoucherTypePercentage VoucherType = "percentage"
	// VoucherTypeFixed amounts are integer cents.
	VoucherTypeFixed VoucherType = "fixed"
)

var validVoucherTypes = []VoucherType{VoucherTypePercentage, VoucherTypeFixed}

func (v VoucherType) String() string {
	return string(v)
}

func (v VoucherType) IsValid() bool {
	return contains(validVoucherTypes, v)
}

func ParseVoucherType(value string) (VoucherType, error) {
	return parse("voucher type", value, validVoucherTypes)
}
