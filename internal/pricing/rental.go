package pricing

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// RentalDays counts started 24h periods between start and end, minimum one.
func RentalDays(start, end time.Time) (int64, error) {
	if !start.Before(end) {
		return 0, fmt.Errorf("rental window start %s must be before end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	span := end.Sub(start)
	days := int64(span / day)
	if span%day != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days, nil
}

// Line is one priced rental line.
type Line struct {
	PricePerDay int64
	Quantity    int64
	StartsAt    time.Time
	EndsAt      time.Time
}

// LineTotal returns price * quantity * days for the line's window.
func LineTotal(l Line) (total int64, days int64, err error) {
	days, err = RentalDays(l.StartsAt, l.EndsAt)
	if err != nil {
		return 0, 0, err
	}
	if l.Quantity <= 0 {
		return 0, 0, fmt.Errorf("quantity must be positive, got %d", l.Quantity)
	}
	return l.PricePerDay * l.Quantity * days, days, nil
}

// Subtotal sums the line totals.
func Subtotal(lines []Line) (int64, error) {
	var sum int64
	for i, l := range lines {
		total, _, err := LineTotal(l)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", i, err)
		}
		sum += total
	}
	return sum, nil
}
