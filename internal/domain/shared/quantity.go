package shared

import "github.com/shopspring/decimal"

// QuantityScale is the number of decimal places the quantity columns keep.
const QuantityScale = 4

// CheckQuantityScale rejects q when storing it would round away digits.
// Trailing zeros do not count, so "1.50000" passes.
func CheckQuantityScale(field string, q decimal.Decimal) error {
	if q.Equal(q.Truncate(QuantityScale)) {
		return nil
	}
	return NewDomainError(CodeInvalidInput, "Quantity has more than 4 decimal places").
		WithDetail("field", field).
		WithDetail("value", q)
}
