package handler

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are the accepted request date formats, tried in order.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDate parses an ISO 8601 date or datetime string
func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected ISO 8601", value)
}

// parseAmount parses a decimal amount sent as a string. Amounts travel as
// strings on the wire so no precision is lost in float conversion.
func parseAmount(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal amount %q", value)
	}
	return d, nil
}
