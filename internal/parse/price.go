package parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Limits mirror the upstream column: DecimalField(max_digits=12, decimal_places=2).
const (
	priceMaxDigits     = 12
	priceDecimalPlaces = 2
)

var (
	ErrNegativePrice  = errors.New("price cannot be negative")
	ErrPricePrecision = errors.New("price has more than 2 decimal places")
	ErrPriceTooLarge  = errors.New("price exceeds 10 integer digits")
)

// Price parses a purchase price and normalises it to two decimal places ("1200" -> "1200.00").
func Price(raw string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("invalid price %q: %w", raw, err)
	}
	if d.IsNegative() {
		return "", ErrNegativePrice
	}
	if !d.Equal(d.Truncate(priceDecimalPlaces)) {
		return "", ErrPricePrecision
	}
	limit := decimal.New(1, priceMaxDigits-priceDecimalPlaces)
	if d.GreaterThanOrEqual(limit) {
		return "", ErrPriceTooLarge
	}
	return d.StringFixed(priceDecimalPlaces), nil
}
