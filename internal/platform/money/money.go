// Package money formats and splits minor-unit currency amounts.
package money

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is used when a listing does not name one.
const DefaultCurrency = "usd"

// MaxFeeBasisPoints is the upper bound of a platform fee (100%).
const MaxFeeBasisPoints = 10000

// NormalizeCurrency lowercases an ISO 4217 code and validates it.
func NormalizeCurrency(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultCurrency, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("parse currency %q: %w", code, err)
	}
	return strings.ToLower(unit.String()), nil
}

// Format renders cents in the given currency for the provided language,
// e.g. "USD 12.50".
func Format(tag language.Tag, cents int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}
	printer := message.NewPrinter(tag)
	return printer.Sprint(currency.ISO(unit.Amount(float64(cents) / 100)))
}

// SplitFee returns the platform fee and the seller payout for an amount.
// The fee rounds down so the seller never receives less than their share.
func SplitFee(amount int64, feeBasisPoints int) (fee int64, payout int64, err error) {
	if amount < 0 {
		return 0, 0, fmt.Errorf("amount must be non-negative")
	}
	if feeBasisPoints < 0 || feeBasisPoints > MaxFeeBasisPoints {
		return 0, 0, fmt.Errorf("fee basis points must be between 0 and %d", MaxFeeBasisPoints)
	}
	fee = amount * int64(feeBasisPoints) / MaxFeeBasisPoints
	return fee, amount - fee, nil
}
