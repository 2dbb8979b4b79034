package assets

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToMinor converts a display amount ("1.5") into an integer minor unit string
// ("1500000" at exponent 6). Amounts with more decimals than the exponent
// are rejected.
func ToMinor(display string, exponent int32) (string, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", display, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("invalid amount %q: negative", display)
	}
	minor := d.Shift(exponent)
	if !minor.Equal(minor.Truncate(0)) {
		return "", fmt.Errorf("invalid amount %q: more than %d decimals", display, exponent)
	}
	return minor.String(), nil
}

// ToPositiveMinor is ToMinor for amounts that must move at least one minor
// unit.
func ToPositiveMinor(display string, exponent int32) (string, error) {
	minor, err := ToMinor(display, exponent)
	if err != nil {
		return "", err
	}
	if minor == "0" {
		return "", fmt.Errorf("amount %q must be a positive number", display)
	}
	return minor, nil
}

// ToDisplay converts an integer minor unit amount into its display form.
func ToDisplay(minor string, exponent int32) (string, error) {
	d, err := decimal.NewFromString(minor)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", minor, err)
	}
	return d.Shift(-exponent).String(), nil
}

// MinorOrZero is ToMinor for callers that already validated the input.
func MinorOrZero(display string, exponent int32) string {
	m, err := ToMinor(display, exponent)
	if err != nil {
		return "0"
	}
	return m
}

// IsPositive reports whether amount parses to a value above zero.
func IsPositive(amount string) bool {
	d, err := decimal.NewFromString(amount)
	return err == nil && d.IsPositive()
}
