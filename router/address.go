package router

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// Prefix returns the human-readable part of a bech32 address.
func Prefix(address string) (string, error) {
	hrp, _, err := bech32.Decode(address)
	if err != nil {
		return "", fmt.Errorf("failed to decode address: %w", err)
	}
	return hrp, nil
}

// ValidateAddress checks that address is valid bech32 with the given prefix.
func ValidateAddress(address, prefix string) error {
	hrp, err := Prefix(address)
	if err != nil {
		return err
	}
	if hrp != prefix {
		return fmt.Errorf("address %s has prefix %q, want %q", address, hrp, prefix)
	}
	return nil
}

// ConvertBech32Address re-encodes an address under a new prefix.
func ConvertBech32Address(address string, targetPrefix string) (string, error) {
	_, data, err := bech32.Decode(address)
	if err != nil {
		return "", fmt.Errorf("failed to decode address: %w", err)
	}
	converted, err := bech32.Encode(targetPrefix, data)
	if err != nil {
		return "", fmt.Errorf("failed to encode address: %w", err)
	}
	return converted, nil
}
