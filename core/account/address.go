// core/account/address.go

// Account identity for the staking vault. Accounts are opaque 0x addresses;
// the vault never verifies signatures, it only validates and normalizes the
// format. Derive produces deterministic addresses from arbitrary seed bytes
// for operational tooling and tests.

package account

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	AddressPrefix     = "0x"
	AddressLength     = 42 // "0x" + 40 hex characters
	AddressByteLength = 20 // 20 bytes = 40 hex characters
)

// Derive generates an address from arbitrary seed bytes using Blake2b
func Derive(seed []byte) (string, error) {
	if len(seed) == 0 {
		return "", fmt.Errorf("seed cannot be empty")
	}

	hash := blake2b.Sum256(seed)

	// Take the last 20 bytes of the hash (Ethereum-style)
	addressBytes := hash[len(hash)-AddressByteLength:]

	return fmt.Sprintf("%s%x", AddressPrefix, addressBytes), nil
}

// Validate checks if an address has the correct 0x format
func Validate(address string) error {
	if len(address) != AddressLength {
		return fmt.Errorf("address must be exactly %d characters long, got %d", AddressLength, len(address))
	}

	if address[:2] != AddressPrefix {
		return fmt.Errorf("address must start with '%s', got '%s'", AddressPrefix, address[:2])
	}

	hexPart := address[2:]
	for i, char := range hexPart {
		if !isHexChar(char) {
			return fmt.Errorf("address contains invalid hex character '%c' at position %d", char, i+2)
		}
	}

	return nil
}

// isHexChar checks if a character is a valid hex digit
func isHexChar(char rune) bool {
	return (char >= '0' && char <= '9') ||
		(char >= 'a' && char <= 'f') ||
		(char >= 'A' && char <= 'F')
}

// Normalize converts an address to lowercase for internal storage consistency
func Normalize(address string) (string, error) {
	if err := Validate(address); err != nil {
		return "", err
	}
	return strings.ToLower(address), nil
}

// IsValid is a convenience function for address validation
func IsValid(address string) bool {
	return Validate(address) == nil
}

// IsZero reports whether the address is the all-zero address
func IsZero(address string) bool {
	if !IsValid(address) {
		return false
	}
	for _, char := range address[2:] {
		if char != '0' {
			return false
		}
	}
	return true
}
