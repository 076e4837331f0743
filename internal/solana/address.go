// Package solana provides address validation helpers for Solana public keys.
package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrInvalidAddress is returned for strings that are not valid base58-encoded
// 32-byte Solana public keys.
var ErrInvalidAddress = errors.New("invalid solana address")

// ValidateAddress checks that addr is a base58-encoded 32-byte public key.
func ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("%w: decoded length %d, want 32", ErrInvalidAddress, len(raw))
	}
	return nil
}

// IsOnCurve reports whether the address lies on the ed25519 curve.
// Wallet keypairs are on-curve; program derived addresses are not, which is
// how the whale feed tells user wallets apart from protocol accounts.
func IsOnCurve(addr string) (bool, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != 32 {
		return false, fmt.Errorf("%w: decoded length %d, want 32", ErrInvalidAddress, len(raw))
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil, nil
}
