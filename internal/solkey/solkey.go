// Package solkey validates Solana account addresses before the engine
// creates state keyed by them.
package solkey

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Address validation errors.
var (
	ErrBadEncoding = errors.New("address is not valid base58")
	ErrBadLength   = errors.New("address does not decode to 32 bytes")
)

// ValidateAddress checks that addr is a well-formed base58 32-byte key.
// Pool addresses and mints are PDAs, which are deliberately off-curve, so
// this is the right check for them as well as for wallet owners.
func ValidateAddress(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: got %d bytes", ErrBadLength, len(decoded))
	}
	return nil
}

// IsOnCurve reports whether addr decodes to a point on the ed25519 curve.
// Wallet owners are on-curve keypairs; program-derived addresses are not.
func IsOnCurve(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
