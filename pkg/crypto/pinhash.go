package crypto

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// PIN handling constants.
const (
	// HashedPINSize is the BLAKE2b digest size for a hashed PIN.
	HashedPINSize = 28

	// EncryptedPINSize is the on-wire and host-side size of a PIN:
	// the 28-byte hash zero-extended to two AES blocks and encrypted
	// under the PIN-encryption key.
	EncryptedPINSize = 32
)

// HashPIN hashes the 6-digit ASCII PIN with BLAKE2b-224.
func HashPIN(pin string) ([HashedPINSize]byte, error) {
	var out [HashedPINSize]byte

	h, err := blake2b.New(HashedPINSize, nil)
	if err != nil {
		return out, fmt.Errorf("failed to create PIN hash: %w", err)
	}
	h.Write([]byte(pin))
	copy(out[:], h.Sum(nil))
	return out, nil
}

// EncryptPIN produces the 32-byte encrypted PIN transported on the wire:
// the hashed PIN zero-extended to 32 bytes, AES-CBC encrypted under the
// PIN-encryption key with a zero IV.
func EncryptPIN(hashed [HashedPINSize]byte, pinKey []byte) ([EncryptedPINSize]byte, error) {
	var out [EncryptedPINSize]byte
	copy(out[:], hashed[:])

	ctx, err := NewAESCBC(pinKey, make([]byte, AESBlockSize))
	if err != nil {
		return out, err
	}
	if err := ctx.Encrypt(out[:]); err != nil {
		return out, err
	}
	return out, nil
}
