package message

import "errors"

// Framing errors. All of these are recovered locally by resetting the
// receive state machine; none produce a wire response.
var (
	// ErrFrameTooShort is returned by EncodeFrame for an empty payload.
	ErrFrameTooShort = errors.New("message: frame too short")

	// ErrFrameTooLong is returned for a length byte at or above MaxFrame.
	ErrFrameTooLong = errors.New("message: frame too long")

	// ErrCRCMismatch is returned when the recomputed CRC differs from
	// the CRC on the wire.
	ErrCRCMismatch = errors.New("message: CRC mismatch")

	// ErrNotBlockMultiple is returned when an encrypted frame's payload
	// is not a multiple of the AES block size.
	ErrNotBlockMultiple = errors.New("message: payload not a multiple of 16")

	// ErrPayloadTooLarge is returned when an encode would exceed the
	// frame size budget.
	ErrPayloadTooLarge = errors.New("message: payload too large for frame")
)

// Wire format constants.
const (
	// MaxFrame bounds the length byte; the receive buffer is sized to it.
	MaxFrame = 256

	// MinLength is the smallest valid length byte: one command byte
	// plus the CRC.
	MinLength = 3

	// CRCSize is the size of the trailing CRC-16, big-endian.
	CRCSize = 2

	// BlockSize is the AES block size every encrypted payload is padded to.
	BlockSize = 16

	// MaxPayload is the largest payload a frame can carry.
	MaxPayload = MaxFrame - 1 - CRCSize
)

// Fixed field sizes within payloads.
const (
	// PublicKeySize is the ECDH public key size on the wire.
	PublicKeySize = 48

	// IVSize is the session IV size carried in NEW_ECDH.
	IVSize = 16

	// EncryptedPINSize is the encrypted PIN field size.
	EncryptedPINSize = 32

	// CarSecretSize is the car unlock secret size.
	CarSecretSize = 16

	// FeatureBlobSize is the encrypted feature blob size.
	FeatureBlobSize = 48

	// CarIDSize is the car identifier size.
	CarIDSize = 16
)
