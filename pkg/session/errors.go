package session

import "errors"

// Session package errors.
var (
	// ErrNotEstablished is returned when Encrypt/Decrypt is called
	// before key agreement completed.
	ErrNotEstablished = errors.New("session: not established")

	// ErrNotHandshaking is returned when an initiator completion
	// arrives without a handshake in flight.
	ErrNotHandshaking = errors.New("session: no handshake in flight")

	// ErrAlreadyEstablished is returned when establishment is attempted
	// on a live session.
	ErrAlreadyEstablished = errors.New("session: already established")

	// ErrBadPublicKey is returned when the peer's public key is
	// malformed or off-curve.
	ErrBadPublicKey = errors.New("session: bad peer public key")

	// ErrBadIV is returned when the handshake IV has the wrong size.
	ErrBadIV = errors.New("session: bad IV size")
)
