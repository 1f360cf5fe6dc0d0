package device

import "errors"

// Device package errors.
var (
	// ErrInvalidRole is returned when the configured role is unknown.
	ErrInvalidRole = errors.New("device: invalid role")

	// ErrPortRequired is returned when a required port is nil.
	ErrPortRequired = errors.New("device: host and board ports are required")

	// ErrStoreRequired is returned when a fob is configured without
	// persistent storage.
	ErrStoreRequired = errors.New("device: fob requires a state store")

	// ErrROMRequired is returned when a car is configured without its
	// EEPROM image.
	ErrROMRequired = errors.New("device: car requires a ROM image")

	// ErrUnexpectedCommand is returned when a command arrives that the
	// current role and link do not accept.
	ErrUnexpectedCommand = errors.New("device: unexpected command")

	// ErrRoleMismatch is returned when a command reaches a device in
	// the wrong pairing state, e.g. GET_SECRET on an unpaired fob.
	ErrRoleMismatch = errors.New("device: command not valid for pairing state")

	// ErrWrongSize is returned when a command payload has the wrong
	// length.
	ErrWrongSize = errors.New("device: wrong payload size for command")

	// ErrPINMismatch is returned when a presented PIN does not match
	// the stored encrypted PIN.
	ErrPINMismatch = errors.New("device: PIN mismatch")

	// ErrCarIDMismatch is returned when a feature blob or unlock token
	// names a different car.
	ErrCarIDMismatch = errors.New("device: car ID mismatch")

	// ErrBadFeatureNumber is returned for a feature number outside 0-2.
	ErrBadFeatureNumber = errors.New("device: feature number out of range")

	// ErrStateCorrupt is returned when the persisted fob state image
	// cannot be decoded.
	ErrStateCorrupt = errors.New("device: persisted state corrupt")

	// ErrCommitFailed is returned when the state store cannot be
	// written. Surfaced distinctly so callers can tell a flash failure
	// from a protocol rejection.
	ErrCommitFailed = errors.New("device: state commit failed")

	// ErrBadROMImage is returned for a ROM image of the wrong size.
	ErrBadROMImage = errors.New("device: bad ROM image size")

	// ErrBadFeatureIndex is returned for a feature banner index
	// outside 0-2.
	ErrBadFeatureIndex = errors.New("device: feature banner index out of range")
)
