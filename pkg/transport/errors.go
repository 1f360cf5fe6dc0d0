package transport

import "errors"

// Transport errors.
var (
	// ErrPortClosed is returned for operations on a closed port.
	ErrPortClosed = errors.New("transport: port closed")

	// ErrNoDevice is returned when a serial device path cannot be opened.
	ErrNoDevice = errors.New("transport: cannot open serial device")
)
