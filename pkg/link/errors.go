package link

import "errors"

// Link package errors.
var (
	// ErrSessionRequired is returned when a command that needs
	// encryption is sent on a link without an established session.
	ErrSessionRequired = errors.New("link: session not established")

	// ErrWrongSize is returned when a handshake frame has the wrong
	// payload length for its command.
	ErrWrongSize = errors.New("link: wrong payload size for command")
)
