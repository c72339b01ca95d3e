package remote

import "errors"

var (
	// ErrNoHello is returned when a client's first message is not hello.
	ErrNoHello = errors.New("first message must be hello")

	// ErrDuplicateHello is returned for a second hello on one connection.
	ErrDuplicateHello = errors.New("duplicate hello")

	// ErrUnknownMessage is returned for message types the host does not handle.
	ErrUnknownMessage = errors.New("unknown message type")

	// ErrServerClosed is returned once the server has shut down.
	ErrServerClosed = errors.New("remote server closed")
)
