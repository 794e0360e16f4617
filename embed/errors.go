package embed

import "errors"

var (
	// ErrChannelClosed indicates a send on a closed channel.
	ErrChannelClosed = errors.New("embed: channel closed")

	// ErrInvalidMessage indicates a message could not be encoded or decoded.
	ErrInvalidMessage = errors.New("embed: invalid message")

	// ErrOriginRejected indicates a connection from an origin that is not allowed.
	ErrOriginRejected = errors.New("embed: origin rejected")
)
