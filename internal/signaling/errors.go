package signaling

import "errors"

var (
	// ErrSendBufferFull means the connection's outbound queue is full and the
	// frame was dropped for that connection.
	ErrSendBufferFull = errors.New("signaling: send buffer full")

	// ErrClientClosed means the connection was already torn down.
	ErrClientClosed = errors.New("signaling: client closed")
)
