package client

import (
	"errors"
	"fmt"
)

var (
	ErrPartnerLeft   = errors.New("partner disconnected")
	ErrSessionEnded  = errors.New("session ended")
	ErrServerClosed  = errors.New("connection to server closed")
	ErrTimeout       = errors.New("timeout")
	ErrRoomRefused   = errors.New("room refused the join")
	ErrChannelClosed = errors.New("data channel closed")
	ErrBadSignal     = errors.New("malformed call signal")
)

// Error describes a failed client operation.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
