package protocol

import "errors"

var (
	ErrShortPayload   = errors.New("payload shorter than record size")
	ErrInvalidAddress = errors.New("invalid node address (want 5 characters or 0x + 10 hex digits)")
)
