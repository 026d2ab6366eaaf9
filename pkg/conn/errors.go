package conn

import "errors"

// ErrWrongState is returned when an operation is invalid for the
// connection's current State.
var ErrWrongState = errors.New("conn: operation invalid in current state")

// ErrProtocol wraps a malformed-input failure observed from the peer; it
// never propagates past the connection that detected it.
type ErrProtocol struct {
	Detail string
}

func (e *ErrProtocol) Error() string { return "conn: protocol error: " + e.Detail }
