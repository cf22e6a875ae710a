package respond

import (
	"context"
	"errors"
	"fmt"
)

// TransportError marks a submission failure at the transport or protocol
// level: timeout, unreachable endpoint, malformed response. Only this class
// of failure lets the coordinator fall through to the next strategy; every
// other error is a validated rejection and propagates unchanged.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure in %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a transport-level failure of op.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// IsTransport reports whether err is eligible for strategy fallback. A
// deadline expiry counts as transport: the endpoint never delivered a
// verdict.
func IsTransport(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
