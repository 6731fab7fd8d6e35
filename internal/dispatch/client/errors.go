package client

import (
	"errors"
	"fmt"
)

// Kind classifies why a dispatch never got an answer from the server.
type Kind string

const (
	KindTimeout           Kind = "timeout"
	KindAborted           Kind = "aborted"
	KindClientUnsupported Kind = "client_unsupported"
	KindTransport         Kind = "transport"
)

// Error is a client-side dispatch failure. Server and push service
// answers are reported as *domain.PushServiceError instead.
type Error struct {
	Kind   Kind
	Name   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "timeout: it took too long to get the result"
	case KindAborted:
		return "dispatch aborted"
	case KindClientUnsupported:
		return fmt.Sprintf("dispatch not possible from this client: %s", e.Detail)
	default:
		return fmt.Sprintf("error: %s: %s", e.Name, e.Detail)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind returns true if err (or any wrapped error) is an Error of kind.
func IsKind(err error, kind Kind) bool {
	var dispatchErr *Error
	if errors.As(err, &dispatchErr) {
		return dispatchErr.Kind == kind
	}
	return false
}
