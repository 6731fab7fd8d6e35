package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Ack is a push service's acceptance of a dispatch, passed through as-is.
type Ack struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// PushServiceError is a push-protocol rejection (404/410/413/400/403...)
// passed through unchanged.
type PushServiceError struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *PushServiceError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("push service responded %d", e.StatusCode)
	}
	return fmt.Sprintf("push service responded %d: %s", e.StatusCode, string(e.Body))
}

// Gone reports whether the push service says the subscription no longer
// exists and must be discarded.
func (e *PushServiceError) Gone() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

// IsGone returns true if err (or any wrapped error) is a PushServiceError
// for a discarded subscription.
func IsGone(err error) bool {
	var pushErr *PushServiceError
	if errors.As(err, &pushErr) {
		return pushErr.Gone()
	}
	return false
}
