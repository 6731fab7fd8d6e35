package domain

import "github.com/samber/oops"

// Error codes produced by the dispatch server.
const (
	CodeInvalidRequest = "invalid_request"
	CodeInternal       = "internal_error"
)

// HasCode reports whether err is an oops error carrying code.
func HasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}
