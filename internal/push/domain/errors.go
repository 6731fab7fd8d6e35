package domain

import (
	"pushboard-backend/pkg/vapid"

	"github.com/samber/oops"
)

// Error codes carried by oops errors across the push packages.
const (
	CodeConfiguration     = vapid.CodeConfiguration
	CodePermission        = "permission_error"
	CodeSubscription      = "subscription_error"
	CodeUnsupported       = "unsupported"
	CodeTransitionPending = "transition_pending"
	CodeInvalidTransition = "invalid_transition"
)

// HasCode reports whether err is an oops error carrying code.
func HasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}

func IsPermissionError(err error) bool   { return HasCode(err, CodePermission) }
func IsSubscriptionError(err error) bool { return HasCode(err, CodeSubscription) }
