// Package capability decides whether a client platform can receive push
// notifications and negotiates notification permission with the user.
package capability

import (
	"context"

	"pushboard-backend/internal/push/domain"

	"github.com/samber/oops"
)

// Platform is the client runtime the negotiator talks to: a browser
// bridge, or a headless stand-in.
type Platform interface {
	// SupportsPush reports whether service workers, the Push API and
	// notifications are all available.
	SupportsPush() bool
	// Permission returns Notification.permission as it is right now.
	Permission() domain.PermissionState
	// PromptPermission shows the platform prompt and blocks until the
	// user answers or ctx ends.
	PromptPermission(ctx context.Context) (domain.PermissionState, error)
}

// Negotiator gates every privileged push operation.
type Negotiator interface {
	SupportsPush() bool
	CurrentPermission(ctx context.Context) domain.PermissionState
	RequestPermission(ctx context.Context) (domain.PermissionState, error)
}

type negotiator struct {
	platform Platform
}

// NewNegotiator creates a Negotiator over platform.
func NewNegotiator(platform Platform) Negotiator {
	return &negotiator{platform: platform}
}

func (n *negotiator) SupportsPush() bool {
	return n.platform != nil && n.platform.SupportsPush()
}

// CurrentPermission is read from the platform on every call.
func (n *negotiator) CurrentPermission(_ context.Context) domain.PermissionState {
	if !n.SupportsPush() {
		return domain.PermissionDenied
	}
	return n.platform.Permission()
}

// RequestPermission prompts at most once. A platform that already holds
// an explicit denial is not prompted again.
func (n *negotiator) RequestPermission(ctx context.Context) (domain.PermissionState, error) {
	if !n.SupportsPush() {
		return domain.PermissionDenied, oops.Code(domain.CodeUnsupported).Errorf("push notifications are not supported on this platform")
	}

	switch current := n.platform.Permission(); current {
	case domain.PermissionGranted, domain.PermissionDenied:
		return current, nil
	}

	state, err := n.platform.PromptPermission(ctx)
	if err != nil {
		return domain.PermissionDefault, oops.Code(domain.CodePermission).Wrapf(err, "error while requesting notification permission")
	}
	return state, nil
}
