package usecase

import (
	"pushboard-backend/internal/push/domain"

	"github.com/samber/oops"
)

// State is a subscription lifecycle state of one client session.
type State string

const (
	StateUnsupported   State = "unsupported"
	StateUnregistered  State = "unregistered"
	StateSubscribing   State = "subscribing"
	StateSubscribed    State = "subscribed"
	StateUnsubscribing State = "unsubscribing"
	StateDenied        State = "denied"
)

// EventKind names what happened to the session.
type EventKind string

const (
	EventUnsupported          EventKind = "unsupported"
	EventCheckedValid         EventKind = "checked_valid"
	EventCheckedAbsent        EventKind = "checked_absent"
	EventSubscribeRequested   EventKind = "subscribe_requested"
	EventPermissionDenied     EventKind = "permission_denied"
	EventPermissionFailed     EventKind = "permission_failed"
	EventRegistered           EventKind = "registered"
	EventRegistrationFailed   EventKind = "registration_failed"
	EventUnsubscribeRequested EventKind = "unsubscribe_requested"
	EventUnsubscribed         EventKind = "unsubscribed"
	EventUnsubscribeFailed    EventKind = "unsubscribe_failed"
	EventGone                 EventKind = "gone"
)

// Event is an input to Transition. Subscription is set for
// EventCheckedValid and EventRegistered.
type Event struct {
	Kind         EventKind
	Subscription *domain.PushSubscription
}

// EffectKind is a store mutation requested by a transition.
type EffectKind int

const (
	EffectStore EffectKind = iota + 1
	EffectClear
)

// Effect is applied to the session's SubscriptionStore by the manager.
type Effect struct {
	Kind         EffectKind
	Subscription *domain.PushSubscription
}

func store(sub *domain.PushSubscription) []Effect {
	return []Effect{{Kind: EffectStore, Subscription: sub}}
}

var clearStore = []Effect{{Kind: EffectClear}}

// Transition is the session state machine. It has no side effects: the
// returned effects describe what must happen to the store.
func Transition(from State, ev Event) (State, []Effect, error) {
	switch ev.Kind {
	case EventCheckedValid, EventRegistered:
		if ev.Subscription == nil {
			return from, nil, invalid(from, ev.Kind)
		}
	}

	switch from {
	case StateUnregistered:
		switch ev.Kind {
		case EventUnsupported:
			return StateUnsupported, clearStore, nil
		case EventCheckedValid:
			return StateSubscribed, store(ev.Subscription), nil
		case EventCheckedAbsent:
			return StateUnregistered, clearStore, nil
		case EventSubscribeRequested:
			return StateSubscribing, nil, nil
		}

	case StateDenied:
		switch ev.Kind {
		case EventCheckedValid:
			return StateSubscribed, store(ev.Subscription), nil
		case EventCheckedAbsent:
			return StateDenied, clearStore, nil
		case EventSubscribeRequested:
			return StateSubscribing, nil, nil
		}

	case StateSubscribing:
		switch ev.Kind {
		case EventPermissionDenied:
			return StateDenied, nil, nil
		case EventPermissionFailed, EventRegistrationFailed:
			return StateUnregistered, nil, nil
		case EventRegistered:
			return StateSubscribed, store(ev.Subscription), nil
		}

	case StateSubscribed:
		switch ev.Kind {
		case EventCheckedValid:
			return StateSubscribed, store(ev.Subscription), nil
		case EventCheckedAbsent, EventGone:
			return StateUnregistered, clearStore, nil
		case EventUnsubscribeRequested:
			return StateUnsubscribing, nil, nil
		}

	case StateUnsubscribing:
		switch ev.Kind {
		case EventUnsubscribed:
			return StateUnregistered, clearStore, nil
		case EventUnsubscribeFailed:
			return StateSubscribed, nil, nil
		}
	}

	return from, nil, invalid(from, ev.Kind)
}

func invalid(from State, kind EventKind) error {
	return oops.Code(domain.CodeInvalidTransition).
		With("state", from).
		With("event", kind).
		Errorf("event %s not allowed in state %s", kind, from)
}
