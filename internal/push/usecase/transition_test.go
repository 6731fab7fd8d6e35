package usecase

import (
	"testing"

	"pushboard-backend/internal/push/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_Table(t *testing.T) {
	sub := &domain.PushSubscription{Endpoint: "https://push.example.net/a"}

	tests := []struct {
		name   string
		from   State
		event  Event
		want   State
		effect EffectKind
	}{
		{"unsupported platform", StateUnregistered, Event{Kind: EventUnsupported}, StateUnsupported, EffectClear},
		{"startup finds valid", StateUnregistered, Event{Kind: EventCheckedValid, Subscription: sub}, StateSubscribed, EffectStore},
		{"startup finds nothing", StateUnregistered, Event{Kind: EventCheckedAbsent}, StateUnregistered, EffectClear},
		{"subscribe requested", StateUnregistered, Event{Kind: EventSubscribeRequested}, StateSubscribing, 0},
		{"permission denied", StateSubscribing, Event{Kind: EventPermissionDenied}, StateDenied, 0},
		{"permission prompt failed", StateSubscribing, Event{Kind: EventPermissionFailed}, StateUnregistered, 0},
		{"registered", StateSubscribing, Event{Kind: EventRegistered, Subscription: sub}, StateSubscribed, EffectStore},
		{"registration failed", StateSubscribing, Event{Kind: EventRegistrationFailed}, StateUnregistered, 0},
		{"unsubscribe requested", StateSubscribed, Event{Kind: EventUnsubscribeRequested}, StateUnsubscribing, 0},
		{"unsubscribed", StateUnsubscribing, Event{Kind: EventUnsubscribed}, StateUnregistered, EffectClear},
		{"unsubscribe failed", StateUnsubscribing, Event{Kind: EventUnsubscribeFailed}, StateSubscribed, 0},
		{"expired on check", StateSubscribed, Event{Kind: EventCheckedAbsent}, StateUnregistered, EffectClear},
		{"gone", StateSubscribed, Event{Kind: EventGone}, StateUnregistered, EffectClear},
		{"retry after denial", StateDenied, Event{Kind: EventSubscribeRequested}, StateSubscribing, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effects, err := Transition(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.effect == 0 {
				assert.Empty(t, effects)
				return
			}
			require.Len(t, effects, 1)
			assert.Equal(t, tt.effect, effects[0].Kind)
			if tt.effect == EffectStore {
				assert.Same(t, sub, effects[0].Subscription)
			}
		})
	}
}

func TestTransition_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		from  State
		event Event
	}{
		{"unsupported is terminal", StateUnsupported, Event{Kind: EventSubscribeRequested}},
		{"unsupported ignores checks", StateUnsupported, Event{Kind: EventCheckedAbsent}},
		{"no double subscribe", StateSubscribing, Event{Kind: EventSubscribeRequested}},
		{"no unsubscribe while unregistered", StateUnregistered, Event{Kind: EventUnsubscribeRequested}},
		{"registered needs a subscription", StateSubscribing, Event{Kind: EventRegistered}},
		{"gone only while subscribed", StateUnsubscribing, Event{Kind: EventGone}},
		{"subscribe while subscribed", StateSubscribed, Event{Kind: EventSubscribeRequested}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effects, err := Transition(tt.from, tt.event)
			require.Error(t, err)
			assert.True(t, domain.HasCode(err, domain.CodeInvalidTransition))
			assert.Equal(t, tt.from, got)
			assert.Empty(t, effects)
		})
	}
}
