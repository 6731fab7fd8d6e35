// Package pushtest provides an in-memory client platform for tests of the
// push packages.
package pushtest

import (
	"context"
	"errors"
	"sync"

	"pushboard-backend/internal/push/domain"
)

// Platform is a scriptable browser stand-in. The zero value supports push
// and has permission "default".
type Platform struct {
	mu sync.Mutex

	Unsupported bool
	State       domain.PermissionState
	// PromptAnswer is what the user "clicks" when prompted.
	PromptAnswer domain.PermissionState
	PromptErr    error
	// PromptGate, when set, blocks PromptPermission until it is closed.
	PromptGate chan struct{}

	Existing       *domain.PushSubscription
	SubscribeErr   error
	UnsubscribeErr error
	// SubscribeGate, when set, blocks Subscribe until it is closed.
	SubscribeGate chan struct{}
	// Issued is what Subscribe registers when there is no Existing one.
	Issued *domain.PushSubscription

	Prompts      int
	Subscribes   int
	Unsubscribes int
	LastKey      []byte
}

func (p *Platform) SupportsPush() bool { return !p.Unsupported }

func (p *Platform) Permission() domain.PermissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State == "" {
		return domain.PermissionDefault
	}
	return p.State
}

func (p *Platform) PromptPermission(ctx context.Context) (domain.PermissionState, error) {
	p.mu.Lock()
	p.Prompts++
	gate := p.PromptGate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.PermissionDefault, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PromptErr != nil {
		return domain.PermissionDefault, p.PromptErr
	}
	answer := p.PromptAnswer
	if answer == "" {
		answer = domain.PermissionDefault
	}
	p.State = answer
	return answer, nil
}

func (p *Platform) GetSubscription(_ context.Context) (*domain.PushSubscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Existing, nil
}

func (p *Platform) Subscribe(ctx context.Context, applicationServerKey []byte) (*domain.PushSubscription, error) {
	p.mu.Lock()
	p.Subscribes++
	p.LastKey = append([]byte(nil), applicationServerKey...)
	gate := p.SubscribeGate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SubscribeErr != nil {
		return nil, p.SubscribeErr
	}
	// Like pushManager.subscribe, the current subscription is handed back.
	if p.Existing != nil {
		return p.Existing, nil
	}
	sub := p.Issued
	if sub == nil {
		sub = &domain.PushSubscription{
			Endpoint: "https://push.example.net/send/issued",
			Keys:     domain.Keys{P256dh: "BP256dh", Auth: "auth"},
		}
	}
	p.Existing = sub
	return sub, nil
}

func (p *Platform) Unsubscribe(_ context.Context, _ *domain.PushSubscription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Unsubscribes++
	if p.UnsubscribeErr != nil {
		return p.UnsubscribeErr
	}
	p.Existing = nil
	return nil
}

// ErrRegistration is a stand-in for a push service registration failure.
var ErrRegistration = errors.New("push service unavailable")
