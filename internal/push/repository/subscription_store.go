package repository

import (
	"sync"

	"pushboard-backend/internal/push/domain"
)

// SubscriptionStore holds the zero-or-one active subscription of a client
// session. Writes come from the session's subscription manager only.
type SubscriptionStore interface {
	Get() (*domain.PushSubscription, bool)
	Set(sub *domain.PushSubscription)
	Clear()
}

// sessionStore implements SubscriptionStore in memory for one session
type sessionStore struct {
	mu  sync.RWMutex
	sub *domain.PushSubscription
}

// NewSessionStore creates an empty store scoped to one client session
func NewSessionStore() SubscriptionStore {
	return &sessionStore{}
}

func (s *sessionStore) Get() (*domain.PushSubscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sub, s.sub != nil
}

func (s *sessionStore) Set(sub *domain.PushSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sub = sub
}

func (s *sessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sub = nil
}
