package usecase

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	dispatchdomain "pushboard-backend/internal/dispatch/domain"
	"pushboard-backend/internal/push/capability"
	"pushboard-backend/internal/push/domain"
	"pushboard-backend/internal/push/repository"
	"pushboard-backend/pkg/vapid"

	"github.com/samber/oops"
)

// Registrar is the platform's push registration primitive
// (registration.pushManager in a browser).
type Registrar interface {
	GetSubscription(ctx context.Context) (*domain.PushSubscription, error)
	Subscribe(ctx context.Context, applicationServerKey []byte) (*domain.PushSubscription, error)
	Unsubscribe(ctx context.Context, sub *domain.PushSubscription) error
}

// Dispatcher sends a notification request to the dispatch server.
type Dispatcher interface {
	Send(ctx context.Context, sub *domain.PushSubscription, message string) (*dispatchdomain.Ack, error)
}

// TransitionRecord is emitted to listeners after every state change.
// Err carries the failure surfaced to the caller, if any.
type TransitionRecord struct {
	From  State
	To    State
	Event EventKind
	Err   error
	At    time.Time
}

// Listener observes a session's transitions. Listeners run synchronously
// on the goroutine that caused the transition.
type Listener func(TransitionRecord)

// SubscriptionManager drives one client session's push subscription.
type SubscriptionManager interface {
	// Check resolves the session against the platform: unsupported, an
	// existing valid subscription, or nothing usable.
	Check(ctx context.Context) (State, error)

	// Subscribe asks for permission if needed and registers with the
	// push service.
	Subscribe(ctx context.Context) (*domain.PushSubscription, error)

	// Unsubscribe removes the active subscription.
	Unsubscribe(ctx context.Context) error

	// Send dispatches message to the active subscription.
	Send(ctx context.Context, message string) (*dispatchdomain.Ack, error)

	State() State
	Subscription() (*domain.PushSubscription, bool)

	// OnTransition registers a listener and returns its removal func.
	OnTransition(l Listener) func()
}

// Option configures a SubscriptionManager.
type Option func(*subscriptionManager)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *subscriptionManager) {
		if now != nil {
			m.now = now
		}
	}
}

type subscriptionManager struct {
	negotiator capability.Negotiator
	registrar  Registrar
	store      repository.SubscriptionStore
	dispatcher Dispatcher
	serverKey  []byte
	now        func() time.Time

	mu    sync.Mutex
	state State
	busy  atomic.Bool

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// NewSubscriptionManager creates a manager in StateUnregistered. The
// identity's public key is the applicationServerKey for every subscribe,
// so subscriptions and dispatch authenticate with the same key.
func NewSubscriptionManager(
	negotiator capability.Negotiator,
	registrar Registrar,
	store repository.SubscriptionStore,
	dispatcher Dispatcher,
	identity vapid.Identity,
	opts ...Option,
) (SubscriptionManager, error) {
	if identity.PublicKey == "" {
		return nil, oops.Code(domain.CodeConfiguration).Errorf("environment variables supplied not sufficient: WEB_PUSH_PUBLIC_KEY is required")
	}
	key, err := identity.ApplicationServerKey()
	if err != nil {
		return nil, err
	}

	m := &subscriptionManager{
		negotiator: negotiator,
		registrar:  registrar,
		store:      store,
		dispatcher: dispatcher,
		serverKey:  key,
		now:        time.Now,
		state:      StateUnregistered,
		listeners:  make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *subscriptionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *subscriptionManager) Subscription() (*domain.PushSubscription, bool) {
	return m.store.Get()
}

func (m *subscriptionManager) OnTransition(l Listener) func() {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *subscriptionManager) Check(ctx context.Context) (State, error) {
	if err := m.begin(); err != nil {
		return m.State(), err
	}
	defer m.end()

	if m.State() == StateUnsupported {
		return StateUnsupported, nil
	}
	if !m.negotiator.SupportsPush() {
		_ = m.apply(Event{Kind: EventUnsupported}, nil)
		return m.State(), nil
	}

	sub, err := m.registrar.GetSubscription(ctx)
	if err != nil {
		return m.State(), oops.Code(domain.CodeSubscription).Wrapf(err, "failed to read existing push subscription")
	}

	switch {
	case sub.Valid(m.now()):
		log.Printf("[Push] Already subscribed")
		_ = m.apply(Event{Kind: EventCheckedValid, Subscription: sub}, nil)
	case sub != nil:
		log.Printf("[Push] Existing subscription expires within %s, treating as absent", domain.ExpiryMargin)
		m.applyIfAllowed(Event{Kind: EventCheckedAbsent}, nil)
	default:
		m.applyIfAllowed(Event{Kind: EventCheckedAbsent}, nil)
	}
	return m.State(), nil
}

func (m *subscriptionManager) Subscribe(ctx context.Context) (*domain.PushSubscription, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	switch m.State() {
	case StateUnsupported:
		return nil, oops.Code(domain.CodeUnsupported).Errorf("push notifications are not supported on this platform")
	case StateSubscribed:
		return nil, oops.Code(domain.CodeSubscription).Errorf("web push already subscribed")
	}
	if !m.negotiator.SupportsPush() {
		err := oops.Code(domain.CodeUnsupported).Errorf("push notifications are not supported on this platform")
		m.applyIfAllowed(Event{Kind: EventUnsupported}, err)
		return nil, err
	}
	if err := m.apply(Event{Kind: EventSubscribeRequested}, nil); err != nil {
		return nil, err
	}

	permission := m.negotiator.CurrentPermission(ctx)
	log.Printf("[Push] Current notification permission: %s", permission)
	if permission != domain.PermissionGranted {
		result, err := m.negotiator.RequestPermission(ctx)
		if err != nil {
			_ = m.apply(Event{Kind: EventPermissionFailed}, err)
			return nil, err
		}
		log.Printf("[Push] Permission result from request: %s", result)
		if result != domain.PermissionGranted {
			err := oops.Code(domain.CodePermission).
				With("permission", result).
				Errorf("notification permission not granted: %s", result)
			_ = m.apply(Event{Kind: EventPermissionDenied}, err)
			return nil, err
		}
	}

	sub, err := m.register(ctx)
	if err != nil {
		err = oops.Code(domain.CodeSubscription).Wrapf(err, "failed to subscribe for push notifications")
		_ = m.apply(Event{Kind: EventRegistrationFailed}, err)
		return nil, err
	}

	if err := m.apply(Event{Kind: EventRegistered, Subscription: sub}, nil); err != nil {
		return nil, err
	}
	log.Printf("[Push] Web push subscribed")
	return sub, nil
}

func (m *subscriptionManager) Unsubscribe(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	sub, ok := m.store.Get()
	if !ok || m.State() != StateSubscribed {
		return oops.Code(domain.CodeSubscription).Errorf("web push not subscribed")
	}
	if err := m.apply(Event{Kind: EventUnsubscribeRequested}, nil); err != nil {
		return err
	}

	if err := m.registrar.Unsubscribe(ctx, sub); err != nil {
		err = oops.Code(domain.CodeSubscription).Wrapf(err, "error during unsubscribe")
		_ = m.apply(Event{Kind: EventUnsubscribeFailed}, err)
		return err
	}

	log.Printf("[Push] Web push unsubscribed")
	return m.apply(Event{Kind: EventUnsubscribed}, nil)
}

func (m *subscriptionManager) Send(ctx context.Context, message string) (*dispatchdomain.Ack, error) {
	sub, ok := m.store.Get()
	if !ok {
		return nil, oops.Code(domain.CodeSubscription).Errorf("web push not subscribed")
	}
	if !sub.Valid(m.now()) {
		m.applyIfAllowed(Event{Kind: EventCheckedAbsent}, nil)
		return nil, oops.Code(domain.CodeSubscription).Errorf("web push subscription expired, subscribe again")
	}
	if m.dispatcher == nil {
		return nil, oops.Code(domain.CodeConfiguration).Errorf("no dispatch client configured")
	}

	ack, err := m.dispatcher.Send(ctx, sub, message)
	if err != nil {
		if dispatchdomain.IsGone(err) {
			log.Printf("[Push] Push service reports subscription gone, discarding it")
			m.discard(sub, err)
		}
		return nil, err
	}
	return ack, nil
}

// register subscribes on the platform. Platforms hand back their current
// subscription when the key matches, so one inside the expiry margin is
// dropped and registered once more.
func (m *subscriptionManager) register(ctx context.Context) (*domain.PushSubscription, error) {
	for attempt := 0; ; attempt++ {
		sub, err := m.registrar.Subscribe(ctx, m.serverKey)
		if err != nil {
			return nil, err
		}
		if !sub.Complete() {
			return nil, oops.Errorf("push service returned an incomplete subscription")
		}
		if sub.Valid(m.now()) {
			return sub, nil
		}
		if attempt > 0 {
			return nil, oops.
				With("expiration_time", *sub.ExpirationTime).
				Errorf("push service issued a subscription expiring within %s", domain.ExpiryMargin)
		}

		log.Printf("[Push] Issued subscription expires within %s, registering again", domain.ExpiryMargin)
		if err := m.registrar.Unsubscribe(ctx, sub); err != nil {
			return nil, oops.Wrapf(err, "failed to drop expiring subscription")
		}
	}
}

// discard drops sub after a 404/410, unless the session already moved on.
func (m *subscriptionManager) discard(sub *domain.PushSubscription, cause error) {
	current, ok := m.store.Get()
	if !ok || current.Endpoint != sub.Endpoint {
		return
	}
	m.applyIfAllowed(Event{Kind: EventGone}, cause)
}

// begin enforces one subscribe/unsubscribe/check in flight per session.
func (m *subscriptionManager) begin() error {
	if !m.busy.CompareAndSwap(false, true) {
		return oops.Code(domain.CodeTransitionPending).Errorf("another subscription change is still in progress")
	}
	return nil
}

func (m *subscriptionManager) end() {
	m.busy.Store(false)
}

// applyIfAllowed applies ev when the current state accepts it.
func (m *subscriptionManager) applyIfAllowed(ev Event, cause error) {
	if err := m.apply(ev, cause); err != nil && !domain.HasCode(err, domain.CodeInvalidTransition) {
		log.Printf("[Push] Transition %s failed: %v", ev.Kind, err)
	}
}

func (m *subscriptionManager) apply(ev Event, cause error) error {
	m.mu.Lock()
	from := m.state
	to, effects, err := Transition(from, ev)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.state = to
	for _, effect := range effects {
		switch effect.Kind {
		case EffectStore:
			m.store.Set(effect.Subscription)
		case EffectClear:
			m.store.Clear()
		}
	}
	m.mu.Unlock()

	m.emit(TransitionRecord{From: from, To: to, Event: ev.Kind, Err: cause, At: m.now()})
	return nil
}

func (m *subscriptionManager) emit(rec TransitionRecord) {
	m.listenersMu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.listenersMu.Unlock()

	for _, l := range listeners {
		l(rec)
	}
}
