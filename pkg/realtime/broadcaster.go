package realtime

import (
	"context"
	"sync"
)

const subscriberBuffer = 32

// Broadcaster is the in-process Bus.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a subscriber on channel. Subscribing to a closed
// broadcaster returns an already closed subscription.
func (b *Broadcaster) Subscribe(channel string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, channel: channel, owner: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*Subscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	return sub
}

func (b *Broadcaster) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.channel]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			close(sub.ch)
		}
		if len(set) == 0 {
			delete(b.subs, sub.channel)
		}
	}
}

// Publish delivers event to every subscriber of its channel.
func (b *Broadcaster) Publish(_ context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[event.Channel] {
		select {
		case sub.ch <- event:
		default:
			// Lagging subscriber; drop rather than block the publisher.
		}
	}
	return nil
}

// Subscribers returns how many subscribers channel has.
func (b *Broadcaster) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}

// Close ends every subscription.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for channel, set := range b.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(b.subs, channel)
	}
	return nil
}
