// Package realtime carries board events between publishers and connected
// subscribers, in-process or across instances through Google Cloud Pub/Sub.
package realtime

import "context"

// Event is one message published on a channel. SocketID names the
// publishing connection so it can be left out of the fan-out.
type Event struct {
	Channel  string `json:"channel"`
	Name     string `json:"event"`
	Data     []byte `json:"data"`
	SocketID string `json:"socketId,omitempty"`
}

// Bus is an opaque publish/subscribe primitive.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(channel string) *Subscription
	Close() error
}

// Subscription receives the events of one channel until closed.
type Subscription struct {
	C <-chan Event

	ch      chan Event
	channel string
	owner   *Broadcaster
}

// Close stops delivery and closes C.
func (s *Subscription) Close() {
	s.owner.unsubscribe(s)
}
