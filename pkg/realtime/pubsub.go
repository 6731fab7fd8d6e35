package realtime

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Message attributes carrying the event metadata.
const (
	attrEvent    = "event"
	attrSocketID = "socketId"
)

// NewPubSubClient connects to Pub/Sub for projectID, optionally with a
// service account credentials file.
func NewPubSubClient(ctx context.Context, projectID, credentialsFile string, opts ...option.ClientOption) (*pubsub.Client, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	return client, nil
}

// PubSubBus relays events between instances through one Pub/Sub topic per
// channel. Each instance pulls from its own subscription and fans events
// out to its local subscribers.
type PubSubBus struct {
	client   *pubsub.Client
	instance string
	local    *Broadcaster

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
	subs   []*pubsub.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPubSubBus creates a bus on client. instanceID must be unique per
// running process; it names this instance's subscriptions.
func NewPubSubBus(client *pubsub.Client, instanceID string) *PubSubBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &PubSubBus{
		client:   client,
		instance: instanceID,
		local:    NewBroadcaster(),
		topics:   make(map[string]*pubsub.Topic),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Listen makes sure channel's topic and this instance's subscription exist
// and starts pulling from it.
func (b *PubSubBus) Listen(ctx context.Context, channel string) error {
	topic, err := b.topic(ctx, channel)
	if err != nil {
		return err
	}

	subName := channel + "-" + b.instance
	sub := b.client.Subscription(subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check subscription %s: %w", subName, err)
	}
	if !exists {
		sub, err = b.client.CreateSubscription(ctx, subName, pubsub.SubscriptionConfig{
			Topic:            topic,
			AckDeadline:      10 * time.Second,
			ExpirationPolicy: 24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("failed to create subscription %s: %w", subName, err)
		}
		log.Printf("[PubSub] Created subscription: %s", subName)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		log.Printf("[PubSub] Listening for messages on subscription: %s", subName)
		err := sub.Receive(b.ctx, func(_ context.Context, msg *pubsub.Message) {
			b.local.Publish(b.ctx, Event{
				Channel:  channel,
				Name:     msg.Attributes[attrEvent],
				Data:     msg.Data,
				SocketID: msg.Attributes[attrSocketID],
			})
			msg.Ack()
		})
		if err != nil {
			log.Printf("[PubSub] Error receiving messages on %s: %v", subName, err)
		}
	}()
	return nil
}

// Publish sends event to its channel's topic and waits for the server
// to accept it.
func (b *PubSubBus) Publish(ctx context.Context, event Event) error {
	topic, err := b.topic(ctx, event.Channel)
	if err != nil {
		return err
	}
	attrs := map[string]string{attrEvent: event.Name}
	if event.SocketID != "" {
		attrs[attrSocketID] = event.SocketID
	}
	if _, err := topic.Publish(ctx, &pubsub.Message{Data: event.Data, Attributes: attrs}).Get(ctx); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", event.Channel, err)
	}
	return nil
}

// Subscribe registers a local subscriber. Listen must have been called for
// channel for remote events to arrive.
func (b *PubSubBus) Subscribe(channel string) *Subscription {
	return b.local.Subscribe(channel)
}

// Close stops receiving, removes this instance's subscriptions and closes
// the client.
func (b *PubSubBus) Close() error {
	b.cancel()
	b.wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, sub := range b.subs {
		if err := sub.Delete(ctx); err != nil {
			log.Printf("[PubSub] Failed to delete subscription %s: %v", sub.ID(), err)
		}
	}
	b.subs = nil
	for _, topic := range b.topics {
		topic.Stop()
	}
	b.local.Close()
	return b.client.Close()
}

func (b *PubSubBus) topic(ctx context.Context, channel string) (*pubsub.Topic, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic, ok := b.topics[channel]; ok {
		return topic, nil
	}

	topic := b.client.Topic(channel)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check topic %s: %w", channel, err)
	}
	if !exists {
		topic, err = b.client.CreateTopic(ctx, channel)
		if err != nil {
			return nil, fmt.Errorf("failed to create topic %s: %w", channel, err)
		}
		log.Printf("[PubSub] Created topic: %s", channel)
	}
	b.topics[channel] = topic
	return topic, nil
}
