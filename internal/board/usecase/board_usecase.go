package usecase

import (
	"context"
	"encoding/json"
	"log"

	"pushboard-backend/internal/board/domain"
	"pushboard-backend/pkg/metrics"
	"pushboard-backend/pkg/realtime"

	"github.com/samber/oops"
)

// BoardUsecase defines the interface for message board operations
type BoardUsecase interface {
	Publish(ctx context.Context, req domain.PublishRequest) error
	Subscribe() *realtime.Subscription
	Channel() string
	Event() string
}

// boardUsecase implements BoardUsecase
type boardUsecase struct {
	bus     realtime.Bus
	channel string
	event   string
	metrics *metrics.Metrics
}

// NewBoardUsecase creates a new instance of boardUsecase
func NewBoardUsecase(bus realtime.Bus, channel, event string, m *metrics.Metrics) BoardUsecase {
	if channel == "" {
		channel = domain.DefaultChannel
	}
	if event == "" {
		event = domain.DefaultEvent
	}
	return &boardUsecase{
		bus:     bus,
		channel: channel,
		event:   event,
		metrics: m,
	}
}

func (u *boardUsecase) Channel() string { return u.channel }
func (u *boardUsecase) Event() string   { return u.event }

// Publish posts a message to every board subscriber except the sending
// connection.
func (u *boardUsecase) Publish(ctx context.Context, req domain.PublishRequest) error {
	message := req.Normalize()
	if message == "" {
		return oops.Code(domain.CodeInvalidMessage).Errorf("message is empty")
	}

	data, err := json.Marshal(domain.MessagePayload{Message: message})
	if err != nil {
		return oops.Wrapf(err, "encode board message")
	}

	err = u.bus.Publish(ctx, realtime.Event{
		Channel:  u.channel,
		Name:     u.event,
		Data:     data,
		SocketID: req.SocketID,
	})
	if err != nil {
		log.Printf("[Board] Failed to publish on %s: %v", u.channel, err)
		return oops.With("channel", u.channel).Wrapf(err, "publish board message")
	}
	u.metrics.BoardMessage("published")
	return nil
}

// Subscribe registers a subscriber on the board channel.
func (u *boardUsecase) Subscribe() *realtime.Subscription {
	return u.bus.Subscribe(u.channel)
}
