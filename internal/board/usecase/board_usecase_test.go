package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"pushboard-backend/internal/board/domain"
	"pushboard-backend/pkg/metrics"
	"pushboard-backend/pkg/realtime"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBus struct {
	*realtime.Broadcaster
}

func (failingBus) Publish(context.Context, realtime.Event) error {
	return errors.New("bus unavailable")
}

func TestPublish_FansOutTrimmedMessage(t *testing.T) {
	bus := realtime.NewBroadcaster()
	m := metrics.New()
	uc := NewBoardUsecase(bus, "", "", m)
	sub := uc.Subscribe()
	defer sub.Close()

	require.NoError(t, uc.Publish(context.Background(), domain.PublishRequest{Message: "  hello  ", SocketID: "sock-1"}))

	select {
	case ev := <-sub.C:
		assert.Equal(t, domain.DefaultChannel, ev.Channel)
		assert.Equal(t, domain.DefaultEvent, ev.Name)
		assert.Equal(t, "sock-1", ev.SocketID)
		assert.JSONEq(t, `{"message":"hello"}`, string(ev.Data))
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	assert.InDelta(t, 1, testutil.ToFloat64(m.BoardMessages.WithLabelValues("published")), 0)
}

func TestPublish_RejectsBlankMessage(t *testing.T) {
	bus := realtime.NewBroadcaster()
	uc := NewBoardUsecase(bus, "chat-channel", "new-message", nil)
	sub := uc.Subscribe()
	defer sub.Close()

	err := uc.Publish(context.Background(), domain.PublishRequest{Message: " \t\n"})
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeInvalidMessage, oopsErr.Code())
	assert.Empty(t, sub.C)
}

func TestPublish_SurfacesBusFailure(t *testing.T) {
	uc := NewBoardUsecase(failingBus{realtime.NewBroadcaster()}, "", "", nil)

	err := uc.Publish(context.Background(), domain.PublishRequest{Message: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus unavailable")
}
