package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/coachapi/pkg/event"
	"github.com/fitcoach/coachapi/pkg/logger"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, *event.Event) error {
	f.calls++
	return errors.New("broker down")
}

func TestEmit(t *testing.T) {
	t.Parallel()

	t.Run("生成したイベントが発行されること", func(t *testing.T) {
		t.Parallel()

		pub := &MemoryPublisher{}
		Emit(t.Context(), pub, logger.Discard(), event.MealRef(12), event.TypeMealCreated,
			event.MealCreatedData{Title: "Oats", Category: "breakfast"})

		events := pub.Events()
		require.Len(t, events, 1)
		assert.Equal(t, event.TypeMealCreated, events[0].EventType)
		assert.Equal(t, "12", events[0].AggregateID)

		data, err := event.Decode[event.MealCreatedData](events[0])
		require.NoError(t, err)
		assert.Equal(t, "Oats", data.Title)
	})

	t.Run("発行の失敗は呼び出し元に伝播しないこと", func(t *testing.T) {
		t.Parallel()

		pub := &failingPublisher{}
		assert.NotPanics(t, func() {
			Emit(t.Context(), pub, logger.Discard(), event.UserRef(1), event.TypeUserDeleted, event.UserDeletedData{})
		})
		assert.Equal(t, 1, pub.calls)
	})

	t.Run("シリアライズできないデータは発行されないこと", func(t *testing.T) {
		t.Parallel()

		pub := &MemoryPublisher{}
		Emit(t.Context(), pub, logger.Discard(), event.UserRef(1), event.TypeUserDeleted, make(chan int))
		assert.Empty(t, pub.Events())
	})

	t.Run("Publisherがnilでもパニックしないこと", func(t *testing.T) {
		t.Parallel()

		assert.NotPanics(t, func() {
			Emit(t.Context(), nil, logger.Discard(), event.UserRef(1), event.TypeUserDeleted, nil)
		})
	})
}

func TestNATSPublisher_Closed(t *testing.T) {
	t.Parallel()

	p := &NATSPublisher{}
	ev, err := event.New(t.Context(), event.UserRef(1), event.TypeUserDeleted, nil)
	require.NoError(t, err)

	assert.Error(t, p.Publish(t.Context(), ev))
	assert.Error(t, p.HealthCheck(t.Context()))
	assert.NotPanics(t, p.Close)
}

func TestConnectNATS_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := ConnectNATS("nats://127.0.0.1:1", "coachapi", logger.Discard())
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NopPublisher{}.Publish(t.Context(), &event.Event{}))
}
