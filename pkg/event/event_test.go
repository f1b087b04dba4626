package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/coachapi/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("Refとデータからイベントが生成されること", func(t *testing.T) {
		t.Parallel()

		target := int64(3)
		before := time.Now().UTC()
		ev, err := New(t.Context(), NotificationRef(7), TypeNotificationCreated, NotificationCreatedData{
			TargetType:   "specific",
			TargetUserID: &target,
		})
		require.NoError(t, err)

		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, "7", ev.AggregateID)
		assert.Equal(t, AggregateTypeNotification, ev.AggregateType)
		assert.Equal(t, TypeNotificationCreated, ev.EventType)
		assert.Empty(t, ev.CorrelationID)
		assert.False(t, ev.OccurredAt.Before(before))
		assert.JSONEq(t, `{"target_type":"specific","target_user_id":3,"success":0,"failure":0,"total":0}`, string(ev.Data))
	})

	t.Run("コンテキストの相関IDが引き継がれること", func(t *testing.T) {
		t.Parallel()

		ctx := logger.WithCorrelationID(context.Background(), "req-42")
		ev, err := New(ctx, UserRef(1), TypeUserDeleted, UserDeletedData{})
		require.NoError(t, err)
		assert.Equal(t, "req-42", ev.CorrelationID)
	})

	t.Run("連続して生成したイベントのIDが異なること", func(t *testing.T) {
		t.Parallel()

		ev1, err := New(t.Context(), MealRef(1), TypeMealDeleted, MealDeletedData{Title: "a"})
		require.NoError(t, err)
		ev2, err := New(t.Context(), MealRef(1), TypeMealDeleted, MealDeletedData{Title: "a"})
		require.NoError(t, err)
		assert.NotEqual(t, ev1.ID, ev2.ID)
	})

	t.Run("シリアライズできないデータはエラーになること", func(t *testing.T) {
		t.Parallel()

		ev, err := New(t.Context(), UserRef(1), TypeUserDeleted, make(chan int))
		assert.Error(t, err)
		assert.Nil(t, ev)
	})
}

func TestEncodeParse(t *testing.T) {
	t.Parallel()

	ev, err := New(t.Context(), UserRef(5), TypeUserDeleted, UserDeletedData{RemovedNotifications: 4})
	require.NoError(t, err)

	b, err := ev.Encode()
	require.NoError(t, err)
	got, err := Parse(b)
	require.NoError(t, err)

	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, TypeUserDeleted, got.EventType)
	data, err := Decode[UserDeletedData](got)
	require.NoError(t, err)
	assert.EqualValues(t, 4, data.RemovedNotifications)

	_, err = Parse([]byte(`{invalid`))
	assert.Error(t, err)
	_, err = Parse([]byte(`{"id":"x"}`))
	assert.Error(t, err, "種別の無いイベントは拒否されるべき")

	_, err = Decode[MealCreatedData](&Event{EventType: TypeMealCreated, Data: []byte(`{invalid`)})
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ev     Event
		prefix string
		want   string
	}{
		{"通知作成", Event{AggregateType: AggregateTypeNotification, EventType: TypeNotificationCreated}, "coachapi", "coachapi.notification.created"},
		{"有料会員変更", Event{AggregateType: AggregateTypeUser, EventType: TypeUserPaidChanged}, "coachapi", "coachapi.user.paidchanged"},
		{"プレフィックス無し", Event{AggregateType: AggregateTypeMeal, EventType: TypeMealDeleted}, "", "meal.deleted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ev.Subject(tt.prefix))
		})
	}
}
