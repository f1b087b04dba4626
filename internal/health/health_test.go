package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/coachapi/internal/store"
	"github.com/fitcoach/coachapi/pkg/logger"
)

func TestChecker_Check(t *testing.T) {
	t.Parallel()

	t.Run("全て正常ならHealthyになること", func(t *testing.T) {
		t.Parallel()

		db, err := store.Open(t.Context(), ":memory:", logger.Discard())
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		c := NewChecker(time.Second, logger.Discard())
		c.Add("database", DB(db))
		c.Add("nats", CheckFunc(func(context.Context) error { return nil }))

		got := c.Check(t.Context())
		assert.True(t, got.Healthy)
		assert.Equal(t, map[string]string{"database": StatusOK, "nats": StatusOK}, got.Components)
		assert.Equal(t, []string{"database", "nats"}, c.Names())
	})

	t.Run("失敗したコンポーネントのエラーが報告されること", func(t *testing.T) {
		t.Parallel()

		c := NewChecker(time.Second, logger.Discard())
		c.Add("redis", CheckFunc(func(context.Context) error { return errors.New("connection refused") }))
		c.Add("database", DB(nil))

		got := c.Check(t.Context())
		assert.False(t, got.Healthy)
		assert.Equal(t, "connection refused", got.Components["redis"])
		assert.NotEqual(t, StatusOK, got.Components["database"])
	})

	t.Run("タイムアウトが各確認に適用されること", func(t *testing.T) {
		t.Parallel()

		c := NewChecker(20*time.Millisecond, logger.Discard())
		c.Add("slow", CheckFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))

		got := c.Check(t.Context())
		assert.False(t, got.Healthy)
		assert.Equal(t, context.DeadlineExceeded.Error(), got.Components["slow"])
	})

	t.Run("空の名前やnilは登録されないこと", func(t *testing.T) {
		t.Parallel()

		c := NewChecker(0, logger.Discard())
		c.Add("", CheckFunc(func(context.Context) error { return nil }))
		c.Add("x", nil)

		got := c.Check(t.Context())
		assert.True(t, got.Healthy)
		assert.Empty(t, got.Components)
	})
}
