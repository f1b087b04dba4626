package meal

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/coachapi/internal/apperr"
	"github.com/fitcoach/coachapi/internal/store"
	"github.com/fitcoach/coachapi/pkg/auth"
	"github.com/fitcoach/coachapi/pkg/logger"
)

type fakeImages struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (f *fakeImages) Remove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, name)
	return f.err
}

func setupTestService(t *testing.T) (*Service, *fakeImages) {
	t.Helper()

	db, err := store.Open(t.Context(), ":memory:", logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	images := &fakeImages{}
	return NewService(store.New(db), images, nil, logger.Discard()), images
}

var coach = auth.CoachIdentity()

func TestService_Create(t *testing.T) {
	t.Parallel()

	t.Run("カテゴリ省略時はbreakfastになること", func(t *testing.T) {
		t.Parallel()
		svc, _ := setupTestService(t)

		m, err := svc.Create(t.Context(), coach, CreateRequest{Title: " Oats ", Description: "with milk"})
		require.NoError(t, err)
		assert.Equal(t, "Oats", m.Title)
		assert.Equal(t, CategoryBreakfast, m.Category)
		assert.Equal(t, "with milk", m.Description.String)
		assert.False(t, m.Link.Valid)
	})

	t.Run("入力の検証", func(t *testing.T) {
		t.Parallel()
		svc, _ := setupTestService(t)

		_, err := svc.Create(t.Context(), auth.UserIdentity(1), CreateRequest{Title: "x"})
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
		_, err = svc.Create(t.Context(), coach, CreateRequest{Title: ""})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		_, err = svc.Create(t.Context(), coach, CreateRequest{Title: "x", Category: "brunch"})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})
}

func TestService_ListAndSearch(t *testing.T) {
	t.Parallel()
	svc, _ := setupTestService(t)
	ctx := t.Context()

	for _, req := range []CreateRequest{
		{Title: "فول مدمس", Description: "فول بالزيت", Category: CategoryBreakfast},
		{Title: "Chicken rice", Description: "100% natural", Category: CategoryLunch},
		{Title: "Salad", Description: "no chicken", Category: CategoryDinner},
	} {
		_, err := svc.Create(ctx, coach, req)
		require.NoError(t, err)
	}

	t.Run("カテゴリで絞り込めること", func(t *testing.T) {
		all, err := svc.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
		assert.Equal(t, "Salad", all[0].Title, "新しい順")

		lunch, err := svc.List(ctx, CategoryLunch)
		require.NoError(t, err)
		assert.Len(t, lunch, 1)

		_, err = svc.List(ctx, "brunch")
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("タイトルと説明を大文字小文字を区別せず検索できること", func(t *testing.T) {
		found, err := svc.Search(ctx, "CHICKEN", "")
		require.NoError(t, err)
		assert.Len(t, found, 2)

		found, err = svc.Search(ctx, "chicken", CategoryDinner)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Salad", found[0].Title)

		found, err = svc.Search(ctx, "فول", "")
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("ワイルドカード文字はそのまま検索されること", func(t *testing.T) {
		found, err := svc.Search(ctx, "100%", "")
		require.NoError(t, err)
		assert.Len(t, found, 1)

		found, err = svc.Search(ctx, "%", "")
		require.NoError(t, err)
		assert.Len(t, found, 1)

		found, err = svc.Search(ctx, "_", "")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("空の検索語は検証エラーになること", func(t *testing.T) {
		_, err := svc.Search(ctx, "  ", "")
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	t.Run("画像ファイルも削除されること", func(t *testing.T) {
		t.Parallel()
		svc, images := setupTestService(t)
		ctx := t.Context()

		m, err := svc.Create(ctx, coach, CreateRequest{Title: "x", ImagePath: "abc.png"})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, coach, m.ID))
		assert.Equal(t, []string{"abc.png"}, images.removed)

		_, err = svc.Get(ctx, m.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("画像削除の失敗は削除処理を失敗させないこと", func(t *testing.T) {
		t.Parallel()
		svc, images := setupTestService(t)
		images.err = errors.New("disk error")
		ctx := t.Context()

		m, err := svc.Create(ctx, coach, CreateRequest{Title: "x", ImagePath: "abc.png"})
		require.NoError(t, err)
		assert.NoError(t, svc.Delete(ctx, coach, m.ID))
	})

	t.Run("存在しない食事プランはNotFoundになること", func(t *testing.T) {
		t.Parallel()
		svc, images := setupTestService(t)

		err := svc.Delete(t.Context(), coach, 99)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		assert.Empty(t, images.removed)
	})
}
