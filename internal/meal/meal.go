// Package meal はコーチが管理する食事プランを扱う。
package meal

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fitcoach/coachapi/internal/apperr"
	"github.com/fitcoach/coachapi/internal/eventbus"
	"github.com/fitcoach/coachapi/internal/store"
	"github.com/fitcoach/coachapi/pkg/auth"
	"github.com/fitcoach/coachapi/pkg/event"
)

// カテゴリ。
const (
	CategoryBreakfast = "breakfast"
	CategoryLunch     = "lunch"
	CategoryDinner    = "dinner"
	CategorySnacks    = "snacks"
)

// ValidCategory はcategoryが既知のカテゴリかを返す。
func ValidCategory(category string) bool {
	switch category {
	case CategoryBreakfast, CategoryLunch, CategoryDinner, CategorySnacks:
		return true
	}
	return false
}

// ImageRemover は食事プランの画像ファイルを削除する。*upload.Storageが満たす。
type ImageRemover interface {
	Remove(name string) error
}

// CreateRequest は食事プラン作成の入力。
type CreateRequest struct {
	Title       string
	Description string
	ImagePath   string
	Link        string
	// Category が空の場合はbreakfastとして扱う。
	Category string
}

// Service は食事プランの操作を提供する。
type Service struct {
	q         *store.Queries
	images    ImageRemover
	publisher eventbus.Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewService は新しいServiceを生成する。
func NewService(q *store.Queries, images ImageRemover, publisher eventbus.Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{q: q, images: images, publisher: publisher, log: log, now: time.Now}
}

// Create は食事プランを作成する。
func (s *Service) Create(ctx context.Context, id auth.Identity, req CreateRequest) (store.Meal, error) {
	if !id.IsCoach() {
		return store.Meal{}, apperr.Forbidden("coach authorization required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return store.Meal{}, apperr.Validation("title is required")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = CategoryBreakfast
	}
	if !ValidCategory(category) {
		return store.Meal{}, apperr.Validation("category must be one of: breakfast, lunch, dinner, snacks")
	}

	m, err := s.q.CreateMeal(ctx, store.CreateMealParams{
		Title:       title,
		Description: store.NullString(strings.TrimSpace(req.Description)),
		ImagePath:   store.NullString(req.ImagePath),
		Link:        store.NullString(strings.TrimSpace(req.Link)),
		Category:    category,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return store.Meal{}, apperr.Storage("failed to create meal", err)
	}

	eventbus.Emit(ctx, s.publisher, s.log, event.MealRef(m.ID), event.TypeMealCreated,
		event.MealCreatedData{Title: m.Title, Category: m.Category})
	return m, nil
}

// Get はIDで食事プランを取得する。
func (s *Service) Get(ctx context.Context, mealID int64) (store.Meal, error) {
	m, err := s.q.GetMealByID(ctx, mealID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Meal{}, apperr.NotFound("meal not found")
		}
		return store.Meal{}, apperr.Storage("failed to load meal", err)
	}
	return m, nil
}

// List は食事プランを新しい順に返す。categoryが空の場合は全件。
func (s *Service) List(ctx context.Context, category string) ([]store.Meal, error) {
	if category != "" && !ValidCategory(category) {
		return nil, apperr.Validation("category must be one of: breakfast, lunch, dinner, snacks")
	}
	meals, err := s.q.ListMeals(ctx, category)
	if err != nil {
		return nil, apperr.Storage("failed to list meals", err)
	}
	return meals, nil
}

// Search はタイトルまたは説明にqueryを含む食事プランを返す。大文字小文字は区別しない。
func (s *Service) Search(ctx context.Context, query, category string) ([]store.Meal, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("search query is required")
	}
	if category != "" && !ValidCategory(category) {
		return nil, apperr.Validation("category must be one of: breakfast, lunch, dinner, snacks")
	}
	meals, err := s.q.SearchMeals(ctx, store.SearchMealsParams{
		Pattern:  "%" + escapeLike(query) + "%",
		Category: category,
	})
	if err != nil {
		return nil, apperr.Storage("failed to search meals", err)
	}
	return meals, nil
}

// Delete は食事プランを削除し、画像があればファイルも削除する。
// 画像の削除に失敗してもログに残すだけでエラーにはしない。
func (s *Service) Delete(ctx context.Context, id auth.Identity, mealID int64) error {
	if !id.IsCoach() {
		return apperr.Forbidden("coach authorization required")
	}
	m, err := s.Get(ctx, mealID)
	if err != nil {
		return err
	}
	n, err := s.q.DeleteMeal(ctx, mealID)
	if err != nil {
		return apperr.Storage("failed to delete meal", err)
	}
	if n == 0 {
		return apperr.NotFound("meal not found")
	}

	if m.ImagePath.Valid && s.images != nil {
		if err := s.images.Remove(m.ImagePath.String); err != nil {
			s.log.WarnContext(ctx, "食事プラン画像の削除に失敗",
				slog.Int64("meal_id", mealID),
				slog.Any("error", err),
			)
		}
	}

	eventbus.Emit(ctx, s.publisher, s.log, event.MealRef(mealID), event.TypeMealDeleted,
		event.MealDeletedData{Title: m.Title})
	return nil
}

// escapeLike はLIKEのワイルドカードをエスケープする。エスケープ文字は '\'。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
