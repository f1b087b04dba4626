package store

import (
	"context"
	"database/sql"
	"time"
)

const mealColumns = `id, title, description, image_path, link, category, created_at`

func scanMeal(row interface{ Scan(...any) error }) (Meal, error) {
	var m Meal
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.ImagePath,
		&m.Link,
		&m.Category,
		&m.CreatedAt,
	)
	return m, err
}

func (q *Queries) listMeals(ctx context.Context, query string, args ...any) ([]Meal, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Meal
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const createMeal = `-- name: CreateMeal :one
INSERT INTO meals (title, description, image_path, link, category, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + mealColumns

// CreateMealParams はCreateMealの引数。
type CreateMealParams struct {
	Title       string
	Description sql.NullString
	ImagePath   sql.NullString
	Link        sql.NullString
	Category    string
	CreatedAt   time.Time
}

// CreateMeal は食事プランを作成する。
func (q *Queries) CreateMeal(ctx context.Context, arg CreateMealParams) (Meal, error) {
	row := q.db.QueryRowContext(ctx, createMeal,
		arg.Title,
		arg.Description,
		arg.ImagePath,
		arg.Link,
		arg.Category,
		arg.CreatedAt.UTC(),
	)
	return scanMeal(row)
}

const getMealByID = `-- name: GetMealByID :one
SELECT ` + mealColumns + ` FROM meals WHERE id = ?`

// GetMealByID はIDで食事プランを取得する。
func (q *Queries) GetMealByID(ctx context.Context, id int64) (Meal, error) {
	return scanMeal(q.db.QueryRowContext(ctx, getMealByID, id))
}

const listMeals = `-- name: ListMeals :many
SELECT ` + mealColumns + ` FROM meals
WHERE (? = '' OR category = ?)
ORDER BY created_at DESC, id DESC`

// ListMeals は食事プランを新しい順に返す。categoryが空の場合は全カテゴリ。
func (q *Queries) ListMeals(ctx context.Context, category string) ([]Meal, error) {
	return q.listMeals(ctx, listMeals, category, category)
}

const searchMeals = `-- name: SearchMeals :many
SELECT ` + mealColumns + ` FROM meals
WHERE (title LIKE ? ESCAPE '\' OR COALESCE(description, '') LIKE ? ESCAPE '\')
  AND (? = '' OR category = ?)
ORDER BY created_at DESC, id DESC`

// SearchMealsParams はSearchMealsの引数。
type SearchMealsParams struct {
	// Pattern はLIKE用にエスケープ済みのパターン（例: "%chicken%"）。
	Pattern  string
	Category string
}

// SearchMeals はタイトルまたは説明文にパターンが一致する食事プランを返す。
func (q *Queries) SearchMeals(ctx context.Context, arg SearchMealsParams) ([]Meal, error) {
	return q.listMeals(ctx, searchMeals, arg.Pattern, arg.Pattern, arg.Category, arg.Category)
}

const deleteMeal = `-- name: DeleteMeal :execrows
DELETE FROM meals WHERE id = ?`

// DeleteMeal は食事プランを削除し、削除行数を返す。
func (q *Queries) DeleteMeal(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteMeal, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
