package store

import (
	"context"
	"database/sql"
	"time"
)

const notificationColumns = `id, text, image_path, image_url, target_type, target_user_id, created_at`

func scanNotification(row interface{ Scan(...any) error }) (Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID,
		&n.Text,
		&n.ImagePath,
		&n.ImageURL,
		&n.TargetType,
		&n.TargetUserID,
		&n.CreatedAt,
	)
	return n, err
}

func (q *Queries) listNotifications(ctx context.Context, query string, args ...any) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

const createNotification = `-- name: CreateNotification :one
INSERT INTO notifications (text, image_path, image_url, target_type, target_user_id, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + notificationColumns

// CreateNotificationParams はCreateNotificationの引数。
type CreateNotificationParams struct {
	Text         sql.NullString
	ImagePath    sql.NullString
	ImageURL     sql.NullString
	TargetType   string
	TargetUserID sql.NullInt64
	CreatedAt    time.Time
}

// CreateNotification は通知を1件作成する。
func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRowContext(ctx, createNotification,
		arg.Text,
		arg.ImagePath,
		arg.ImageURL,
		arg.TargetType,
		arg.TargetUserID,
		arg.CreatedAt.UTC(),
	)
	return scanNotification(row)
}

const getNotificationByID = `-- name: GetNotificationByID :one
SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

// GetNotificationByID はIDで通知を取得する。
func (q *Queries) GetNotificationByID(ctx context.Context, id int64) (Notification, error) {
	return scanNotification(q.db.QueryRowContext(ctx, getNotificationByID, id))
}

const listNotifications = `-- name: ListNotifications :many
SELECT ` + notificationColumns + ` FROM notifications ORDER BY created_at DESC, id DESC`

// ListNotifications は全通知を新しい順に返す。
func (q *Queries) ListNotifications(ctx context.Context) ([]Notification, error) {
	return q.listNotifications(ctx, listNotifications)
}

const listNotificationsForUser = `-- name: ListNotificationsForUser :many
SELECT ` + notificationColumns + ` FROM notifications
WHERE target_type = 'all'
   OR (target_type = 'paid' AND ?)
   OR (target_type = 'specific' AND target_user_id = ?)
ORDER BY created_at DESC, id DESC`

// ListNotificationsForUserParams はListNotificationsForUserの引数。
type ListNotificationsForUserParams struct {
	UserID      int64
	IncludePaid bool
}

// ListNotificationsForUser はユーザーが受け取る通知を新しい順に返す。
// 全員向け、有料会員ならpaid向け、本人宛てのspecificを含む。
func (q *Queries) ListNotificationsForUser(ctx context.Context, arg ListNotificationsForUserParams) ([]Notification, error) {
	return q.listNotifications(ctx, listNotificationsForUser, arg.IncludePaid, arg.UserID)
}

const deleteNotificationsByTargetUser = `-- name: DeleteNotificationsByTargetUser :execrows
DELETE FROM notifications WHERE target_type = 'specific' AND target_user_id = ?`

// DeleteNotificationsByTargetUser は指定ユーザー宛ての通知を削除し、削除件数を返す。
func (q *Queries) DeleteNotificationsByTargetUser(ctx context.Context, userID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteNotificationsByTargetUser, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
