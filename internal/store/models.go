package store

import (
	"database/sql"
	"time"
)

// User はusersテーブルの行。
type User struct {
	ID           int64
	Name         string
	Phone        string
	PasswordHash string
	IsPaid       int64
	DeviceToken  sql.NullString
	CreatedAt    time.Time
}

// Notification はnotificationsテーブルの行。
type Notification struct {
	ID           int64
	Text         sql.NullString
	ImagePath    sql.NullString
	ImageURL     sql.NullString
	TargetType   string
	TargetUserID sql.NullInt64
	CreatedAt    time.Time
}

// Meal はmealsテーブルの行。
type Meal struct {
	ID          int64
	Title       string
	Description sql.NullString
	ImagePath   sql.NullString
	Link        sql.NullString
	Category    string
	CreatedAt   time.Time
}
