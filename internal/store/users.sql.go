package store

import (
	"context"
	"database/sql"
	"time"
)

const userColumns = `id, name, phone, password_hash, is_paid, device_token, created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Phone,
		&u.PasswordHash,
		&u.IsPaid,
		&u.DeviceToken,
		&u.CreatedAt,
	)
	return u, err
}

func (q *Queries) listUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (name, phone, password_hash, is_paid, created_at)
VALUES (?, ?, ?, 0, ?)
RETURNING ` + userColumns

// CreateUserParams はCreateUserの引数。
type CreateUserParams struct {
	Name         string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser はユーザーを作成する。
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Name, arg.Phone, arg.PasswordHash, arg.CreatedAt.UTC())
	return scanUser(row)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = ?`

// GetUserByID はIDでユーザーを取得する。
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByPhone = `-- name: GetUserByPhone :one
SELECT ` + userColumns + ` FROM users WHERE phone = ?`

// GetUserByPhone は電話番号でユーザーを取得する。
func (q *Queries) GetUserByPhone(ctx context.Context, phone string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByPhone, phone))
}

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC`

// ListUsers は全ユーザーを新しい順に返す。
func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	return q.listUsers(ctx, listUsers)
}

const listUsersWithDeviceToken = `-- name: ListUsersWithDeviceToken :many
SELECT ` + userColumns + ` FROM users
WHERE device_token IS NOT NULL AND device_token <> ''
ORDER BY id`

// ListUsersWithDeviceToken はデバイストークンを登録済みのユーザーを返す。
func (q *Queries) ListUsersWithDeviceToken(ctx context.Context) ([]User, error) {
	return q.listUsers(ctx, listUsersWithDeviceToken)
}

const listPaidUsersWithDeviceToken = `-- name: ListPaidUsersWithDeviceToken :many
SELECT ` + userColumns + ` FROM users
WHERE is_paid = 1 AND device_token IS NOT NULL AND device_token <> ''
ORDER BY id`

// ListPaidUsersWithDeviceToken はデバイストークンを登録済みの有料会員を返す。
func (q *Queries) ListPaidUsersWithDeviceToken(ctx context.Context) ([]User, error) {
	return q.listUsers(ctx, listPaidUsersWithDeviceToken)
}

const updateUserPaid = `-- name: UpdateUserPaid :execrows
UPDATE users SET is_paid = ? WHERE id = ?`

// UpdateUserPaidParams はUpdateUserPaidの引数。
type UpdateUserPaidParams struct {
	ID     int64
	IsPaid bool
}

// UpdateUserPaid は有料会員フラグを更新し、更新行数を返す。
func (q *Queries) UpdateUserPaid(ctx context.Context, arg UpdateUserPaidParams) (int64, error) {
	var paid int64
	if arg.IsPaid {
		paid = 1
	}
	result, err := q.db.ExecContext(ctx, updateUserPaid, paid, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateUserDeviceToken = `-- name: UpdateUserDeviceToken :execrows
UPDATE users SET device_token = ? WHERE id = ?`

// UpdateUserDeviceTokenParams はUpdateUserDeviceTokenの引数。
type UpdateUserDeviceTokenParams struct {
	ID          int64
	DeviceToken sql.NullString
}

// UpdateUserDeviceToken はデバイストークンを上書きし、更新行数を返す。
func (q *Queries) UpdateUserDeviceToken(ctx context.Context, arg UpdateUserDeviceTokenParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserDeviceToken, arg.DeviceToken, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteUser = `-- name: DeleteUser :execrows
DELETE FROM users WHERE id = ?`

// DeleteUser はユーザーを削除し、削除行数を返す。
func (q *Queries) DeleteUser(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
