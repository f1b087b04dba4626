// Package store はSQLiteへの接続とテーブルごとのクエリを提供する。
//
// スキーマはmigrations/配下のSQLファイルで管理し、起動時にOpenが適用する。
// クエリは1ファイル1テーブルで、行構造体はmodels.goに置く。
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/fitcoach/coachapi/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dsn はSQLiteの接続文字列を組み立てる。
// 外部キー制約を有効にし、時刻はソート可能なSQLite形式で保存する。
func dsn(path string) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_time_format=sqlite",
	}
	if path != ":memory:" {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	return path + "?" + strings.Join(params, "&")
}

// Open はSQLiteデータベースを開き、マイグレーションを適用する。
// SQLiteの書き込みは直列化されるため接続は1本に制限する。
// ":memory:" の場合も同じ接続を使い続けることでデータが保持される。
func Open(ctx context.Context, path string, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベースへの疎通に失敗: %w", err)
	}

	applied, err := migration.Run(ctx, db, migrationsFS, "migrations", log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	if log != nil {
		log.DebugContext(ctx, "データベースを開きました", slog.String("path", path), slog.Int("migrations_applied", applied))
	}

	return db, nil
}

// RunInTx はfnをトランザクション内で実行する。fnがエラーを返した場合はロールバックする。
func RunInTx(ctx context.Context, db *sql.DB, fn func(q *Queries) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(New(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// IsNotFound は行が存在しなかったことを表すエラーかを返す。
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation は一意制約違反のエラーかを返す。
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// NullString は空文字列をNULLとして扱うsql.NullStringを返す。
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
