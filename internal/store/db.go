package store

import (
	"context"
	"database/sql"
)

// DBTX は*sql.DBと*sql.Txの共通インターフェース。
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// New は新しいQueriesを生成する。
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries はテーブルごとのクエリを実行する。
type Queries struct {
	db DBTX
}

// WithTx はトランザクションに束縛したQueriesを返す。
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
