// Package migration はSQLiteのスキーマを番号付きSQLファイルで前進させる。
//
// ファイル名は 000001_description.up.sql 形式で、.up.sql 以外は無視する。
// 適用済みバージョンは schema_migrations テーブルに記録する。
package migration

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
)

const upSuffix = ".up.sql"

// Migration は1つのup.sqlファイル。
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Load はfsysのdir直下からマイグレーションを読み込み、バージョン昇順で返す。
// 番号が読めないファイルは無視し、番号の重複はエラーにする。
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("%sを読めません: %w", dir, err)
	}

	var out []Migration
	for _, entry := range entries {
		fileName := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(fileName, upSuffix) {
			continue
		}
		num, desc, ok := strings.Cut(strings.TrimSuffix(fileName, upSuffix), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		body, err := fs.ReadFile(fsys, path.Join(dir, fileName))
		if err != nil {
			return nil, fmt.Errorf("%sを読めません: %w", fileName, err)
		}
		out = append(out, Migration{Version: version, Name: desc, SQL: string(body)})
	}

	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("バージョン %06d が重複しています (%s, %s)", out[i].Version, out[i-1].Name, out[i].Name)
		}
	}
	return out, nil
}

// Run はdirのマイグレーションのうち未適用のものを順に適用し、適用した件数を返す。
// 各マイグレーションは記録と合わせて1トランザクションで実行する。
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}
	migrations, err := Load(fsys, dir)
	if err != nil {
		return 0, err
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return 0, fmt.Errorf("schema_migrationsを作成できません: %w", err)
	}

	done, err := appliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if _, ok := done[m.Version]; ok {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return count, fmt.Errorf("マイグレーション %06d_%s の適用に失敗: %w", m.Version, m.Name, err)
		}
		count++
		log.InfoContext(ctx, "マイグレーションを適用しました", slog.Int("version", m.Version), slog.String("name", m.Name))
	}
	return count, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]struct{}, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("適用済みバージョンを取得できません: %w", err)
	}
	defer rows.Close()

	done := make(map[int]struct{})
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = struct{}{}
	}
	return done, rows.Err()
}

func apply(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
		return err
	}
	return tx.Commit()
}
