package migration

import (
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func countApplied(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	return n
}

var coachFS = fstest.MapFS{
	"migrations/000002_meals.up.sql":   {Data: []byte(`CREATE TABLE meals (id INTEGER PRIMARY KEY);`)},
	"migrations/000001_users.up.sql":   {Data: []byte(`CREATE TABLE users (id INTEGER PRIMARY KEY);`)},
	"migrations/000001_users.down.sql": {Data: []byte(`DROP TABLE users;`)},
	"migrations/notes.md":              {Data: []byte(`ignored`)},
	"migrations/draft_x.up.sql":        {Data: []byte(`ignored`)},
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("up.sqlだけがバージョン順に読み込まれること", func(t *testing.T) {
		t.Parallel()

		got, err := Load(coachFS, "migrations")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, Migration{Version: 1, Name: "users", SQL: `CREATE TABLE users (id INTEGER PRIMARY KEY);`}, got[0])
		assert.Equal(t, 2, got[1].Version)
	})

	t.Run("バージョンが重複している場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := Load(fstest.MapFS{
			"m/000001_a.up.sql": {Data: []byte(`SELECT 1;`)},
			"m/000001_b.up.sql": {Data: []byte(`SELECT 1;`)},
		}, "m")
		assert.Error(t, err)
	})

	t.Run("存在しないディレクトリはエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := Load(coachFS, "missing")
		assert.Error(t, err)
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("未適用分だけが適用されること", func(t *testing.T) {
		t.Parallel()
		db := openMemoryDB(t)

		n, err := Run(t.Context(), db, coachFS, "migrations", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = Run(t.Context(), db, coachFS, "migrations", nil)
		require.NoError(t, err)
		assert.Zero(t, n, "2回目は何も適用されないべき")
		assert.Equal(t, 2, countApplied(t, db))

		var name string
		require.NoError(t, db.QueryRow(`SELECT name FROM schema_migrations WHERE version = 2`).Scan(&name))
		assert.Equal(t, "meals", name)
	})

	t.Run("SQLエラーの場合はバージョンが記録されないこと", func(t *testing.T) {
		t.Parallel()
		db := openMemoryDB(t)

		n, err := Run(t.Context(), db, fstest.MapFS{
			"m/000001_ok.up.sql":     {Data: []byte(`CREATE TABLE ok (id INTEGER);`)},
			"m/000002_broken.up.sql": {Data: []byte(`CREATE TABLE (;`)},
		}, "m", nil)
		require.Error(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 1, countApplied(t, db))
	})
}
