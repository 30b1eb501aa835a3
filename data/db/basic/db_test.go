package basic

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "relmap/data/db"
)

func newMemory(t *testing.T) *DB {
	t.Helper()
	db, err := New(core.DBConfig{Driver: "sqlite", Database: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDB_ScriptAndQuery(t *testing.T) {
	ctx := context.Background()
	db := newMemory(t)

	require.NoError(t, db.ExecScript(ctx,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`,
		`INSERT INTO users (id, name) VALUES (1, 'ann'), (2, 'bob')`,
	))

	rows, err := db.Query(ctx, `SELECT id, name FROM users WHERE id IN (?, ?) ORDER BY id`, 2, 1)
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols)

	var names []string
	for rows.Next() {
		var (
			id   int64
			name string
		)
		require.NoError(t, rows.Scan(&id, &name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"ann", "bob"}, names)

	var n int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 2, n)

	res, err := db.Exec(ctx, `DELETE FROM users WHERE id = ?`, 1)
	require.NoError(t, err)
	affected, _ := res.RowsAffected()
	assert.Equal(t, int64(1), affected)

	assert.Equal(t, "sqlite", db.GetDialectName())
	assert.NotNil(t, db.Raw())
	assert.NoError(t, db.Ping(ctx))
}

func TestDB_ExecScriptStopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	db := newMemory(t)

	err := db.ExecScript(ctx,
		`CREATE TABLE t (id INTEGER)`,
		`INSERT INTO missing VALUES (1)`,
		`CREATE TABLE never (id INTEGER)`,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "basic: statement 1")

	_, err = db.Exec(ctx, `SELECT * FROM never`)
	assert.Error(t, err)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(core.DBConfig{Driver: "nosuchdriver"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "basic: open nosuchdriver")
}

func TestWrap_RebindsForPostgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT id FROM posts WHERE author_id = \$1 AND id > \$2`).
		WithArgs(7, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))

	db := Wrap(sqlDB, "postgres")
	rows, err := db.Query(context.Background(), `SELECT id FROM posts WHERE author_id = ? AND id > ?`, 7, 3)
	require.NoError(t, err)
	require.True(t, rows.Next())
	var id int
	require.NoError(t, rows.Scan(&id))
	assert.Equal(t, 4, id)
	require.NoError(t, rows.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
