package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(Config{DbPath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Seed(context.Background()))
	return db
}

func TestExecuteSelectRejectsNonSelect(t *testing.T) {
	db := testDatabase(t)

	tests := []struct {
		name  string
		query string
	}{
		{
			name:  "empty",
			query: "",
		},
		{
			name:  "blank",
			query: "   \n\t ",
		},
		{
			name:  "insert",
			query: "INSERT INTO users (name) VALUES ('mallory')",
		},
		{
			name:  "delete",
			query: "DELETE FROM users",
		},
		{
			name:  "pragma",
			query: "PRAGMA table_info(users)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.ExecuteSelect(context.Background(), tt.query, nil, 0)
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}

	// Nothing above may have written to the store.
	res, err := db.ExecuteSelect(context.Background(), "SELECT count(*) AS n FROM users", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Rows[0]["n"])
}

func TestExecuteSelectTrailingSemicolon(t *testing.T) {
	db := testDatabase(t)

	res, err := db.ExecuteSelect(context.Background(), "SELECT name FROM users ORDER BY id;", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, res.Columns)
	assert.Len(t, res.Rows, 3)
	assert.Equal(t, "Alice", res.Rows[0]["name"])
}

func TestExecuteSelectImplicitLimit(t *testing.T) {
	db := testDatabase(t)

	for i := 0; i < 1200; i++ {
		_, err := db.DB().Exec("INSERT INTO products (name, price) VALUES (?, ?)", fmt.Sprintf("item-%d", i), 1.0)
		require.NoError(t, err)
	}

	res, err := db.ExecuteSelect(context.Background(), "SELECT id FROM products", nil, 0)
	require.NoError(t, err)
	assert.Len(t, res.Rows, DefaultRowLimit)

	// An explicit LIMIT wins over the implicit cap.
	res, err = db.ExecuteSelect(context.Background(), "SELECT id FROM products LIMIT 5", nil, 0)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 5)
}

func TestExecuteSelectNoRows(t *testing.T) {
	db := testDatabase(t)

	res, err := db.ExecuteSelect(context.Background(), "SELECT * FROM users WHERE id = ?", []any{9999}, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Columns)
	assert.Empty(t, res.Rows)
}

func TestListTables(t *testing.T) {
	db := testDatabase(t)

	tables, err := db.ListTables(context.Background())
	require.NoError(t, err)
	assert.Contains(t, tables, "users")
	assert.Contains(t, tables, "products")
	assert.Contains(t, tables, "orders")
}

func TestTableInfo(t *testing.T) {
	db := testDatabase(t)

	columns, err := db.TableInfo(context.Background(), "users")
	require.NoError(t, err)

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "name", "email", "region", "signup_date"}, names)
	assert.True(t, columns[0].PrimaryKey)
	assert.True(t, columns[1].NotNull)
}
