package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadUsersCSV(t *testing.T) {
	path := writeFile(t, "users.csv",
		"id,name,email,region,signup_date,extra\n"+
			"21,user21,user21@example.com,NA,2025-01-22,ignored\n"+
			"22,user22,user22@example.com,EU,2025-02-01,ignored\n")

	rows, err := ReadUsers(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 21, rows[0]["id"])
	assert.Equal(t, "user21@example.com", rows[0]["email"])
	assert.NotContains(t, rows[0], "extra")
}

func TestReadUsersJSON(t *testing.T) {
	path := writeFile(t, "users.json",
		`[{"id": "7", "name": "user7", "region": "APAC", "unknown": true}]`)

	rows, err := ReadUsers(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0]["id"])
	assert.Equal(t, "APAC", rows[0]["region"])
	assert.NotContains(t, rows[0], "unknown")
}

func TestReadTableXML(t *testing.T) {
	path := writeFile(t, "users.xml",
		`<users>
			<user id="3"><name>user3</name><email>user3@example.com</email></user>
			<user id="4"><name>user4</name></user>
		</users>`)

	rows, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "3", rows[0]["id"])
	assert.Equal(t, "user3@example.com", rows[0]["email"])
	assert.Equal(t, "user4", rows[1]["name"])
}

func TestReadUsersXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"id", "name", "email"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{1, "alice", "alice@example.com"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := ReadUsers(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0]["id"])
	assert.Equal(t, "alice", rows[0]["name"])
}

func TestReadTableMissingFile(t *testing.T) {
	rows, err := ReadTable(filepath.Join(t.TempDir(), "nope.csv"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadTableUnsupportedExtension(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{name: "unknown format", file: "users.parquet"},
		{name: "legacy xls binary", file: "users.xls"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, "binary junk")

			rows, err := ReadTable(path)
			require.NoError(t, err)
			assert.Empty(t, rows)
		})
	}
}

func TestListDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("id\n1\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.json"), []byte("[]"), 0644))

	names, err := ListDir(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.csv", filepath.Join("sub", "b.json")}, names)

	_, err = ListDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
