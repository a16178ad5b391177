package migrations

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- header comment; with a semicolon
CREATE TABLE a (x Int64) ENGINE = MergeTree ORDER BY x;

/* block; comment */
CREATE TABLE b (y String DEFAULT 'a;b', z String DEFAULT 'it''s')
ENGINE = MergeTree ORDER BY y;
`
	stmts, err := splitStatements(input)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a"))
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b"))
	assert.Contains(t, stmts[1], "'a;b'")
	assert.Contains(t, stmts[1], "'it''s'")
	assert.NotContains(t, stmts[1], "block")
}

func TestSplitStatements_Unterminated(t *testing.T) {
	_, err := splitStatements("SELECT 'open;")
	assert.Error(t, err)

	_, err = splitStatements("SELECT 1 /* never closed")
	assert.Error(t, err)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/launchpad")
	require.NoError(t, err)
	assert.Equal(t, "launchpad", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)

	_, err = databaseFromDSN("clickhouse://localhost:9000/bad-name")
	assert.Error(t, err)
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	for _, dir := range []string{"postgres", "clickhouse"} {
		files, err := load(Files, dir)
		require.NoError(t, err)
		require.NotEmpty(t, files, "no %s migrations embedded", dir)

		for _, m := range files {
			stmts, err := splitStatements(m.sql)
			assert.NoError(t, err, m.name)
			assert.NotEmpty(t, stmts, m.name)
		}
	}
}

func TestLoadSortsAndSkipsEmpty(t *testing.T) {
	fsys := fstest.MapFS{
		"db/002_second.sql": {Data: []byte("SELECT 2;")},
		"db/001_first.sql":  {Data: []byte("SELECT 1;")},
		"db/003_empty.sql":  {Data: []byte("  \n")},
		"db/README.md":      {Data: []byte("not sql")},
	}

	files, err := load(fsys, "db")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001_first.sql", files[0].name)
	assert.Equal(t, "002_second.sql", files[1].name)
}
