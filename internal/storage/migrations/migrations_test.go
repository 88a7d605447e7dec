package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second
CREATE TABLE b (y String DEFAULT 'it''s') ENGINE = Memory;
`
	stmts, err := splitStatements(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt8) ENGINE = Memory", stmts[0])
	assert.Contains(t, stmts[1], "'it''s'")
}

func TestSplitStatements_RejectsQuotedSemicolon(t *testing.T) {
	_, err := splitStatements(`SELECT 'a;b';`)
	assert.ErrorIs(t, err, errQuotedSemicolon)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/stablebond")
	require.NoError(t, err)
	assert.Equal(t, "stablebond", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestLoad_OrdersAndSkipsEmpty(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/002_b.sql":  {Data: []byte("SELECT 2;")},
		"pg/001_a.sql":  {Data: []byte("SELECT 1;")},
		"pg/003_c.sql":  {Data: []byte("  \n")},
		"pg/README.txt": {Data: []byte("notes")},
	}
	files, err := load(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001_a.sql", files[0].name)
	assert.Equal(t, "002_b.sql", files[1].name)
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.NotEmpty(t, pg)

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 1)
	stmts, err := splitStatements(ch[0].body)
	require.NoError(t, err)
	assert.Len(t, stmts, 2)
}
