package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSQLStatements(t *testing.T) {
	content := `
-- ledger rows
CREATE TABLE a (
    x String
) ENGINE = MergeTree
ORDER BY x;

-- revisions
CREATE TABLE b (y UInt64) ENGINE = Memory;
SELECT 1`

	stmts := splitSQLStatements(content)
	assert.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE TABLE a (")
	assert.Contains(t, stmts[0], "ORDER BY x")
	assert.NotContains(t, stmts[0], ";")
	assert.Equal(t, "CREATE TABLE b (y UInt64) ENGINE = Memory", stmts[1])
	assert.Equal(t, "SELECT 1", stmts[2])

	assert.Empty(t, splitSQLStatements("-- nothing here\n\n"))
}
