package safety

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSafe_AcceptsPlainSelects(t *testing.T) {
	tests := []string{
		"SELECT * FROM Asset",
		"select * from Asset;",
		"SELECT a.name, d.price FROM DailyMarketData d JOIN Asset a ON a.asset_id = d.asset_id WHERE d.asset_id = 4",
		"  SELECT   1  ",
		"SELECT 'Cannot answer this question from the available data' AS message;",
	}
	for _, sql := range tests {
		assert.True(t, IsSafe(sql), "expected safe: %q", sql)
	}
}

func TestIsSafe_RejectsWriteKeywords(t *testing.T) {
	tests := []string{
		"UPDATE Asset SET name='x'",
		"INSERT INTO Asset VALUES (1)",
		"DELETE FROM Asset",
		"DROP TABLE Asset",
		"SELECT * FROM Asset; DROP TABLE Asset",
		"select 1 union select 2; truncate table Asset",
		"GRANT ALL ON market_data.* TO 'x'",
	}
	for _, sql := range tests {
		assert.False(t, IsSafe(sql), "expected unsafe: %q", sql)
	}
}

func TestIsSafe_RejectsComments(t *testing.T) {
	tests := []string{
		"select * from x -- comment",
		"select * from x /* hidden */",
		"select 1 */",
	}
	for _, sql := range tests {
		assert.False(t, IsSafe(sql), "expected unsafe: %q", sql)
	}
}

func TestIsSafe_SemicolonPolicy(t *testing.T) {
	// One trailing terminator is fine, anything else means multiple statements.
	assert.True(t, IsSafe("SELECT 1;"))
	assert.False(t, IsSafe("SELECT 1; SELECT 2"))
	assert.False(t, IsSafe("SELECT 1;;"))
	assert.False(t, IsSafe("SELECT 1; DROP TABLE Asset;"))
}

func TestIsSafe_RejectsNonSelect(t *testing.T) {
	assert.False(t, IsSafe(""))
	assert.False(t, IsSafe("   "))
	assert.False(t, IsSafe("SHOW TABLES"))
	assert.False(t, IsSafe("EXPLAIN SELECT 1"))
	assert.False(t, IsSafe("with x as (select 1) select * from x"))
}

func TestIsSafe_CaseAndWhitespaceInsensitive(t *testing.T) {
	assert.False(t, IsSafe("sElEcT 1;   dRoP   TABLE Asset"))
	assert.True(t, IsSafe("SeLeCt\n\t*\nFROM  Asset"))
}

func TestIsSafe_Total(t *testing.T) {
	// Any input yields a verdict without panicking.
	inputs := []string{
		"",
		";",
		"insert",
		"delete delete delete",
		strings.Repeat("a", 10000),
		"\x00\x01\x02",
		"😀 select",
	}
	for _, sql := range inputs {
		assert.NotPanics(t, func() { _ = IsSafe(sql) })
	}
}

func TestIsSafe_Idempotent(t *testing.T) {
	for _, sql := range []string{"SELECT 1", "DROP TABLE x", ""} {
		assert.Equal(t, IsSafe(sql), IsSafe(sql))
	}
}
