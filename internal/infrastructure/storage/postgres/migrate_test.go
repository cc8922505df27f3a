package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"majifix/internal/core/locale"
)

func TestServiceNameIndexes_PerLocale(t *testing.T) {
	stmts := serviceNameIndexes(locale.Config{Default: "en", Supported: []string{"en", "sw"}})
	require.Len(t, stmts, 2)

	assert.Contains(t, stmts[0], "services_name_en_key")
	assert.Contains(t, stmts[0], "name->>'en'")
	assert.Contains(t, stmts[1], "services_name_sw_key")
	assert.Contains(t, stmts[1], "name->>'sw'")

	for _, stmt := range stmts {
		assert.True(t, strings.HasPrefix(stmt, "CREATE UNIQUE INDEX IF NOT EXISTS"))
		assert.Contains(t, stmt, "deleted_at IS NULL")
		assert.Contains(t, stmt, "COALESCE(jurisdiction_id")
	}
}

func TestServiceNameIndexes_DefaultsToEnglish(t *testing.T) {
	stmts := serviceNameIndexes(locale.Config{})
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "services_name_en_key")
}
