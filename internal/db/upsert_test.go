package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL(t *testing.T) {
	cfg := UpsertConfig{
		Table:        "research_cache",
		Columns:      []string{"cache_key", "entry", "expires_at"},
		ConflictKeys: []string{"cache_key"},
	}

	got, err := UpsertSQL(cfg, Dollar)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "research_cache" ("cache_key", "entry", "expires_at") VALUES ($1, $2, $3) `+
			`ON CONFLICT ("cache_key") DO UPDATE SET "entry" = excluded."entry", "expires_at" = excluded."expires_at"`,
		got)

	got, err = UpsertSQL(cfg, Question)
	require.NoError(t, err)
	assert.Contains(t, got, "VALUES (?, ?, ?)")
}

func TestUpsertSQL_ExplicitUpdateCols(t *testing.T) {
	got, err := UpsertSQL(UpsertConfig{
		Table:        "cache.bundles",
		Columns:      []string{"k", "v"},
		ConflictKeys: []string{"k"},
		UpdateCols:   []string{},
	}, Dollar)
	require.NoError(t, err)
	assert.Contains(t, got, `INSERT INTO "cache"."bundles"`)
	assert.Contains(t, got, "DO NOTHING")
}

func TestUpsertSQL_NoColumns(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Table: "t", ConflictKeys: []string{"id"}}, Dollar)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestUpsertSQL_NoConflictKeys(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Table: "t", Columns: []string{"id", "name"}}, Dollar)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"cache.bundles", `"cache"."bundles"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"id", "name", "value"})
	assert.Equal(t, `"id", "name", "value"`, result)
}
