package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/production-planner/pkg/planner"
)

func TestParseTargets(t *testing.T) {
	got, err := parseTargets([]string{"11=20", " 12 = 7.5 "})
	require.NoError(t, err)
	assert.Equal(t, []planner.Target{{ProductID: 11, Rate: 20}, {ProductID: 12, Rate: 7.5}}, got)

	for _, bad := range []string{"11", "x=1", "11=fast"} {
		_, err := parseTargets([]string{bad})
		assert.Error(t, err, bad)
	}
}

const catalogDump = `{
  "items": [{"id": 155, "display_name": "Iron Ore"}, {"id": 10, "display_name": "Iron Ingot"}],
  "recipes": [
    {"id": 1, "display_name": "Iron Ingot", "duration": 2,
     "ingredients": [{"item_id": 155, "amount": 1}], "products": [{"item_id": 10, "amount": 1}]}
  ]
}`

func TestImportThenOptimize(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(dump, []byte(catalogDump), 0o600))
	dbFile := filepath.Join(dir, "data", "planner.db")

	rootCmd.SetArgs([]string{"import", "--db", dbFile, dump})
	require.NoError(t, rootCmd.Execute())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"optimize", "--db", dbFile, "--target", "10=60"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), `"total_quantity": 60`)
}
