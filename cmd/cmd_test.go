package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-scout/internal/model"
)

func TestDiscoveryRequestValidation(t *testing.T) {
	discoverFlags.mode = "competitors"
	discoverFlags.category = "smartphones"
	discoverFlags.brand = "Samsung"
	t.Cleanup(func() { discoverFlags.category = ""; discoverFlags.brand = "" })

	req, err := discoveryRequest("Galaxy S24")
	require.NoError(t, err)
	assert.Equal(t, "Galaxy S24", req.Subject)
	assert.Equal(t, model.ModeCompetitors, req.Mode)

	discoverFlags.mode = "sideways"
	_, err = discoveryRequest("Galaxy S24")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")

	discoverFlags.mode = "competitors"
	discoverFlags.category = ""
	_, err = discoveryRequest("Galaxy S24")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category")
}

func TestLoadBatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subjects.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- subject: Galaxy S24
  brand: Samsung
  category: smartphones
  target_count: 5
- subject: Galaxy Book 3
  category: laptops
  mode: products
`), 0o644))

	reqs, err := loadBatchFile(path)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, model.ModeCompetitors, reqs[0].Mode, "mode defaults to competitors")
	assert.Equal(t, 5, reqs[0].TargetCount)
	assert.Equal(t, model.ModeProducts, reqs[1].Mode)
}

func TestLoadBatchFileRejectsBadEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subjects.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- subject: Galaxy S24
`), 0o644))

	_, err := loadBatchFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category")

	_, err = loadBatchFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
