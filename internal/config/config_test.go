package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejectsBadWeightSum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Popularity = 0.9
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveShardCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Index.ShardCount = 0
	assert.Error(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg := DefaultConfig()
	cfg.Index.ShardCount = 8

	require.NoError(t, SaveConfig(cfg, path))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Index.ShardCount)
}

func TestInitConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Index.ShardCount)
}
