package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigYAMLDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  provider: claude
  model: claude-3-5-haiku-latest
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "CLAUDE", cfg.LLM.Provider)
	assert.Equal(t, "PARALLEL", cfg.Pipeline.Mode)
	assert.True(t, cfg.Parallel())
	assert.Equal(t, "YAHOO", cfg.MarketData.Source)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	require.NotNil(t, cfg.Scoring.MinScore)
	assert.Equal(t, 3.0, *cfg.Scoring.MinScore)
	assert.Equal(t, 2, cfg.Scoring.SectorCap)
	assert.Equal(t, 10, cfg.Scoring.MaxResults)
	assert.Equal(t, 4.0, cfg.Scoring.MomentumCap)
	assert.Equal(t, 6.0, cfg.Scoring.FundamentalCap)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Len(t, cfg.Server.AllowOrigins, 2)
	assert.Equal(t, "logs/runs", cfg.RunLog.Dir)
	assert.Zero(t, cfg.RunLog.RetentionDays)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[pipeline]
mode = "sequential"

[market_data]
source = "static"

[scoring]
sector_cap = 3
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "SEQUENTIAL", cfg.Pipeline.Mode)
	assert.False(t, cfg.Parallel())
	assert.Equal(t, "STATIC", cfg.MarketData.Source)
	assert.Equal(t, 3, cfg.Scoring.SectorCap)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad mode", "pipeline:\n  mode: sometimes\n"},
		{"bad provider", "llm:\n  provider: bard\n"},
		{"bad source", "market_data:\n  source: bloomberg\n"},
		{"bad cache", "cache:\n  backend: memcached\n"},
		{"negative cap", "scoring:\n  sector_cap: -1\n"},
		{"negative min score", "scoring:\n  min_score: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "config.yaml", tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadConfigZeroMinScoreKept(t *testing.T) {
	path := writeFile(t, "config.yaml", "scoring:\n  min_score: 0\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Scoring.MinScore)
	assert.Zero(t, *cfg.Scoring.MinScore)
}
