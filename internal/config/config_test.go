package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 15, cfg.Send.BatchLimit)
	assert.Equal(t, 5, cfg.Send.IntervalSecs)
	assert.Equal(t, 3, cfg.Ingest.MaxPages)
	assert.Equal(t, 2, cfg.Ingest.PageIntervalSecs)
	assert.Equal(t, "Salvador, Bahia", cfg.Ingest.Location)
	assert.Equal(t, "https://serpapi.com", cfg.Places.BaseURL)
	assert.Equal(t, "pt-BR", cfg.Places.Language)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.Ingest.Niches)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PROSPECT_STORE_DRIVER", "sqlite")
	t.Setenv("PROSPECT_SEND_BATCH_LIMIT", "30")
	t.Setenv("PROSPECT_PLACES_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 30, cfg.Send.BatchLimit)
	assert.Equal(t, "test-key", cfg.Places.Key)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.Error(t, InitLogger(LogConfig{Level: "bogus", Format: "json"}))
}
