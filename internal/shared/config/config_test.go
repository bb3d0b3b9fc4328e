package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "seedance-1-0-lite-i2v-250428", cfg.Ark.Model)
	assert.Equal(t, 5*time.Second, cfg.Ark.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Ark.GenerateDeadline)
	assert.Equal(t, int64(16<<20), cfg.Storage.MaxUploadBytes)
	require.Len(t, cfg.Ark.Endpoints, 2)
	assert.Contains(t, cfg.Ark.Endpoints[0], "ap-southeast")
}

func TestLoad_StatusDeadlineBelowPollInterval(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Less(t, cfg.Ark.StatusDeadline, cfg.Ark.PollInterval,
		"a status check must finish within a single polling round")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Run("prefixed env overrides nested keys", func(t *testing.T) {
		t.Setenv("REELFORGE_SERVER_ADDRESS", ":9090")
		t.Setenv("REELFORGE_LOG_LEVEL", "debug")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Address)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("vendor variable supplies the credential", func(t *testing.T) {
		t.Setenv("ARK_API_KEY", "vendor-key")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "vendor-key", cfg.Ark.APIKey)
	})

	t.Run("prefixed credential wins over the vendor variable", func(t *testing.T) {
		t.Setenv("REELFORGE_ARK_API_KEY", "prefixed-key")
		t.Setenv("ARK_API_KEY", "vendor-key")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "prefixed-key", cfg.Ark.APIKey)
	})

	t.Run("base url override from env", func(t *testing.T) {
		t.Setenv("REELFORGE_ARK_BASE_URL", "https://pinned.example/api/v3")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "https://pinned.example/api/v3", cfg.Ark.BaseURL)
	})
}
