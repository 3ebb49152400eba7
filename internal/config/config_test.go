package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotedesk/internal/common"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_BASE_URL", "")

	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.BackendURL)
	assert.Equal(t, StateSQLite, cfg.StateBackend)
	assert.Equal(t, 20, cfg.HistoryPageSize)
	assert.Equal(t, 300*time.Millisecond, cfg.HistoryDebounce)
	assert.Equal(t, "default", cfg.Theme)
	assert.True(t, cfg.LLM.IsZero())
}

func TestLoad_ViperOverridesAndEnvFallback(t *testing.T) {
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("LLM_MODEL", "env-model")

	v := viper.New()
	SetDefaults(v)
	v.Set("backend.url", "https://desk.example.com/api")
	v.Set("llm.model", "deepseek-chat")
	v.Set("history.debounce", "0s")
	v.Set("state.backend", StateMemory)
	v.Set("tui.theme", "mocha")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://desk.example.com/api", cfg.BackendURL)
	assert.Equal(t, "deepseek-chat", cfg.LLM.ModelID)
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, time.Duration(0), cfg.HistoryDebounce)
	assert.False(t, cfg.LLM.IsZero())
	assert.Equal(t, "mocha", cfg.Theme)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		target  error
		mutate  func(*Config)
		name    string
		errMsg  string
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "missing backend",
			mutate:  func(c *Config) { c.BackendURL = "" },
			wantErr: true,
			errMsg:  "backend url is required",
			target:  common.ErrMissingConfig,
		},
		{
			name:    "redis without url",
			mutate:  func(c *Config) { c.StateBackend = StateRedis },
			wantErr: true,
			errMsg:  "state.redis_url is required",
			target:  common.ErrMissingConfig,
		},
		{
			name: "redis with url",
			mutate: func(c *Config) {
				c.StateBackend = StateRedis
				c.RedisURL = "redis://localhost:6379/0"
			},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.StateBackend = "etcd" },
			wantErr: true,
			errMsg:  `unknown state backend "etcd"`,
			target:  common.ErrInvalidConfig,
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.BackendRetries = -1 },
			wantErr: true,
			errMsg:  "backend retries cannot be negative",
			target:  common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.target)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}
