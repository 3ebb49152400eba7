// Package config loads the quote tool settings from viper.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/quotedesk/internal/common"
	"github.com/Veraticus/quotedesk/internal/model"
	"github.com/spf13/viper"
)

// State backends.
const (
	StateSQLite = "sqlite"
	StateRedis  = "redis"
	StateMemory = "memory"
)

// Config holds every setting the quote tool reads.
type Config struct {
	LLM             model.LLMConfig
	BackendURL      string
	StateBackend    string
	StatePath       string
	RedisURL        string
	Theme           string
	BackendTimeout  time.Duration
	HistoryDebounce time.Duration
	BackendRetries  int
	HistoryPageSize int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BackendURL:      "http://localhost:8000/api",
		BackendTimeout:  120 * time.Second,
		BackendRetries:  3,
		StateBackend:    StateSQLite,
		StatePath:       DefaultStatePath(),
		HistoryPageSize: 20,
		HistoryDebounce: 300 * time.Millisecond,
		Theme:           "default",
	}
}

// SetDefaults registers defaults on v so they show up in `viper.AllSettings`.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("backend.url", d.BackendURL)
	v.SetDefault("backend.timeout", d.BackendTimeout)
	v.SetDefault("backend.retries", d.BackendRetries)
	v.SetDefault("state.backend", d.StateBackend)
	v.SetDefault("state.path", d.StatePath)
	v.SetDefault("history.page_size", d.HistoryPageSize)
	v.SetDefault("history.debounce", d.HistoryDebounce)
	v.SetDefault("tui.theme", d.Theme)
}

// Load reads configuration from v.
// It follows this precedence:
// 1. Viper configuration (from config file, flags or QUOTE_ env vars)
// 2. Direct environment variables (LLM_*)
// 3. Default values
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()

	if s := v.GetString("backend.url"); s != "" {
		cfg.BackendURL = s
	}
	if d := v.GetDuration("backend.timeout"); d > 0 {
		cfg.BackendTimeout = d
	}
	if v.IsSet("backend.retries") {
		cfg.BackendRetries = v.GetInt("backend.retries")
	}
	if s := v.GetString("state.backend"); s != "" {
		cfg.StateBackend = s
	}
	if s := v.GetString("state.path"); s != "" {
		cfg.StatePath = ExpandPath(s)
	}
	cfg.RedisURL = v.GetString("state.redis_url")
	if n := v.GetInt("history.page_size"); n > 0 {
		cfg.HistoryPageSize = n
	}
	if v.IsSet("history.debounce") {
		cfg.HistoryDebounce = v.GetDuration("history.debounce")
	}

	if s := v.GetString("tui.theme"); s != "" {
		cfg.Theme = s
	}

	cfg.LLM = model.LLMConfig{
		BaseURL: v.GetString("llm.base_url"),
		APIKey:  v.GetString("llm.api_key"),
		ModelID: v.GetString("llm.model"),
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("LLM_BASE_URL")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	}
	if cfg.LLM.ModelID == "" {
		cfg.LLM.ModelID = os.Getenv("LLM_MODEL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable. A missing LLM
// configuration is not an error here; sending a message reports it instead.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("%w: backend url is required", common.ErrMissingConfig)
	}
	if c.BackendTimeout < 0 {
		return fmt.Errorf("%w: backend timeout cannot be negative", common.ErrInvalidConfig)
	}
	if c.BackendRetries < 0 {
		return fmt.Errorf("%w: backend retries cannot be negative", common.ErrInvalidConfig)
	}
	if c.HistoryDebounce < 0 {
		return fmt.Errorf("%w: history debounce cannot be negative", common.ErrInvalidConfig)
	}
	switch c.StateBackend {
	case StateSQLite:
		if c.StatePath == "" {
			return fmt.Errorf("%w: state path is required for the sqlite backend", common.ErrMissingConfig)
		}
	case StateRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: state.redis_url is required for the redis backend", common.ErrMissingConfig)
		}
	case StateMemory:
	default:
		return fmt.Errorf("%w: unknown state backend %q", common.ErrInvalidConfig, c.StateBackend)
	}
	return nil
}
