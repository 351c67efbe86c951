// Package config provides configuration for the chat service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	DB      DBConfig      `mapstructure:"db"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Session SessionConfig `mapstructure:"session"`
	Policy  PolicyConfig  `mapstructure:"policy"`
	Cache   CacheConfig   `mapstructure:"cache"`
	WS      WSConfig      `mapstructure:"ws"`
	Log     LogConfig     `mapstructure:"log"`
}

// HTTPConfig holds server settings.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DBConfig holds the SQLite store settings.
type DBConfig struct {
	Path          string `mapstructure:"path"`
	MaxConns      int    `mapstructure:"max_conns"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms"`
}

// LLMConfig selects and configures the model backend.
type LLMConfig struct {
	Provider  string `mapstructure:"provider"` // openai, anthropic, mock
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// Timeout returns the backend call timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SessionConfig holds session defaults.
type SessionConfig struct {
	DefaultTitle string `mapstructure:"default_title"`
}

// PolicyConfig holds message admission limits.
type PolicyConfig struct {
	MaxMessageBytes int `mapstructure:"max_message_bytes"`
}

// CacheConfig configures the session-existence cache.
// An empty RedisURL selects the in-process cache.
type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// WSConfig holds WebSocket connection settings.
type WSConfig struct {
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
	Dir    string `mapstructure:"dir"`
}

// envBindings maps config keys to the environment variables that can set them.
// The first name wins when several are set.
var envBindings = map[string][]string{
	"http.port":                {"HTTP_PORT"},
	"http.shutdown_timeout":    {"SHUTDOWN_TIMEOUT"},
	"db.path":                  {"DATABASE_URL", "APP_DB", "CHAT_DB"},
	"db.max_conns":             {"DB_MAX_CONNS"},
	"db.busy_timeout_ms":       {"DB_BUSY_TIMEOUT_MS"},
	"llm.provider":             {"LLM_PROVIDER"},
	"llm.model":                {"LLM_MODEL", "OLLAMA_MODEL"},
	"llm.base_url":             {"LLM_BASE_URL", "OLLAMA_API_BASE"},
	"llm.api_key":              {"LLM_API_KEY"},
	"llm.timeout_ms":           {"LLM_TIMEOUT_MS"},
	"llm.max_tokens":           {"LLM_MAX_TOKENS"},
	"session.default_title":    {"SESSION_DEFAULT_TITLE"},
	"policy.max_message_bytes": {"MAX_MESSAGE_BYTES"},
	"cache.redis_url":          {"REDIS_URL"},
	"cache.ttl":                {"CACHE_TTL"},
	"ws.max_message_size":      {"WS_MAX_MESSAGE_SIZE"},
	"ws.read_timeout":          {"WS_READ_TIMEOUT"},
	"ws.write_timeout":         {"WS_WRITE_TIMEOUT"},
	"ws.ping_interval":         {"WS_PING_INTERVAL"},
	"log.level":                {"LOG_LEVEL"},
	"log.format":               {"LOG_FORMAT"},
	"log.dir":                  {"LOG_DIR"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8000)
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("db.path", "mygpt.db")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.busy_timeout_ms", 5000)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "llama3")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout_ms", 120000)
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("session.default_title", "Temp Title")
	v.SetDefault("policy.max_message_bytes", 32*1024)

	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("ws.max_message_size", 64*1024)
	v.SetDefault("ws.read_timeout", "60s")
	v.SetDefault("ws.write_timeout", "10s")
	v.SetDefault("ws.ping_interval", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.dir", "")
}

// Load reads configuration from an optional YAML file and the environment.
// An empty path skips the file; a missing file at a given path is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	if c.DB.MaxConns < 1 {
		return fmt.Errorf("db.max_conns must be at least 1, got %d", c.DB.MaxConns)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.TimeoutMs <= 0 {
		return fmt.Errorf("llm.timeout_ms must be positive, got %d", c.LLM.TimeoutMs)
	}
	if c.Policy.MaxMessageBytes <= 0 {
		return fmt.Errorf("policy.max_message_bytes must be positive, got %d", c.Policy.MaxMessageBytes)
	}
	return nil
}
