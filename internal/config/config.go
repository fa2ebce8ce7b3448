package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	Environment EnvironmentConfig
	HTTPServer  HTTPServerConfig
	Logger      LoggerConfig
	Database    DatabaseConfig
	Directory   DirectoryConfig
	LLM         LLMConfig
	Matching    MatchingConfig
	Chat        ChatConfig
	RateLimit   RateLimitConfig
}

type EnvironmentConfig struct {
	Name string
}

type HTTPServerConfig struct {
	Port int
	Mode string
}

type LoggerConfig struct {
	Level    string
	Mode     string
	Encoding string
}

// DatabaseConfig selects the chat history backend. Driver is one of
// "postgres" (lib/pq), "pgx", "sqlite" or "mysql".
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
	NotifyChannel   string
}

// DirectoryConfig points at a doctor directory file. An empty path uses the
// directory bundled with the binary.
type DirectoryConfig struct {
	Path string
}

type LLMConfig struct {
	Providers       []ProviderConfig
	FallbackEnabled bool
	RetryAttempts   int
	RetryDelay      time.Duration
	Timeout         time.Duration
}

// ProviderConfig holds configuration for a single completion provider.
type ProviderConfig struct {
	Name        string  `mapstructure:"name"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// MatchingConfig controls how a specialty is chosen for a recommendation.
// Strategy is "completion", "compose" or "symptoms".
type MatchingConfig struct {
	Strategy  string
	CacheSize int
	CacheTTL  time.Duration
}

type ChatConfig struct {
	MessageCap   int
	HistoryLimit int
}

type RateLimitConfig struct {
	PerMinute int
}

// Load loads configuration using Viper.
// Config file name: config.yaml, searched in ./config, . and /etc/docseek/
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/docseek/")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Environment.Name = v.GetString("environment.name")
	cfg.HTTPServer.Port = v.GetInt("http_server.port")
	cfg.HTTPServer.Mode = v.GetString("http_server.mode")
	cfg.Logger.Level = v.GetString("logger.level")
	cfg.Logger.Mode = v.GetString("logger.mode")
	cfg.Logger.Encoding = v.GetString("logger.encoding")

	cfg.Database.Driver = strings.ToLower(v.GetString("database.driver"))
	cfg.Database.DSN = v.GetString("database.dsn")
	// DATABASE_URL is what most hosting platforms inject.
	if url := v.GetString("database_url"); url != "" {
		cfg.Database.DSN = url
	}
	cfg.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	cfg.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")
	cfg.Database.ConnMaxLifetime = v.GetDuration("database.conn_max_lifetime")
	cfg.Database.PingTimeout = v.GetDuration("database.ping_timeout")
	cfg.Database.NotifyChannel = v.GetString("database.notify_channel")

	cfg.Directory.Path = v.GetString("directory.path")

	cfg.LLM.FallbackEnabled = v.GetBool("llm.fallback_enabled")
	cfg.LLM.RetryAttempts = v.GetInt("llm.retry_attempts")
	cfg.LLM.RetryDelay = v.GetDuration("llm.retry_delay")
	cfg.LLM.Timeout = v.GetDuration("llm.timeout")
	if err := v.UnmarshalKey("llm.providers", &cfg.LLM.Providers); err != nil {
		return nil, fmt.Errorf("error reading llm.providers: %w", err)
	}
	// Without a providers section fall back to a single OpenAI provider
	// configured from the environment.
	if len(cfg.LLM.Providers) == 0 {
		cfg.LLM.Providers = []ProviderConfig{{
			Name:        "openai",
			APIKey:      v.GetString("openai_api_key"),
			BaseURL:     v.GetString("openai_base_url"),
			Model:       v.GetString("openai_model_chat"),
			Temperature: 0.2,
		}}
	}
	for i := range cfg.LLM.Providers {
		p := &cfg.LLM.Providers[i]
		p.Name = strings.ToLower(p.Name)
		if p.APIKey == "" {
			p.APIKey = v.GetString(p.Name + "_api_key")
		}
	}

	cfg.Matching.Strategy = strings.ToLower(v.GetString("matching.strategy"))
	cfg.Matching.CacheSize = v.GetInt("matching.cache_size")
	cfg.Matching.CacheTTL = v.GetDuration("matching.cache_ttl")

	cfg.Chat.MessageCap = v.GetInt("chat.message_cap")
	cfg.Chat.HistoryLimit = v.GetInt("chat.history_limit")

	cfg.RateLimit.PerMinute = v.GetInt("rate_limit.per_minute")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.Database.Driver {
	case "postgres", "pgx", "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database.driver %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn (or DATABASE_URL) must be set")
	}
	switch cfg.Matching.Strategy {
	case "completion", "compose", "symptoms":
	default:
		return fmt.Errorf("unsupported matching.strategy %q", cfg.Matching.Strategy)
	}
	for i, p := range cfg.LLM.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider %d: name is required", i)
		}
		if p.Model == "" {
			return fmt.Errorf("provider %s: model is required", p.Name)
		}
	}
	if cfg.Chat.MessageCap <= 0 {
		return fmt.Errorf("chat.message_cap must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment.name", "development")
	v.SetDefault("http_server.port", 8080)
	v.SetDefault("http_server.mode", "debug")
	v.SetDefault("logger.level", "debug")
	v.SetDefault("logger.mode", "development")
	v.SetDefault("logger.encoding", "console")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/docseek.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ping_timeout", "5s")
	v.SetDefault("database.notify_channel", "docseek_recommendations")

	v.SetDefault("openai_model_chat", "gpt-4o")
	v.SetDefault("llm.fallback_enabled", true)
	v.SetDefault("llm.retry_attempts", 3)
	v.SetDefault("llm.retry_delay", "500ms")
	v.SetDefault("llm.timeout", "30s")

	v.SetDefault("matching.strategy", "completion")
	v.SetDefault("matching.cache_size", 256)
	v.SetDefault("matching.cache_ttl", "10m")

	// Default message cap is 50
	v.SetDefault("chat.message_cap", 50)
	v.SetDefault("chat.history_limit", 50)

	v.SetDefault("rate_limit.per_minute", 60)
}
