package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is built once by Load and
// passed explicitly to every component that needs it.
type Config struct {
	App       App       `mapstructure:"app"`
	Logging   Logging   `mapstructure:"logging"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Cache     Cache     `mapstructure:"cache"`
	AI        AI        `mapstructure:"ai"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
	Analytics Analytics `mapstructure:"analytics"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	AdminEmail string `mapstructure:"admin_email"`
	ConfigFile string `mapstructure:"config_file"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	APIToken        string        `mapstructure:"api_token"`
	CORS            CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin settings
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Database holds Postgres configuration
type Database struct {
	ConnectionString string        `mapstructure:"connection_string"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
}

// Cache holds content cache configuration. Driver is redis, sqlite or memory.
type Cache struct {
	Enabled    bool          `mapstructure:"enabled"`
	Driver     string        `mapstructure:"driver"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	RedisAddr  string        `mapstructure:"redis_addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ContentTTL time.Duration `mapstructure:"content_ttl"`
}

// AI holds model provider configuration
type AI struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Gemini GeminiConfig `mapstructure:"gemini"`
	Fal    FalConfig    `mapstructure:"fal"`
}

// OpenAIConfig configures the caption model. Leaving both prices empty uses
// the built-in list price for Model.
type OpenAIConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Temperature      float32       `mapstructure:"temperature"`
	InputPricePer1K  string        `mapstructure:"input_price_per_1k"`
	OutputPricePer1K string        `mapstructure:"output_price_per_1k"`
}

// GeminiConfig configures the research grading model
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FalConfig configures the hosted image-edit queue
type FalConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	QueueURL     string        `mapstructure:"queue_url"`
	Model        string        `mapstructure:"model"`
	OutputFormat string        `mapstructure:"output_format"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxWait      time.Duration `mapstructure:"max_wait"`
	CostPerImage string        `mapstructure:"cost_per_image"`
}

// Pipeline holds content pipeline settings. With BlockOnFailure off a failed
// checkpoint is logged and the run continues.
type Pipeline struct {
	Platforms       []string      `mapstructure:"platforms"`
	MaxCars         int           `mapstructure:"max_cars"`
	ContentValidity time.Duration `mapstructure:"content_validity"`
	BlockOnFailure  bool          `mapstructure:"block_on_failure"`
	RateLimit       RateLimit     `mapstructure:"rate_limit"`
}

// RateLimit throttles pipeline runs per user. Disabled means every run is allowed.
type RateLimit struct {
	Enabled     bool    `mapstructure:"enabled"`
	RunsPerHour float64 `mapstructure:"runs_per_hour"`
	Burst       int     `mapstructure:"burst"`
}

// Analytics holds product analytics settings
type Analytics struct {
	PostHog PostHogConfig `mapstructure:"posthog"`
}

// PostHogConfig configures PostHog event capture
type PostHogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Host    string `mapstructure:"host"`
}

// Load loads the configuration from the .env file, the config file and the environment.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".dealerstudio")
		v.SetConfigType("yaml")
	}

	setDefaults(v)
	bindEnvironmentVariables(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.App.ConfigFile = v.ConfigFileUsed()

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	// Content runs are sequential model calls; the write timeout has to cover a whole run.
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.enabled", false)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.sqlite_path", ".dealerstudio-cache/content.db")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.content_ttl", "1h")

	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.timeout", "60s")
	v.SetDefault("ai.openai.max_tokens", 600)
	v.SetDefault("ai.openai.temperature", 0.8)

	v.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	v.SetDefault("ai.gemini.timeout", "30s")

	v.SetDefault("ai.fal.queue_url", "https://queue.fal.run")
	v.SetDefault("ai.fal.model", "fal-ai/nano-banana/edit")
	v.SetDefault("ai.fal.output_format", "jpeg")
	v.SetDefault("ai.fal.poll_interval", "2s")
	v.SetDefault("ai.fal.max_wait", "3m")
	v.SetDefault("ai.fal.cost_per_image", "0.039")

	v.SetDefault("pipeline.platforms", []string{"instagram", "facebook", "linkedin", "whatsapp"})
	v.SetDefault("pipeline.max_cars", 5)
	v.SetDefault("pipeline.content_validity", "168h")
	v.SetDefault("pipeline.block_on_failure", true)
	v.SetDefault("pipeline.rate_limit.enabled", false)
	v.SetDefault("pipeline.rate_limit.runs_per_hour", 6)
	v.SetDefault("pipeline.rate_limit.burst", 2)

	v.SetDefault("analytics.posthog.enabled", false)
	v.SetDefault("analytics.posthog.host", "https://app.posthog.com")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables(v *viper.Viper) {
	bindEnvKeys(v, "ai.openai.api_key", []string{"OPENAI_API_KEY"})
	bindEnvKeys(v, "ai.gemini.api_key", []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"})
	bindEnvKeys(v, "ai.fal.api_key", []string{"FAL_KEY", "FAL_API_KEY"})
	bindEnvKeys(v, "database.connection_string", []string{"DATABASE_URL", "POSTGRES_URL"})
	bindEnvKeys(v, "cache.redis_addr", []string{"REDIS_ADDR", "REDIS_URL"})
	bindEnvKeys(v, "cache.password", []string{"REDIS_PASSWORD"})
	bindEnvKeys(v, "server.api_token", []string{"API_TOKEN", "LEGACY_BEARER_TOKEN"})
	bindEnvKeys(v, "app.admin_email", []string{"ADMIN_EMAIL"})
	bindEnvKeys(v, "analytics.posthog.api_key", []string{"POSTHOG_API_KEY"})
	bindEnvKeys(v, "app.debug", []string{"DEBUG", "DEALERSTUDIO_DEBUG"})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(v *viper.Viper, key string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			v.Set(key, value)
			return
		}
	}
}

// validateConfig ensures configuration values are usable. Missing API keys
// are not errors here: each command checks the providers it needs.
func validateConfig(cfg *Config) error {
	var errors []string

	if cfg.Cache.ContentTTL <= 0 {
		errors = append(errors, "cache.content_ttl must be positive")
	}
	switch cfg.Cache.Driver {
	case "redis", "sqlite", "memory":
	default:
		errors = append(errors, fmt.Sprintf("unknown cache.driver %q (want redis, sqlite or memory)", cfg.Cache.Driver))
	}
	if cfg.Cache.Enabled && cfg.Cache.Driver == "redis" && cfg.Cache.RedisAddr == "" {
		errors = append(errors, "cache.redis_addr is required when cache.driver is redis")
	}
	if cfg.Pipeline.ContentValidity <= 0 {
		errors = append(errors, "pipeline.content_validity must be positive")
	}
	if cfg.AI.Fal.PollInterval <= 0 || cfg.AI.Fal.MaxWait < cfg.AI.Fal.PollInterval {
		errors = append(errors, "ai.fal.poll_interval must be positive and not exceed ai.fal.max_wait")
	}
	if cfg.Pipeline.RateLimit.Enabled && cfg.Pipeline.RateLimit.RunsPerHour <= 0 {
		errors = append(errors, "pipeline.rate_limit.runs_per_hour must be positive when rate limiting is enabled")
	}
	for _, p := range cfg.Pipeline.Platforms {
		switch strings.ToLower(p) {
		case "instagram", "facebook", "linkedin", "whatsapp":
		default:
			errors = append(errors, fmt.Sprintf("unknown platform %q in pipeline.platforms", p))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// HasValidAPIKey returns true if key is set and is not a placeholder
func HasValidAPIKey(key string) bool {
	if key == "" {
		return false
	}
	placeholders := []string{
		"your-api-key", "your-openai-key", "your-fal-key", "YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}
	for _, placeholder := range placeholders {
		if key == placeholder {
			return false
		}
	}
	return true
}
