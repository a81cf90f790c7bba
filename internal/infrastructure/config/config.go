package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	GigaChat    GigaChatConfig  `mapstructure:"gigachat"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Match       MatchConfig     `mapstructure:"match"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	MaxBodySize int64           `mapstructure:"max_body_size"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig describes the application itself.
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig describes the HTTP server.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// GigaChatConfig describes the generation backend.
type GigaChatConfig struct {
	OAuthURL   string        `mapstructure:"oauth_url"`
	APIURL     string        `mapstructure:"api_url"`
	Scope      string        `mapstructure:"scope"`
	AuthKey    string        `mapstructure:"auth_key"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	SSLVerify  bool          `mapstructure:"ssl_verify"`
}

// RedisConfig describes the recipe store connection.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MatchConfig tunes the reuse matcher and its candidate windows.
type MatchConfig struct {
	MinJaccard        float64 `mapstructure:"min_jaccard"`
	MinIntersection   int     `mapstructure:"min_intersection"`
	UserWindowLimit   int     `mapstructure:"user_window_limit"`
	GlobalWindowLimit int     `mapstructure:"global_window_limit"`
}

// RateLimitConfig describes request throttling.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig reads .env plus environment variables over the defaults.
func LoadConfig() (*Config, error) {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load()

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("gigachat.auth_key", "GIGACHAT_AUTH_KEY")
	viper.BindEnv("gigachat.oauth_url", "GIGACHAT_OAUTH_URL")
	viper.BindEnv("gigachat.api_url", "GIGACHAT_API_URL")
	viper.BindEnv("gigachat.scope", "GIGACHAT_SCOPE")
	viper.BindEnv("gigachat.model", "GIGACHAT_MODEL")
	viper.BindEnv("gigachat.timeout", "GIGACHAT_TIMEOUT")
	viper.BindEnv("gigachat.max_retries", "GIGACHAT_MAX_RETRIES")
	viper.BindEnv("gigachat.ssl_verify", "GIGACHAT_SSL_VERIFY")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskKey hides all but the edges of a secret for logging.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "plate-recipe-api")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	viper.SetDefault("gigachat.oauth_url", "https://ngw.devices.sberbank.ru:9443/api/v2/oauth")
	viper.SetDefault("gigachat.api_url", "https://gigachat.devices.sberbank.ru/api/v1")
	viper.SetDefault("gigachat.scope", "GIGACHAT_API_PERS")
	viper.SetDefault("gigachat.model", "GigaChat")
	viper.SetDefault("gigachat.timeout", "30s")
	viper.SetDefault("gigachat.max_retries", 3)
	viper.SetDefault("gigachat.ssl_verify", true)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("match.min_jaccard", 0.8)
	viper.SetDefault("match.min_intersection", 3)
	viper.SetDefault("match.user_window_limit", 150)
	viper.SetDefault("match.global_window_limit", 300)

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	viper.SetDefault("dedup_window", "1s")
	viper.SetDefault("max_body_size", 1<<20) // 1MB

	viper.SetDefault("log_level", "info")
}

func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}
	if config.GigaChat.MaxRetries <= 0 {
		return fmt.Errorf("gigachat max_retries must be positive")
	}
	if config.GigaChat.Timeout <= 0 {
		return fmt.Errorf("gigachat timeout must be positive")
	}
	if config.Match.MinJaccard <= 0 || config.Match.MinJaccard > 1 {
		return fmt.Errorf("match min_jaccard must be in (0, 1]")
	}
	if config.Match.UserWindowLimit <= 0 || config.Match.GlobalWindowLimit <= 0 {
		return fmt.Errorf("match window limits must be positive")
	}
	if config.RateLimit.Enabled && config.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate limit requests must be positive")
	}
	return nil
}
