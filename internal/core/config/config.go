package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Archer-177/HighCostAtWork/internal/inventory/transfers"

	"github.com/spf13/viper"
)

type TransferPolicy struct {
	BlockedRoutes []transfers.BlockedRoute `mapstructure:"blocked_routes"`
}

type Config struct {
	DatabaseURL    string         `mapstructure:"database_url"`
	AppHost        string         `mapstructure:"app_host"`
	JWTSecret      string         `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration  `mapstructure:"jwt_ttl"`
	LogLevel       string         `mapstructure:"log_level"`
	RedisAddr      string         `mapstructure:"redis_addr"`
	RedisPassword  string         `mapstructure:"redis_password"`
	RedisChannel   string         `mapstructure:"redis_channel"`
	RateLimit      string         `mapstructure:"rate_limit"`
	RequestTimeout time.Duration  `mapstructure:"request_timeout"`
	WriteQueueSize int            `mapstructure:"write_queue_size"`
	TransferPolicy TransferPolicy `mapstructure:"transfer_policy"`
}

// Load layers an optional config file under the environment. An empty path
// reads the environment alone.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database_url", "sqlite://vials.db")
	v.SetDefault("app_host", ":8080")
	v.SetDefault("jwt_ttl", 12*time.Hour)
	v.SetDefault("log_level", "info")
	v.SetDefault("redis_channel", "vials:low-stock")
	v.SetDefault("rate_limit", "300-M")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("write_queue_size", 64)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"database_url", "app_host", "jwt_secret", "jwt_ttl", "log_level", "redis_addr",
		"redis_password", "redis_channel", "rate_limit", "request_timeout", "write_queue_size",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.WriteQueueSize < 1 {
		return fmt.Errorf("WRITE_QUEUE_SIZE must be positive, got %d", c.WriteQueueSize)
	}
	for _, route := range c.TransferPolicy.BlockedRoutes {
		if err := route.Validate(); err != nil {
			return fmt.Errorf("transfer_policy: %w", err)
		}
	}
	return nil
}
