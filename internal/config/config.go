package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// Config holds application level configuration loaded from environment
// variables.
type Config struct {
	ServerPort string `env:"SERVER_PORT, default=8080"`
	Env        string `env:"ENV,         default=development"`
	LogLevel   string `env:"LOG_LEVEL,   default=info"`
	JWTSecret  string `env:"JWT_SECRET,  default=change-me"`

	MySQL MySQLConfig
	Redis RedisConfig
}

// MySQLConfig configures the authoritative relational store.
type MySQLConfig struct {
	DSN string `env:"MYSQL_DSN, default=user:password@tcp(localhost:3306)/taskboard?charset=utf8mb4&parseTime=True&loc=Local"`
}

// RedisConfig configures the best-effort cache.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
