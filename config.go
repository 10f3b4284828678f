package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the server settings read from the environment.
type Config struct {
	Addr              string        `env:"ADDR" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"`
	MaxBodyBytes      int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	LogLevel          slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		MaxBodyBytes:      1 << 20,
		LogLevel:          slog.LevelInfo,
	}
}

// LoadConfig reads a .env file from the working directory, if there is one,
// and parses the environment into a Config. Variable names are prefixed with
// prefix, e.g. "APP_" turns ADDR into APP_ADDR.
func LoadConfig(prefix string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Middleware returns the layers implied by the configuration: a request
// body size limit and a request timeout, each only when set.
func (c Config) Middleware() []Middleware {
	var mw []Middleware
	if c.MaxBodyBytes > 0 {
		mw = append(mw, BodyLimit(c.MaxBodyBytes))
	}
	if c.RequestTimeout > 0 {
		mw = append(mw, Timeout(c.RequestTimeout))
	}
	return mw
}
