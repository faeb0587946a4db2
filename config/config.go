// Package config loads server configuration from flags with environment
// overrides. Flags win over environment variables, which win over the
// built-in defaults.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend names.
const (
	BackendPoll       = "poll"
	BackendNotify     = "notify"
	BackendThreadPool = "threadpool"
)

// Config holds all server configuration.
type Config struct {
	Bind    string `env:"C10K_BIND"`
	Port    int    `env:"C10K_PORT"`
	DocRoot string `env:"C10K_DOC_ROOT"`
	Backend string `env:"C10K_BACKEND"`

	MaxConnections int           `env:"C10K_MAX_CONNECTIONS"`
	Preallocate    bool          `env:"C10K_PREALLOCATE"`
	IdleTimeout    time.Duration `env:"C10K_IDLE_TIMEOUT"`

	Workers          int           `env:"C10K_WORKERS"`
	QueueSize        int           `env:"C10K_QUEUE_SIZE"`
	KeepAliveMax     int           `env:"C10K_KEEPALIVE_MAX"`
	KeepAliveTimeout time.Duration `env:"C10K_KEEPALIVE_TIMEOUT"`

	StatsInterval time.Duration `env:"C10K_STATS_INTERVAL"`
	AdminAddr     string        `env:"C10K_ADMIN_ADDR"`
	LogLevel      string        `env:"C10K_LOG_LEVEL"`
}

func defaults() *Config {
	return &Config{
		Bind:             "",
		Port:             8080,
		Backend:          BackendNotify,
		MaxConnections:   50000,
		Workers:          200,
		QueueSize:        10000,
		KeepAliveMax:     100,
		KeepAliveTimeout: 5 * time.Second,
		StatsInterval:    10 * time.Second,
		LogLevel:         "info",
	}
}

// Load builds the configuration from the given argument list (excluding the
// program name).
func Load(args []string) (*Config, error) {
	cfg := defaults()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	fs := flag.NewFlagSet("c10kd", flag.ContinueOnError)
	fs.StringVar(&cfg.Bind, "bind", cfg.Bind, "bind address (empty: all interfaces)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	fs.StringVar(&cfg.DocRoot, "root", cfg.DocRoot, "document root (required)")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "concurrency backend: poll, notify or threadpool")
	fs.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "reactor connection pool capacity")
	fs.BoolVar(&cfg.Preallocate, "preallocate", cfg.Preallocate, "allocate all connection buffers at startup")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "reactor idle connection timeout (0 disables)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "thread pool worker count")
	fs.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "thread pool pending connection cap")
	fs.IntVar(&cfg.KeepAliveMax, "keepalive-max", cfg.KeepAliveMax, "max requests per keep-alive connection")
	fs.DurationVar(&cfg.KeepAliveTimeout, "keepalive-timeout", cfg.KeepAliveTimeout, "keep-alive read timeout")
	fs.DurationVar(&cfg.StatsInterval, "stats-interval", cfg.StatsInterval, "stats log interval")
	fs.StringVar(&cfg.AdminAddr, "admin-addr", cfg.AdminAddr, "admin endpoint address (empty disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.DocRoot == "" {
		return fmt.Errorf("config: document root is required (-root or C10K_DOC_ROOT)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	switch c.Backend {
	case BackendPoll, BackendNotify, BackendThreadPool:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("config: max-connections must be positive")
	}
	if c.Workers <= 0 || c.QueueSize <= 0 {
		return fmt.Errorf("config: workers and queue-size must be positive")
	}
	if c.KeepAliveMax <= 0 {
		return fmt.Errorf("config: keepalive-max must be positive")
	}
	return nil
}
