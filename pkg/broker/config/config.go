// Package config loads the broker-wide Config via pkg/config.Load,
// mirroring the env/.env-driven struct tags pkg/messaging's resilient
// config carries.
package config

import (
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/queue"
	"github.com/chris-alexander-pop/system-design-library/pkg/config"
)

// Config is the broker-wide set of defaults and process-level settings:
// listener address, persistence file paths, cluster mode, and per-queue
// defaults every component needs at startup.
type Config struct {
	ListenAddr string `env:"BROKER_LISTEN_ADDR" env-default:":9090"`

	RoutersFilePath string `env:"BROKER_ROUTERS_FILE" env-default:"routers.json"`
	QueuesFilePath  string `env:"BROKER_QUEUES_FILE" env-default:"queues.json"`

	ClusterReliable bool          `env:"BROKER_CLUSTER_RELIABLE" env-default:"false"`
	ClusterTimeout  time.Duration `env:"BROKER_CLUSTER_TIMEOUT" env-default:"5s"`

	DefaultMessageLimit     int           `env:"BROKER_DEFAULT_MESSAGE_LIMIT" env-default:"0"`
	DefaultMessageSizeLimit int           `env:"BROKER_DEFAULT_MESSAGE_SIZE_LIMIT" env-default:"0"`
	DefaultAckTimeout       time.Duration `env:"BROKER_DEFAULT_ACK_TIMEOUT" env-default:"30s"`

	DispatchWorkerPoolSize int `env:"BROKER_DISPATCH_WORKERS" env-default:"32"`
	DispatchQueueDepth     int `env:"BROKER_DISPATCH_QUEUE_DEPTH" env-default:"1024"`
}

// Load reads Config from .env/process environment, applying env-default
// tags and validator struct tags (pkg/config.Load[T]).
func Load() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultQueueOptions builds a queue.Options seeded from this broker
// config's defaults, for queues created without header overrides.
func (c *Config) DefaultQueueOptions() queue.Options {
	opts := queue.DefaultOptions()
	opts.MessageLimit = c.DefaultMessageLimit
	opts.MessageSizeLimit = c.DefaultMessageSizeLimit
	opts.AckTimeout = c.DefaultAckTimeout
	return opts
}
