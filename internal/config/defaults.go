package config

import (
	"github.com/LeJamon/goSwapd/internal/core/outbox"
	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/spf13/viper"
)

// setDefaults sets every default value
func setDefaults(v *viper.Viper) {
	// Engine defaults; accounts have no sensible default
	v.SetDefault("engine.base_fee", swap.DefaultBaseFee.String())
	v.SetDefault("engine.pending_timeout", swap.DefaultPendingTimeout.String())
	v.SetDefault("engine.cache_size", swap.DefaultCacheSize)

	// Database defaults
	v.SetDefault("database.backend", "pebble")
	v.SetDefault("database.path", "./data/swapd")
	v.SetDefault("database.cache_size", 64<<20)

	// Journal defaults
	v.SetDefault("journal.driver", "sqlite")
	v.SetDefault("journal.dsn", "./data/journal.db")
	v.SetDefault("journal.buffer", 1024)
	v.SetDefault("journal.timeout", "5s")

	// Outbox defaults
	ob := outbox.DefaultConfig()
	v.SetDefault("outbox.poll_interval", ob.PollInterval.String())
	v.SetDefault("outbox.initial_backoff", ob.InitialBackoff.String())
	v.SetDefault("outbox.max_backoff", ob.MaxBackoff.String())
	v.SetDefault("outbox.backoff_factor", ob.BackoffFactor)
	v.SetDefault("outbox.jitter", ob.JitterFactor)
	v.SetDefault("outbox.batch_size", ob.BatchSize)
	v.SetDefault("outbox.concurrency", ob.Concurrency)

	// Server defaults
	v.SetDefault("server.bind", "127.0.0.1")
	v.SetDefault("server.port", 5005)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.send_queue_limit", 256)

	// Registry defaults
	v.SetDefault("registry.timeout", "10s")

	v.SetDefault("log_level", "info")
}
