package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/outbox"
	"github.com/LeJamon/goSwapd/internal/registry"
)

// RegistryConfig represents the [registry] section
// Each asset registry is reached over JSON-RPC. The endpoint listed under
// registry "default" serves registries without an entry of their own
type RegistryConfig struct {
	Endpoints      []EndpointConfig `toml:"endpoints" mapstructure:"endpoints"`
	NativeEndpoint string           `toml:"native_endpoint" mapstructure:"native_endpoint"`
	Timeout        time.Duration    `toml:"timeout" mapstructure:"timeout"`
}

// EndpointConfig is one [[registry.endpoints]] entry
type EndpointConfig struct {
	Registry string `toml:"registry" mapstructure:"registry"`
	URL      string `toml:"url" mapstructure:"url"`
}

// Client converts the section into a registry client configuration
func (r *RegistryConfig) Client() registry.ClientConfig {
	endpoints := make(map[string]string, len(r.Endpoints))
	for _, e := range r.Endpoints {
		endpoints[e.Registry] = e.URL
	}
	return registry.ClientConfig{
		Endpoints:      endpoints,
		NativeEndpoint: r.NativeEndpoint,
		Timeout:        r.Timeout,
	}
}

// Registries lists the configured registry ids. Only these accounts may
// report item transfers; the "default" entry names no registry.
func (r *RegistryConfig) Registries() []string {
	ids := make([]string, 0, len(r.Endpoints))
	for _, e := range r.Endpoints {
		if e.Registry != registry.DefaultEndpoint {
			ids = append(ids, e.Registry)
		}
	}
	return ids
}

// Validate performs validation on the registry configuration
func (r *RegistryConfig) Validate() error {
	seen := make(map[string]bool, len(r.Endpoints))
	for _, e := range r.Endpoints {
		if e.Registry == "" {
			return fmt.Errorf("registry endpoint without registry id")
		}
		if seen[e.Registry] {
			return fmt.Errorf("registry %s configured twice", e.Registry)
		}
		seen[e.Registry] = true
		if err := validateURL(e.URL); err != nil {
			return fmt.Errorf("registry %s: %w", e.Registry, err)
		}
	}
	if r.NativeEndpoint != "" {
		if err := validateURL(r.NativeEndpoint); err != nil {
			return fmt.Errorf("native_endpoint: %w", err)
		}
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("registry timeout must be positive, got %s", r.Timeout)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	return nil
}

// OutboxConfig represents the [outbox] section
type OutboxConfig struct {
	PollInterval   time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	InitialBackoff time.Duration `toml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `toml:"max_backoff" mapstructure:"max_backoff"`
	BackoffFactor  float64       `toml:"backoff_factor" mapstructure:"backoff_factor"`
	Jitter         float64       `toml:"jitter" mapstructure:"jitter"`
	BatchSize      int           `toml:"batch_size" mapstructure:"batch_size"`
	Concurrency    int           `toml:"concurrency" mapstructure:"concurrency"`
}

// Outbox converts the section into the outbox configuration
func (o *OutboxConfig) Outbox() outbox.Config {
	return outbox.Config{
		PollInterval:   o.PollInterval,
		InitialBackoff: o.InitialBackoff,
		MaxBackoff:     o.MaxBackoff,
		BackoffFactor:  o.BackoffFactor,
		JitterFactor:   o.Jitter,
		BatchSize:      o.BatchSize,
		Concurrency:    o.Concurrency,
	}
}

// Validate performs validation on the outbox configuration
func (o *OutboxConfig) Validate() error {
	if o.PollInterval <= 0 || o.InitialBackoff <= 0 {
		return fmt.Errorf("poll_interval and initial_backoff must be positive")
	}
	if o.MaxBackoff < o.InitialBackoff {
		return fmt.Errorf("max_backoff %s is below initial_backoff %s", o.MaxBackoff, o.InitialBackoff)
	}
	if o.BackoffFactor < 1 {
		return fmt.Errorf("backoff_factor must be at least 1, got %g", o.BackoffFactor)
	}
	if o.Jitter < 0 || o.Jitter > 1 {
		return fmt.Errorf("jitter must be within [0, 1], got %g", o.Jitter)
	}
	if o.BatchSize <= 0 || o.Concurrency <= 0 {
		return fmt.Errorf("batch_size and concurrency must be positive")
	}
	return nil
}
