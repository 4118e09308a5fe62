package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// ServerConfig represents the [server] section
// One listener serves JSON-RPC on "/", the event stream on "/ws" and
// metrics on "/metrics"
type ServerConfig struct {
	Bind         string        `toml:"bind" mapstructure:"bind"`
	Port         int           `toml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `toml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout" mapstructure:"write_timeout"`

	// SendQueueLimit bounds the events buffered per websocket subscriber
	SendQueueLimit int `toml:"send_queue_limit" mapstructure:"send_queue_limit"`
}

// Addr returns the host:port the server listens on
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// AuthConfig represents the [auth] section
type AuthConfig struct {
	Tokens []TokenConfig `toml:"tokens" mapstructure:"tokens"`
}

// TokenConfig maps a bearer token to the account it authenticates
type TokenConfig struct {
	Token   string `toml:"token" mapstructure:"token"`
	Account string `toml:"account" mapstructure:"account"`
}

// Accounts returns the token to account mapping
func (a *AuthConfig) Accounts() map[string]string {
	out := make(map[string]string, len(a.Tokens))
	for _, t := range a.Tokens {
		out[t.Token] = t.Account
	}
	return out
}

// Validate performs validation on the server configuration
func (s *ServerConfig) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", s.Port)
	}
	if s.Bind != "" && net.ParseIP(s.Bind) == nil && s.Bind != "localhost" {
		return fmt.Errorf("invalid bind address: %s", s.Bind)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	if s.SendQueueLimit < 0 {
		return fmt.Errorf("send_queue_limit must be non-negative, got %d", s.SendQueueLimit)
	}
	return nil
}

// Validate performs validation on the auth configuration
func (a *AuthConfig) Validate() error {
	seen := make(map[string]bool, len(a.Tokens))
	for i, t := range a.Tokens {
		if t.Token == "" || t.Account == "" {
			return fmt.Errorf("auth token %d needs token and account", i)
		}
		if seen[t.Token] {
			return fmt.Errorf("auth token %d is duplicated", i)
		}
		seen[t.Token] = true
	}
	return nil
}
