package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// JWTSecret switches handshake identity from query parameters to signed tokens.
	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	MaxMessageBytes     int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	ConnectionRateLimit int           `mapstructure:"connection_rate_limit" yaml:"connection_rate_limit"`
	MessageRateLimit    int           `mapstructure:"message_rate_limit" yaml:"message_rate_limit"`
	RateLimitWindow     time.Duration `mapstructure:"rate_limit_window" yaml:"rate_limit_window"`
	TypingTimeout       time.Duration `mapstructure:"typing_timeout" yaml:"typing_timeout"`
	TypingSweepInterval time.Duration `mapstructure:"typing_sweep_interval" yaml:"typing_sweep_interval"`
	HistoryDefaultLimit int           `mapstructure:"history_default_limit" yaml:"history_default_limit"`
	HistoryMaxLimit     int           `mapstructure:"history_max_limit" yaml:"history_max_limit"`
	EchoToSender        bool          `mapstructure:"echo_to_sender" yaml:"echo_to_sender"`
	ClientBuffer        int           `mapstructure:"client_buffer" yaml:"client_buffer"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                ":8080",
		ReadHeaderTimeout:   5 * time.Second,
		ShutdownTimeout:     5 * time.Second,
		LogLevel:            "info",
		DatabasePath:        "groupchat.db",
		JWTTTL:              24 * time.Hour,
		MaxMessageBytes:     16 * 1024,
		ConnectionRateLimit: 5,
		MessageRateLimit:    10,
		RateLimitWindow:     time.Minute,
		TypingTimeout:       5 * time.Second,
		TypingSweepInterval: time.Second,
		HistoryDefaultLimit: 50,
		HistoryMaxLimit:     100,
		ClientBuffer:        32,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
}

// JWTEnabled reports whether handshakes must carry a signed token.
func (c Config) JWTEnabled() bool {
	return c.JWTSecret != ""
}

// Validate checks values that would make the server misbehave.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.ConnectionRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("connection_rate_limit must be positive, got %d", c.ConnectionRateLimit))
	}
	if c.MessageRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("message_rate_limit must be positive, got %d", c.MessageRateLimit))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit_window must be positive, got %s", c.RateLimitWindow))
	}
	if c.TypingTimeout < 0 {
		errs = append(errs, fmt.Errorf("typing_timeout must not be negative, got %s", c.TypingTimeout))
	}
	if c.TypingTimeout > 0 && c.TypingSweepInterval <= 0 {
		errs = append(errs, errors.New("typing_sweep_interval must be positive when typing_timeout is set"))
	}
	if c.HistoryMaxLimit <= 0 {
		errs = append(errs, errors.New("history_max_limit must be positive"))
	}
	if c.HistoryDefaultLimit > c.HistoryMaxLimit {
		errs = append(errs, fmt.Errorf("history_default_limit %d exceeds history_max_limit %d", c.HistoryDefaultLimit, c.HistoryMaxLimit))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, errors.New("max_message_bytes must be positive"))
	}
	return errors.Join(errs...)
}
