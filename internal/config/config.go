package config

import "time"

// Identity backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	IdentityBackend string `mapstructure:"identity_backend" yaml:"identity_backend"`
	DatabasePath    string `mapstructure:"database_path" yaml:"database_path"`
	RedisAddr       string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPrefix     string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
	IdentityKey     string `mapstructure:"identity_key" yaml:"identity_key"`

	JWTSecret     string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer     string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience   string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`

	SeedFixtures        bool  `mapstructure:"seed_fixtures" yaml:"seed_fixtures"`
	HistorySeedSize     int   `mapstructure:"history_seed_size" yaml:"history_seed_size"`
	WSMessagesPerMinute int   `mapstructure:"ws_messages_per_minute" yaml:"ws_messages_per_minute"`
	MaxMessageBytes     int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                ":8080",
		ReadHeaderTimeout:   5 * time.Second,
		ShutdownTimeout:     5 * time.Second,
		LogLevel:            "info",
		IdentityBackend:     BackendSQLite,
		DatabasePath:        "chatrooms.db",
		RedisAddr:           "localhost:6379",
		RedisPrefix:         "chatrooms:identity:",
		IdentityKey:         "user",
		JWTSecret:           "change-me",
		JWTIssuer:           "chatrooms",
		JWTAudience:         "chatrooms",
		SessionTTL:          24 * time.Hour,
		SweepInterval:       time.Minute,
		SeedFixtures:        true,
		HistorySeedSize:     15,
		WSMessagesPerMinute: 120,
		MaxMessageBytes:     1 << 20,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Boolean fields are left alone since false is indistinguishable from unset.
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
	if other.IdentityBackend != "" {
		c.IdentityBackend = other.IdentityBackend
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.RedisAddr != "" {
		c.RedisAddr = other.RedisAddr
	}
	if other.RedisPrefix != "" {
		c.RedisPrefix = other.RedisPrefix
	}
	if other.IdentityKey != "" {
		c.IdentityKey = other.IdentityKey
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.SessionTTL != 0 {
		c.SessionTTL = other.SessionTTL
	}
	if other.SweepInterval != 0 {
		c.SweepInterval = other.SweepInterval
	}
	if other.HistorySeedSize != 0 {
		c.HistorySeedSize = other.HistorySeedSize
	}
	if other.WSMessagesPerMinute != 0 {
		c.WSMessagesPerMinute = other.WSMessagesPerMinute
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
}
