package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
)

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	Driver        string `mapstructure:"driver" yaml:"driver" validate:"oneof=sqlite redis mongo"`
	SQLitePath    string `mapstructure:"sqlite_path" yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr" validate:"required_if=Driver redis"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db" validate:"gte=0"`
	MongoURI      string `mapstructure:"mongo_uri" yaml:"mongo_uri" validate:"required_if=Driver mongo"`
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database" validate:"required_if=Driver mongo"`
}

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// MaxMessageBytes caps a single inbound WebSocket frame.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes" validate:"gt=0"`
	// MessagesPerMinute limits inbound frames per connection; 0 disables the limit.
	MessagesPerMinute int `mapstructure:"messages_per_minute" yaml:"messages_per_minute" validate:"gte=0"`
	// ClientBuffer is the outbound event buffer per connection.
	ClientBuffer int           `mapstructure:"client_buffer" yaml:"client_buffer" validate:"gt=0"`
	StoreTimeout time.Duration `mapstructure:"store_timeout" yaml:"store_timeout"`

	JoinAttempts      int `mapstructure:"join_attempts" yaml:"join_attempts" validate:"gte=0"`
	MaxUsernameLength int `mapstructure:"max_username_length" yaml:"max_username_length" validate:"gte=0"`
	MaxContentLength  int `mapstructure:"max_content_length" yaml:"max_content_length" validate:"gte=0"`

	// AllowedOrigins are WebSocket origin patterns; empty accepts any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	Store StoreConfig `mapstructure:"store" yaml:"store"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		MaxMessageBytes:   64 << 10,
		MessagesPerMinute: 120,
		ClientBuffer:      64,
		StoreTimeout:      5 * time.Second,
		JoinAttempts:      3,
		MaxUsernameLength: 32,
		MaxContentLength:  4000,
		AllowedOrigins:    []string{},
		Store: StoreConfig{
			Driver:        DriverSQLite,
			SQLitePath:    "lobby.db",
			RedisAddr:     "localhost:6379",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "lobby",
		},
	}
}

var validate = validator.New()

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	return validate.Struct(c)
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
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.MessagesPerMinute != 0 {
		c.MessagesPerMinute = other.MessagesPerMinute
	}
	if other.ClientBuffer != 0 {
		c.ClientBuffer = other.ClientBuffer
	}
	if other.StoreTimeout != 0 {
		c.StoreTimeout = other.StoreTimeout
	}
	if other.JoinAttempts != 0 {
		c.JoinAttempts = other.JoinAttempts
	}
	if other.MaxUsernameLength != 0 {
		c.MaxUsernameLength = other.MaxUsernameLength
	}
	if other.MaxContentLength != 0 {
		c.MaxContentLength = other.MaxContentLength
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	c.Store.updateFrom(other.Store)
}

func (s *StoreConfig) updateFrom(other StoreConfig) {
	if other.Driver != "" {
		s.Driver = other.Driver
	}
	if other.SQLitePath != "" {
		s.SQLitePath = other.SQLitePath
	}
	if other.RedisAddr != "" {
		s.RedisAddr = other.RedisAddr
	}
	if other.RedisDB != 0 {
		s.RedisDB = other.RedisDB
	}
	if other.MongoURI != "" {
		s.MongoURI = other.MongoURI
	}
	if other.MongoDatabase != "" {
		s.MongoDatabase = other.MongoDatabase
	}
}
