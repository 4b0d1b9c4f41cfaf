package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Broker    BrokerConfig    `yaml:"broker"`
	Events    EventsConfig    `yaml:"events"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains the HTTP API and gRPC health listener settings
type ServerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	HealthPort         int    `yaml:"health_port"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains store connection settings
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" or "sqlite"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	Path     string `yaml:"path"` // sqlite file
}

// BrokerConfig contains AMQP settings shared by the publisher and the consumer
type BrokerConfig struct {
	URL                string          `yaml:"url"`
	Exchange           string          `yaml:"exchange"`
	IdentityExchange   string          `yaml:"identity_exchange"`
	IdentityQueue      string          `yaml:"identity_queue"`
	DeadLetterExchange string          `yaml:"dead_letter_exchange"`
	MessageTTLMs       int             `yaml:"message_ttl_ms"`
	Prefetch           int             `yaml:"prefetch"`
	DialTimeoutSec     int             `yaml:"dial_timeout_seconds"`
	Reconnect          ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig bounds the consumer's reconnect backoff
type ReconnectConfig struct {
	InitialDelayMs int `yaml:"initial_delay_ms"`
	MaxDelayMs     int `yaml:"max_delay_ms"`
	MaxAttempts    int `yaml:"max_attempts"`
}

// EventsConfig is stamped on every published envelope
type EventsConfig struct {
	Source      string `yaml:"source"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// JWTConfig contains the secret used to validate bearer tokens
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	CompleteExpiredCampaigns string `yaml:"complete_expired_campaigns"`
	ReconcileStatistics      string `yaml:"reconcile_statistics"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies environment overrides and
// defaults, then validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		c.Database.Path = val
	}

	// Broker
	if val := os.Getenv("AMQP_URL"); val != "" {
		c.Broker.URL = val
	}

	// Events
	if val := os.Getenv("EVENTS_ENVIRONMENT"); val != "" {
		c.Events.Environment = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Server.HealthPort == 0 && c.Server.Port > 0 {
		c.Server.HealthPort = c.Server.Port + 1
	}
	if c.Server.ShutdownTimeoutSec == 0 {
		c.Server.ShutdownTimeoutSec = 15
	}

	// Broker names follow the club service conventions
	if c.Broker.Exchange == "" {
		c.Broker.Exchange = "club_events"
	}
	if c.Broker.IdentityExchange == "" {
		c.Broker.IdentityExchange = "auth_events"
	}
	if c.Broker.IdentityQueue == "" {
		c.Broker.IdentityQueue = "club_identity_sync_queue"
	}
	if c.Broker.DeadLetterExchange == "" {
		c.Broker.DeadLetterExchange = "club_events.dlx"
	}
	if c.Broker.MessageTTLMs == 0 {
		c.Broker.MessageTTLMs = 86400000 // 24 hours
	}
	if c.Broker.Prefetch == 0 {
		c.Broker.Prefetch = 1
	}
	if c.Broker.DialTimeoutSec == 0 {
		c.Broker.DialTimeoutSec = 10
	}
	if c.Broker.Reconnect.InitialDelayMs == 0 {
		c.Broker.Reconnect.InitialDelayMs = 5000
	}
	if c.Broker.Reconnect.MaxDelayMs == 0 {
		c.Broker.Reconnect.MaxDelayMs = 60000
	}
	if c.Broker.Reconnect.MaxAttempts == 0 {
		c.Broker.Reconnect.MaxAttempts = 10
	}

	if c.Events.Source == "" {
		c.Events.Source = "club-service"
	}
	if c.Events.Version == "" {
		c.Events.Version = "1.0"
	}
	if c.Events.Environment == "" {
		c.Events.Environment = "development"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Scheduler.CompleteExpiredCampaigns == "" {
		c.Scheduler.CompleteExpiredCampaigns = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.ReconcileStatistics == "" {
		c.Scheduler.ReconcileStatistics = "0 0 * * * *" // hourly
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.HealthPort <= 0 || c.Server.HealthPort > 65535 {
		return fmt.Errorf("invalid health port: %d", c.Server.HealthPort)
	}

	// Database validation
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	// Broker validation
	if c.Broker.URL == "" {
		return fmt.Errorf("broker url is required")
	}
	if c.Broker.Reconnect.MaxDelayMs < c.Broker.Reconnect.InitialDelayMs {
		return fmt.Errorf("broker reconnect max delay must not be below the initial delay")
	}
	if c.Broker.Reconnect.MaxAttempts < 1 {
		return fmt.Errorf("broker reconnect attempts must be positive")
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	return nil
}

// GetDatabaseConnectionString returns the driver-specific data source name
func (c *Config) GetDatabaseConnectionString() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.Path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP API address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHealthAddress returns the gRPC health server address
func (c *Config) GetHealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HealthPort)
}

// DialTimeout returns the broker connection attempt timeout
func (b BrokerConfig) DialTimeout() time.Duration {
	return time.Duration(b.DialTimeoutSec) * time.Second
}

// MessageTTL returns the identity queue message TTL
func (b BrokerConfig) MessageTTL() time.Duration {
	return time.Duration(b.MessageTTLMs) * time.Millisecond
}

func (r ReconnectConfig) InitialDelay() time.Duration {
	return time.Duration(r.InitialDelayMs) * time.Millisecond
}

func (r ReconnectConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSec) * time.Second
}
