// Package infra handles configuration loading and infrastructure wiring.
package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/surveydash/pkg/audit"
	"github.com/ruslano69/surveydash/pkg/brokers"
	"github.com/ruslano69/surveydash/pkg/kpi"
	"github.com/ruslano69/surveydash/pkg/loader"
	"github.com/ruslano69/surveydash/pkg/resilience"
	"github.com/ruslano69/surveydash/pkg/retry"
)

// PasswordEnv is the fallback source of the dashboard password.
const PasswordEnv = "SURVEYDASH_PASSWORD"

// Config is the top-level configuration structure for surveydash.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Dataset  loader.Config  `yaml:"dataset"`
	Security SecurityConfig `yaml:"security"`
	Sessions SessionsConfig `yaml:"sessions"`
	Audit    AuditConfig    `yaml:"audit"`
	KPIs     kpi.Config     `yaml:"kpis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`            // default ":8501"
	ReadTimeout    time.Duration `yaml:"read_timeout"`    // default 10s
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // default 30s
	RequestTimeout time.Duration `yaml:"request_timeout"` // default 30s
	SecureCookie   bool          `yaml:"secure_cookie"`   // set Secure on the session cookie
	PageSize       int           `yaml:"page_size"`       // default responses per page, default 20
}

// SecurityConfig holds the shared password and process guard settings.
type SecurityConfig struct {
	Password      string        `yaml:"password"`       // override via SURVEYDASH_PASSWORD
	SessionTTL    time.Duration `yaml:"session_ttl"`    // 0 = sessions never expire
	AllowElevated bool          `yaml:"allow_elevated"` // permit running as root/Administrator
}

// SessionsConfig selects where authenticated sessions are kept.
type SessionsConfig struct {
	Backend string      `yaml:"backend"` // memory (default) or redis
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig is a minimal Redis connection spec.
type RedisConfig struct {
	Addr     string `yaml:"addr"`     // host:port
	Password string `yaml:"password"` // empty = no auth
	DB       int    `yaml:"db"`       // 0-based
}

// AuditConfig configures the audit trail and its appenders.
type AuditConfig struct {
	Enabled  bool                `yaml:"enabled"`
	Level    string              `yaml:"level"` // minimal, standard, full
	Async    bool                `yaml:"async"`
	Buffer   int                 `yaml:"buffer_size"`
	Log      bool                `yaml:"log"` // mirror entries into the application log
	File     FileAuditConfig     `yaml:"file"`
	Database DatabaseAuditConfig `yaml:"database"`
	Broker   BrokerAuditConfig   `yaml:"broker"`
	level    audit.Level
}

// FileAuditConfig is the rotating JSON-lines audit file.
type FileAuditConfig struct {
	Enabled                  bool `yaml:"enabled"`
	audit.FileAppenderConfig `yaml:",inline"`
}

// DatabaseAuditConfig is the SQL audit table.
type DatabaseAuditConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Driver    string        `yaml:"driver"` // sqlite, postgres, mysql
	DSN       string        `yaml:"dsn"`
	Table     string        `yaml:"table"`
	BatchSize int           `yaml:"batch_size"`
	Retention time.Duration `yaml:"retention"` // delete older entries at startup; 0 = keep
}

// BrokerAuditConfig publishes audit entries to Kafka or RabbitMQ.
type BrokerAuditConfig struct {
	Enabled        bool `yaml:"enabled"`
	brokers.Config `yaml:",inline"`
	ConnectTimeout time.Duration     `yaml:"connect_timeout"`
	Retry          retry.Config      `yaml:"retry"`
	Breaker        resilience.Config `yaml:"breaker"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // trace..fatal, default info
	Format string `yaml:"format"` // console (default) or json
}

// AuditLevel returns the parsed audit level (valid after LoadConfig/Validate).
func (a AuditConfig) AuditLevel() audit.Level {
	return a.level
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8501"
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Server.PageSize = 20
	cfg.Dataset = loader.DefaultConfig()
	cfg.Sessions.Backend = "memory"
	cfg.Audit.Level = "standard"
	cfg.Audit.Buffer = 1000
	cfg.Audit.Async = true
	cfg.Audit.File.Path = "logs/audit.log"
	cfg.Audit.Database.Driver = "sqlite"
	cfg.Audit.Database.Table = "audit_log"
	cfg.Audit.Broker.ConnectTimeout = 10 * time.Second
	cfg.Audit.Broker.Retry = retry.DefaultConfig()
	cfg.Audit.Broker.Breaker = resilience.DefaultConfig("audit-broker")
	cfg.KPIs = kpi.DefaultConfig()
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	return cfg
}

// LoadConfig reads and validates the YAML config at path, applying defaults.
// An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	// password: config file takes precedence; env var is the fallback
	if cfg.Security.Password == "" {
		cfg.Security.Password = os.Getenv(PasswordEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks the sections that are not validated by their own packages
// and normalises enum values.
func (c *Config) Validate() error {
	if err := c.Dataset.Validate(); err != nil {
		return err
	}

	c.Sessions.Backend = strings.ToLower(c.Sessions.Backend)
	switch c.Sessions.Backend {
	case "", "memory":
		c.Sessions.Backend = "memory"
	case "redis":
		if c.Sessions.Redis.Addr == "" {
			c.Sessions.Redis.Addr = "localhost:6379"
		}
	default:
		return fmt.Errorf("sessions.backend must be memory or redis, got %q", c.Sessions.Backend)
	}

	if c.Security.SessionTTL < 0 {
		return fmt.Errorf("security.session_ttl must be >= 0")
	}
	if c.Server.PageSize <= 0 {
		c.Server.PageSize = 20
	}

	level, err := audit.ParseLevel(c.Audit.Level)
	if err != nil {
		return fmt.Errorf("audit.level: %w", err)
	}
	c.Audit.level = level

	if c.Audit.Database.Enabled {
		switch c.Audit.Database.Driver {
		case "sqlite", "postgres", "mysql":
		default:
			return fmt.Errorf("audit.database.driver must be sqlite, postgres or mysql, got %q", c.Audit.Database.Driver)
		}
		if c.Audit.Database.DSN == "" {
			return fmt.Errorf("audit.database.dsn is required")
		}
	}
	if c.Audit.Broker.Enabled {
		if err := c.Audit.Broker.Retry.Validate(); err != nil {
			return fmt.Errorf("audit.broker.retry: %w", err)
		}
		if err := c.Audit.Broker.Breaker.Validate(); err != nil {
			return fmt.Errorf("audit.broker.breaker: %w", err)
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
