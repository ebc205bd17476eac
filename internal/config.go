package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Ledger        LedgerConfig        `mapstructure:"ledger"`
	PendingStore  PendingStoreConfig  `mapstructure:"pending_store"`
	Reconcile     ReconcileConfig     `mapstructure:"reconcile"`
	Events        EventsConfig        `mapstructure:"events"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" env:"HTTP_PORT" envDefault:"8080"`
	BaseURL           string        `mapstructure:"base_url" env:"HTTP_BASE_URL"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	Source          string        `mapstructure:"source" env:"DATABASE_URL"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" env:"REDIS_ADDR"`
	Password string `mapstructure:"password" env:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"db" env:"REDIS_DB"`
}

type SecurityConfig struct {
	// JWTSecret verifies bearer tokens issued by the identity provider.
	JWTSecret   string `mapstructure:"jwt_secret" env:"JWT_SECRET"`
	RequireAuth bool   `mapstructure:"require_auth" env:"REQUIRE_AUTH" envDefault:"true"`
}

type GatewayConfig struct {
	CreatePath string `mapstructure:"create_path" env:"CREATE_PATH"`
	StatusPath string `mapstructure:"status_path" env:"STATUS_PATH"`
}

type PaymentConfig struct {
	BackendURL     string        `mapstructure:"backend_url" env:"PAYMENT_BACKEND_URL"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" env:"PAYMENT_REQUEST_TIMEOUT" envDefault:"30s"`
	GatewayA       GatewayConfig `mapstructure:"gateway_a" envPrefix:"PAYMENT_GATEWAY_A_"`
	GatewayB       GatewayConfig `mapstructure:"gateway_b" envPrefix:"PAYMENT_GATEWAY_B_"`
}

type LedgerConfig struct {
	Path           string        `mapstructure:"path" env:"LEDGER_PATH" envDefault:"/wallet-actions"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" env:"LEDGER_REQUEST_TIMEOUT" envDefault:"30s"`
}

type PendingStoreConfig struct {
	Driver string `mapstructure:"driver" env:"PENDING_STORE_DRIVER" envDefault:"postgres"`
	// TTL only applies to the redis driver. Zero keeps a record until it settles or is dismissed.
	TTL time.Duration `mapstructure:"ttl" env:"PENDING_STORE_TTL" envDefault:"0s"`
}

type ReconcileConfig struct {
	Interval    time.Duration `mapstructure:"interval" env:"RECONCILE_INTERVAL" envDefault:"30s"`
	MaxAttempts int           `mapstructure:"max_attempts" env:"RECONCILE_MAX_ATTEMPTS" envDefault:"20"`
}

type EventsConfig struct {
	NATSURL       string `mapstructure:"nats_url" env:"NATS_URL"`
	SubjectPrefix string `mapstructure:"subject_prefix" env:"NATS_SUBJECT_PREFIX" envDefault:"wallet"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `mapstructure:"path" env:"METRICS_PATH" envDefault:"/metrics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LOG_LEVEL" envDefault:"info"`
	Format string `mapstructure:"format" env:"LOG_FORMAT" envDefault:"json"`
}

// LoadConfigFromEnv builds the configuration purely from environment variables (container deployments).
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Payment.applyGatewayDefaults()
	return &cfg, nil
}

// ----------------- DEFAULTS -----------------

func (c *PaymentConfig) applyGatewayDefaults() {
	if c.GatewayA.CreatePath == "" {
		c.GatewayA.CreatePath = "/gateway-a/create-payment"
	}
	if c.GatewayA.StatusPath == "" {
		c.GatewayA.StatusPath = "/gateway-a/check-status"
	}
	if c.GatewayB.CreatePath == "" {
		c.GatewayB.CreatePath = "/gateway-b/create-payment"
	}
}

// ApplyDefaults fills values a config file may leave out.
func (c *Config) ApplyDefaults() {
	c.Payment.applyGatewayDefaults()
	if c.Payment.RequestTimeout <= 0 {
		c.Payment.RequestTimeout = 30 * time.Second
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "/wallet-actions"
	}
	if c.Ledger.RequestTimeout <= 0 {
		c.Ledger.RequestTimeout = 30 * time.Second
	}
	if c.PendingStore.Driver == "" {
		c.PendingStore.Driver = "postgres"
	}
	if c.Reconcile.Interval <= 0 {
		c.Reconcile.Interval = 30 * time.Second
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = "wallet"
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if err := c.PendingStore.Validate(c); err != nil {
		errs = append(errs, fmt.Sprintf("pending store config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if c.RequireAuth && len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters when auth is required")
	}
	return nil
}

func (c *PaymentConfig) Validate() error {
	if c.BackendURL == "" {
		return errors.New("backend_url is required")
	}
	if _, err := url.ParseRequestURI(c.BackendURL); err != nil {
		return fmt.Errorf("invalid backend_url: %w", err)
	}
	if c.GatewayA.CreatePath == "" || c.GatewayB.CreatePath == "" {
		return errors.New("every gateway needs a create_path")
	}
	return nil
}

func (c *PendingStoreConfig) Validate(cfg *Config) error {
	switch c.Driver {
	case "memory":
		return nil
	case "postgres", "sqlite":
		if cfg.Database.Source == "" {
			return fmt.Errorf("database.source is required for driver %s", c.Driver)
		}
		return nil
	case "redis":
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr is required for driver redis")
		}
		return nil
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
}
