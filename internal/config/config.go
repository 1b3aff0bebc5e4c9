package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"order_syncer/internal/domain"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	Server   ServerConfig   `yaml:"server"`
	Channels ChannelsConfig `yaml:"channels"`
	Sync     SyncConfig     `yaml:"sync"`
	LogLevel string         `yaml:"log_level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// RedisConfig backs the per-channel run lease. An empty Addr disables
// the lease entirely.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LeaseTTL time.Duration `yaml:"lease_ttl"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	TriggerSecret string `yaml:"trigger_secret"`
}

type ChannelsConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Carrier CarrierConfig `yaml:"carrier"`
	MarketA MarketAConfig `yaml:"marketa"`
	MarketB MarketBConfig `yaml:"marketb"`
	Sheet   SheetConfig   `yaml:"sheet"`
}

// A channel counts as configured when its base URL (or file path) is
// set; unconfigured channels are simply not wired at startup.
type CarrierConfig struct {
	BaseURL  string `yaml:"base_url"`
	AuthURL  string `yaml:"auth_url"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func (c CarrierConfig) Configured() bool { return c.BaseURL != "" }

type MarketAConfig struct {
	BaseURL    string  `yaml:"base_url"`
	AuthURL    string  `yaml:"auth_url"`
	AppID      string  `yaml:"app_id"`
	AppSecret  string  `yaml:"app_secret"`
	TaxDivisor float64 `yaml:"tax_divisor"`
}

func (c MarketAConfig) Configured() bool { return c.BaseURL != "" }

type MarketBConfig struct {
	BaseURL   string `yaml:"base_url"`
	AuthURL   string `yaml:"auth_url"`
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"app_secret"`
}

func (c MarketBConfig) Configured() bool { return c.BaseURL != "" }

type SheetConfig struct {
	Path string `yaml:"path"`
}

func (c SheetConfig) Configured() bool { return c.Path != "" }

type SyncConfig struct {
	Interval             time.Duration `yaml:"interval"`
	CancellationInterval time.Duration `yaml:"cancellation_interval"`
	RunTimeout           time.Duration `yaml:"run_timeout"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "order_syncer"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "enrichment"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "geo_enrichment"
	}
	if c.Redis.LeaseTTL == 0 {
		c.Redis.LeaseTTL = 10 * time.Minute
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Channels.Timeout == 0 {
		c.Channels.Timeout = 30 * time.Second
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 30 * time.Minute
	}
	if c.Sync.CancellationInterval == 0 {
		c.Sync.CancellationInterval = 6 * time.Hour
	}
	if c.Sync.RunTimeout == 0 {
		c.Sync.RunTimeout = 10 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate fails before any network call when a required field is
// absent, so a misconfigured deploy dies at startup instead of mid-run.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database.host: %w", domain.ErrConfigurationMissing)
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user: %w", domain.ErrConfigurationMissing)
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database.dbname: %w", domain.ErrConfigurationMissing)
	}

	if c.Channels.Carrier.Configured() {
		if c.Channels.Carrier.AuthURL == "" {
			return fmt.Errorf("channels.carrier.auth_url: %w", domain.ErrConfigurationMissing)
		}
		if c.Channels.Carrier.Email == "" || c.Channels.Carrier.Password == "" {
			return fmt.Errorf("channels.carrier credentials: %w", domain.ErrConfigurationMissing)
		}
	}
	if c.Channels.MarketA.Configured() {
		if c.Channels.MarketA.AuthURL == "" {
			return fmt.Errorf("channels.marketa.auth_url: %w", domain.ErrConfigurationMissing)
		}
		if c.Channels.MarketA.AppID == "" || c.Channels.MarketA.AppSecret == "" {
			return fmt.Errorf("channels.marketa credentials: %w", domain.ErrConfigurationMissing)
		}
	}
	if c.Channels.MarketB.Configured() {
		if c.Channels.MarketB.AuthURL == "" {
			return fmt.Errorf("channels.marketb.auth_url: %w", domain.ErrConfigurationMissing)
		}
		if c.Channels.MarketB.AppID == "" || c.Channels.MarketB.AppSecret == "" {
			return fmt.Errorf("channels.marketb credentials: %w", domain.ErrConfigurationMissing)
		}
	}

	if c.Server.TriggerSecret == "" {
		return fmt.Errorf("server.trigger_secret: %w", domain.ErrConfigurationMissing)
	}
	return nil
}
