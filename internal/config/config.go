package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "MINISHOP_"

const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

type Config struct {
	App struct {
		Name            string        `koanf:"name"`
		Env             string        `koanf:"env"`
		HTTPAddr        string        `koanf:"http_addr"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"app"`

	Log struct {
		Level string `koanf:"level"`
		File  string `koanf:"file"`
	} `koanf:"log"`

	Store struct {
		Driver string `koanf:"driver"`
		MySQL  struct {
			DSN             string        `koanf:"dsn"`
			MaxOpenConns    int           `koanf:"max_open_conns"`
			MaxIdleConns    int           `koanf:"max_idle_conns"`
			ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
		} `koanf:"mysql"`
	} `koanf:"store"`

	// Redis is optional; an empty addr disables the webhook in-flight guard.
	Redis struct {
		Addr        string        `koanf:"addr"`
		Password    string        `koanf:"password"`
		InflightTTL time.Duration `koanf:"inflight_ttl"`
	} `koanf:"redis"`

	// Kafka is optional; without brokers lifecycle events stay in process.
	Kafka struct {
		Brokers []string `koanf:"brokers"`
		Topic   string   `koanf:"topic"`
	} `koanf:"kafka"`

	Webhook struct {
		Secret        string        `koanf:"secret"`
		Retention     time.Duration `koanf:"retention"`
		SweepInterval time.Duration `koanf:"sweep_interval"`
	} `koanf:"webhook"`

	Orders struct {
		ReleaseOnPaidCancel bool `koanf:"release_on_paid_cancel"`
	} `koanf:"orders"`

	Inventory struct {
		LowStockThreshold int `koanf:"low_stock_threshold"`
	} `koanf:"inventory"`

	Telemetry struct {
		OTLPEndpoint string `koanf:"otlp_endpoint"`
		Insecure     bool   `koanf:"insecure"`
	} `koanf:"telemetry"`
}

// Default holds the values used for keys no layer sets.
func Default() Config {
	var c Config
	c.App.Name = "minishop-inventory"
	c.App.Env = "dev"
	c.App.HTTPAddr = ":8080"
	c.App.ShutdownTimeout = 10 * time.Second
	c.Log.Level = "info"
	c.Store.Driver = StoreMemory
	c.Store.MySQL.MaxOpenConns = 16
	c.Store.MySQL.MaxIdleConns = 16
	c.Store.MySQL.ConnMaxLifetime = 30 * time.Minute
	c.Redis.InflightTTL = 30 * time.Second
	c.Kafka.Topic = "minishop.order-events"
	c.Webhook.Retention = 72 * time.Hour
	c.Webhook.SweepInterval = time.Hour
	c.Orders.ReleaseOnPaidCancel = true
	c.Inventory.LowStockThreshold = 5
	c.Telemetry.Insecure = true
	return c
}

// Load layers <dir>/base.yaml, then <dir>/<envName>.yaml when present, then
// MINISHOP_ environment variables (double underscore nests: MINISHOP_STORE__MYSQL__DSN).
func Load(dir, envName string) (Config, error) {
	k := koanf.New(".")

	// 1) base
	if err := k.Load(file.Provider(filepath.Join(dir, "base.yaml")), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) environment overlay (dev/staging/prod); optional for local runs
	if envName != "" {
		overlay := filepath.Join(dir, envName+".yaml")
		if _, err := os.Stat(overlay); err == nil {
			if err := k.Load(file.Provider(overlay), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", overlay, err)
			}
		}
	}

	// 3) environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if envName != "" && !k.Exists("app.env") {
		cfg.App.Env = envName
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.App.HTTPAddr == "" {
		errs = append(errs, errors.New("app.http_addr required"))
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreMySQL:
		if c.Store.MySQL.DSN == "" {
			errs = append(errs, errors.New("store.mysql.dsn required for the mysql driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q: want %s or %s", c.Store.Driver, StoreMemory, StoreMySQL))
	}
	if c.Webhook.Secret == "" {
		errs = append(errs, errors.New("webhook.secret required"))
	}
	if c.Webhook.Retention <= 0 {
		errs = append(errs, errors.New("webhook.retention must be positive"))
	}
	if c.Webhook.SweepInterval <= 0 {
		errs = append(errs, errors.New("webhook.sweep_interval must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic required when kafka.brokers is set"))
	}
	if c.Inventory.LowStockThreshold < 0 {
		errs = append(errs, errors.New("inventory.low_stock_threshold must be zero or greater"))
	}
	return errors.Join(errs...)
}
