package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Building BuildingConfig `mapstructure:"building"`
	Hazards  HazardsConfig  `mapstructure:"hazards"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Server   ServerConfig   `mapstructure:"server"`
}

type StorageConfig struct {
	Driver   string         `mapstructure:"driver"`
	Path     string         `mapstructure:"path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Memgraph MemgraphConfig `mapstructure:"memgraph"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MemgraphConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// BuildingConfig names the building model imported when the store is empty.
// An empty file means the embedded reference building.
type BuildingConfig struct {
	File string `mapstructure:"file"`
}

type HazardsConfig struct {
	SweepInterval string `mapstructure:"sweep_interval"`
	DefaultTTL    string `mapstructure:"default_ttl"`
}

type AlertsConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook"`
	Stdout  StdoutConfig  `mapstructure:"stdout"`
}

type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type StdoutConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ServerConfig struct {
	Listen     string `mapstructure:"listen"`
	ReadOnly   bool   `mapstructure:"read_only"`
	APIToken   string `mapstructure:"api_token"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads the configuration from file and environment variables.
// Every key can be overridden with WAYFIND_<SECTION>_<KEY>, for example
// WAYFIND_SERVER_LISTEN.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".wayfind"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("wayfind")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("WAYFIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without one cannot be set from the environment.
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "./data/wayfind.db")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.memgraph.enabled", false)
	v.SetDefault("storage.memgraph.uri", "bolt://localhost:7687")
	v.SetDefault("storage.memgraph.username", "")
	v.SetDefault("storage.memgraph.password", "")
	v.SetDefault("building.file", "")
	v.SetDefault("hazards.sweep_interval", "30s")
	v.SetDefault("hazards.default_ttl", "0")
	v.SetDefault("alerts.stdout.enabled", true)
	v.SetDefault("alerts.webhook.enabled", false)
	v.SetDefault("alerts.webhook.url", "")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_only", false)
	v.SetDefault("server.api_token", "")
	v.SetDefault("server.cors_origin", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.expandEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnv resolves ${VAR} references in secret-bearing fields so they
// can stay out of the config file.
func (c *Config) expandEnv() {
	c.Server.APIToken = os.ExpandEnv(c.Server.APIToken)
	c.Storage.Postgres.DSN = os.ExpandEnv(c.Storage.Postgres.DSN)
	c.Storage.Memgraph.Password = os.ExpandEnv(c.Storage.Memgraph.Password)
	c.Alerts.Webhook.URL = os.ExpandEnv(c.Alerts.Webhook.URL)
	for k, v := range c.Alerts.Webhook.Headers {
		c.Alerts.Webhook.Headers[k] = os.ExpandEnv(v)
	}
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q (want sqlite or postgres)", c.Storage.Driver)
	}
	if c.Alerts.Webhook.Enabled && c.Alerts.Webhook.URL == "" {
		return fmt.Errorf("alerts.webhook.url is required when the webhook is enabled")
	}
	if _, err := c.Hazards.TTL(); err != nil {
		return err
	}
	return nil
}

// TTL parses hazards.default_ttl. "0" or empty means no expiry.
func (h HazardsConfig) TTL() (time.Duration, error) {
	if h.DefaultTTL == "" || h.DefaultTTL == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(h.DefaultTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid hazards.default_ttl %q: %w", h.DefaultTTL, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("hazards.default_ttl must not be negative, got %s", d)
	}
	return d, nil
}
