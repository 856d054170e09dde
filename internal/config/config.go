package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fevolq/money/internal/core"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Timezone  string          `mapstructure:"timezone"`
	DataDir   string          `mapstructure:"data_dir"`
	Worth     WorthConfig     `mapstructure:"worth"`
	Notifiers NotifiersConfig `mapstructure:"notifiers"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// WorthConfig controls valuation lookups.
type WorthConfig struct {
	// UseCache keeps resolved quotes for a minute so that bursts of
	// lookups do not hammer the upstream API.
	UseCache bool `mapstructure:"use_cache"`
}

type NotifiersConfig struct {
	Feishu     FeishuConfig     `mapstructure:"feishu"`
	ServerChan ServerChanConfig `mapstructure:"serverchan"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
}

type FeishuConfig struct {
	URL string `mapstructure:"url"`
}

type ServerChanConfig struct {
	Key string `mapstructure:"key"`
}

type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// JobsConfig lists cron expressions per scheduled task. Empty lists
// disable the task.
type JobsConfig struct {
	FundWorth    []string `mapstructure:"fund_worth"`
	StockWorth   []string `mapstructure:"stock_worth"`
	FundMonitor  []string `mapstructure:"fund_monitor"`
	StockMonitor []string `mapstructure:"stock_monitor"`
	FundHistory  []string `mapstructure:"fund_history"`
	StockHistory []string `mapstructure:"stock_history"`
	// Broadcast runs the monitor evaluations in dry mode and delivers
	// to websocket subscribers instead of push channels.
	Broadcast []string `mapstructure:"broadcast"`
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Timezone: "Asia/Shanghai",
		DataDir:  "data",
		Worth: WorthConfig{
			UseCache: true,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Type:    "localfs",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown timezone %q", c.Timezone))
	}
	return loc, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.DataDir == "" {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data_dir is required"))
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("archive path required for localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("s3 bucket required for s3 archive"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}

	return nil
}
