package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"forex-arb/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Publisher  PublisherConfig  `mapstructure:"publisher"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SubscriberConfig governs the UDP subscription to the quote provider.
type SubscriberConfig struct {
	ProviderAddr      string        `mapstructure:"provider_addr"`
	ListenAddr        string        `mapstructure:"listen_addr"`
	BufferSize        int           `mapstructure:"buffer_size"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	SubscriptionPhase time.Duration `mapstructure:"subscription_phase"`
}

// EngineConfig tunes the detection pipeline.
type EngineConfig struct {
	AnchorCurrency  string        `mapstructure:"anchor_currency"`
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	StartingAmount  float64       `mapstructure:"starting_amount"`
}

// PublisherConfig governs the demo quote provider.
type PublisherConfig struct {
	ListenAddr string        `mapstructure:"listen_addr"`
	Interval   time.Duration `mapstructure:"interval"`
	BatchSize  int           `mapstructure:"batch_size"`
	Currencies []string      `mapstructure:"currencies"`
	Seed       int64         `mapstructure:"seed"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARBWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "arbwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("subscriber.provider_addr", "127.0.0.1:10203")
	v.SetDefault("subscriber.listen_addr", "127.0.0.1:10000")
	v.SetDefault("subscriber.buffer_size", 4096)
	v.SetDefault("subscriber.idle_timeout", "10s")
	v.SetDefault("subscriber.subscription_phase", "10m")

	v.SetDefault("engine.anchor_currency", "USD")
	v.SetDefault("engine.freshness_window", "1500ms")
	v.SetDefault("engine.starting_amount", 100.0)

	v.SetDefault("publisher.listen_addr", "127.0.0.1:10203")
	v.SetDefault("publisher.interval", "250ms")
	v.SetDefault("publisher.batch_size", 8)
	v.SetDefault("publisher.currencies", []string{"USD", "EUR", "GBP", "JPY", "CHF", "AUD"})

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Subscriber.ProviderAddr == "" {
		return fmt.Errorf("subscriber.provider_addr is required")
	}
	if c.Subscriber.ListenAddr == "" {
		return fmt.Errorf("subscriber.listen_addr is required")
	}
	if c.Subscriber.BufferSize <= 0 {
		return fmt.Errorf("subscriber.buffer_size must be greater than zero")
	}
	if c.Subscriber.IdleTimeout <= 0 {
		return fmt.Errorf("subscriber.idle_timeout must be greater than zero")
	}
	if len(c.Engine.AnchorCurrency) != 3 {
		return fmt.Errorf("engine.anchor_currency must be a 3-letter code")
	}
	if c.Engine.FreshnessWindow <= 0 {
		return fmt.Errorf("engine.freshness_window must be greater than zero")
	}
	if c.Engine.StartingAmount <= 0 {
		return fmt.Errorf("engine.starting_amount must be greater than zero")
	}
	if c.Publisher.BatchSize <= 0 {
		return fmt.Errorf("publisher.batch_size must be greater than zero")
	}
	if len(c.Publisher.Currencies) < 2 {
		return fmt.Errorf("publisher.currencies needs at least two codes")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
