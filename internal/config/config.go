package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"hodlwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Asset     AssetConfig     `mapstructure:"asset"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Balance   BalanceConfig   `mapstructure:"balance"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the audit store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AlertRetention  time.Duration `mapstructure:"alert_retention"`
}

// AssetConfig identifies the tracked asset across providers.
type AssetConfig struct {
	Symbol      string `mapstructure:"symbol"`
	Pair        string `mapstructure:"pair"`
	CoingeckoID string `mapstructure:"coingecko_id"`
	Quote       string `mapstructure:"quote"`
}

// FeedConfig governs the price source chain.
type FeedConfig struct {
	PrimaryWSURL     string        `mapstructure:"primary_ws_url"`
	SecondaryWSURL   string        `mapstructure:"secondary_ws_url"`
	BinanceRestURL   string        `mapstructure:"binance_rest_url"`
	CoinbaseRestURL  string        `mapstructure:"coinbase_rest_url"`
	CoingeckoRestURL string        `mapstructure:"coingecko_rest_url"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	StatsInterval    time.Duration `mapstructure:"stats_interval"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	BufferCapacity   int           `mapstructure:"buffer_capacity"`
}

// BalanceConfig covers on-chain balance lookups.
type BalanceConfig struct {
	Addresses       []string      `mapstructure:"addresses"`
	RPCURL          string        `mapstructure:"rpc_url"`
	ExplorerURL     string        `mapstructure:"explorer_url"`
	ExplorerAPIKey  string        `mapstructure:"explorer_api_key"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// LotConfig is one raw cost-basis entry as written by the user. Either qty
// or usd must be set; the other side is derived from price.
type LotConfig struct {
	Price float64 `mapstructure:"price"`
	Qty   float64 `mapstructure:"qty"`
	USD   float64 `mapstructure:"usd"`
	Date  string  `mapstructure:"date"`
}

// PortfolioConfig holds the static cost-basis model.
type PortfolioConfig struct {
	Lots []LotConfig `mapstructure:"lots"`
}

// DashboardConfig tunes the render loop.
type DashboardConfig struct {
	RenderInterval time.Duration `mapstructure:"render_interval"`
}

// AlertingConfig defines alert thresholds and routing. A zero threshold
// disables that side.
type AlertingConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	StopLoss   float64        `mapstructure:"stop_loss"`
	TakeProfit float64        `mapstructure:"take_profit"`
	Cooldown   time.Duration  `mapstructure:"cooldown"`
	WebhookURL string         `mapstructure:"webhook_url"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HODLWATCH")
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
	v.SetDefault("app.name", "hodlwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("asset.symbol", "ETH")
	v.SetDefault("asset.pair", "ETHUSDT")
	v.SetDefault("asset.coingecko_id", "ethereum")
	v.SetDefault("asset.quote", "usd")

	v.SetDefault("feed.primary_ws_url", "wss://stream.binance.com:9443/ws")
	v.SetDefault("feed.secondary_ws_url", "wss://ws-feed.exchange.coinbase.com")
	v.SetDefault("feed.binance_rest_url", "https://api.binance.com")
	v.SetDefault("feed.coinbase_rest_url", "https://api.coinbase.com")
	v.SetDefault("feed.coingecko_rest_url", "https://api.coingecko.com")
	v.SetDefault("feed.poll_interval", "5s")
	v.SetDefault("feed.stats_interval", "5m")
	v.SetDefault("feed.request_timeout", "10s")
	v.SetDefault("feed.buffer_capacity", 600)

	v.SetDefault("balance.explorer_url", "https://api.etherscan.io")
	v.SetDefault("balance.refresh_interval", "60s")
	v.SetDefault("balance.request_timeout", "10s")

	v.SetDefault("dashboard.render_interval", "1s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.cooldown", "60m")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.alert_retention", "720h")
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
	if c.Asset.Pair == "" {
		return fmt.Errorf("asset.pair must be configured")
	}
	if c.Feed.BufferCapacity <= 0 {
		return fmt.Errorf("feed.buffer_capacity must be greater than zero")
	}
	if c.Feed.PollInterval <= 0 {
		return fmt.Errorf("feed.poll_interval must be greater than zero")
	}
	if c.Feed.StatsInterval <= 0 {
		return fmt.Errorf("feed.stats_interval must be greater than zero")
	}
	if c.Dashboard.RenderInterval <= 0 {
		return fmt.Errorf("dashboard.render_interval must be greater than zero")
	}
	if c.Balance.RefreshInterval <= 0 {
		return fmt.Errorf("balance.refresh_interval must be greater than zero")
	}
	if c.Alerting.StopLoss < 0 || c.Alerting.TakeProfit < 0 {
		return fmt.Errorf("alerting thresholds cannot be negative")
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown cannot be negative")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
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
