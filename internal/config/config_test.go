package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Asset: AssetConfig{Pair: "ETHUSDT"},
		Feed: FeedConfig{
			BufferCapacity: 600,
			PollInterval:   5 * time.Second,
			StatsInterval:  5 * time.Minute,
		},
		Dashboard: DashboardConfig{RenderInterval: time.Second},
		Balance:   BalanceConfig{RefreshInterval: time.Minute},
		Export:    ExportConfig{MaxDataPoints: 1000},
	}
}

func TestValidateAcceptsSaneConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejectsNonPositiveIntervals(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"poll", func(c *Config) { c.Feed.PollInterval = 0 }},
		{"stats", func(c *Config) { c.Feed.StatsInterval = 0 }},
		{"render", func(c *Config) { c.Dashboard.RenderInterval = 0 }},
		{"refresh", func(c *Config) { c.Balance.RefreshInterval = 0 }},
	}

	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s interval of zero must be rejected", tc.name)
		}
	}
}

func TestValidateTelegramCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Alerting.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("telegram 启用时必须配置 bot_token 和 chat_id")
	}

	cfg.Alerting.Telegram.BotToken = "token"
	cfg.Alerting.Telegram.ChatID = "chat"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete telegram config rejected: %v", err)
	}
}
