package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults should succeed: %v", err)
	}

	if cfg.Engine.AnchorCurrency != "USD" {
		t.Fatalf("default anchor wrong: %s", cfg.Engine.AnchorCurrency)
	}
	if cfg.Engine.FreshnessWindow != 1500*time.Millisecond {
		t.Fatalf("default freshness window wrong: %s", cfg.Engine.FreshnessWindow)
	}
	if cfg.Engine.StartingAmount != 100.0 {
		t.Fatalf("default starting amount wrong: %v", cfg.Engine.StartingAmount)
	}
	if cfg.Subscriber.IdleTimeout != 10*time.Second {
		t.Fatalf("default idle timeout wrong: %s", cfg.Subscriber.IdleTimeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults should succeed: %v", err)
	}

	cases := []func(c *Config){
		func(c *Config) { c.Subscriber.BufferSize = 0 },
		func(c *Config) { c.Engine.AnchorCurrency = "US" },
		func(c *Config) { c.Engine.FreshnessWindow = 0 },
		func(c *Config) { c.Engine.StartingAmount = -1 },
		func(c *Config) { c.Publisher.Currencies = []string{"USD"} },
		func(c *Config) { c.Alerting.Telegram.Enabled = true },
	}

	for i, mutate := range cases {
		cfg := *base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d should fail validation", i)
		}
	}
}
