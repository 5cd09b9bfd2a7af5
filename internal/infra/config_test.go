package infra

import (
	"os"
	"path/filepath"
	"testing"
)

const validConfigYAML = `
app:
  name: amm-go
  version: 0.1.0
pool:
  reserve_a: 10000
  reserve_b: 10000
  fee_rate: 0.003
reference:
  mode: poll
  url: https://example.com/price
  poll_interval_sec: 30
storage:
  snapshot_keep: 3
agents:
  - id: mm-1
    strategy: market_maker
    interval_sec: 5
    wallet:
      balance_a: 1000
      balance_b: 1000
    limits:
      max_amount_per_tx: 100
      session_budget: 1000
      max_price_impact: 0.05
      target_price: 1.0
  - id: arb-1
    strategy: arbitrage
    interval_sec: 3
    wallet:
      balance_a: 500
      balance_b: 500
    limits:
      max_amount_per_tx: 50
      session_budget: 500
      max_price_impact: 0.03
      target_price: 1.0
logging:
  level: info
  format: text
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Pool.FeeRate != 0.003 {
		t.Errorf("Expected fee rate 0.003, got %v", cfg.Pool.FeeRate)
	}
	if len(cfg.Agents) != 2 {
		t.Fatalf("Expected 2 agents, got %d", len(cfg.Agents))
	}
	if cfg.Agents[0].Strategy != StrategyMarketMaker {
		t.Errorf("Expected market_maker, got %q", cfg.Agents[0].Strategy)
	}
	if cfg.Agents[1].IntervalSec != 3 {
		t.Errorf("Expected interval 3, got %d", cfg.Agents[1].IntervalSec)
	}
}

func TestLoadConfig_EnvOverridesAPIKey(t *testing.T) {
	t.Setenv("AMM_LLM_API_KEY", "sk-from-env")

	yaml := validConfigYAML + `
llm:
  provider: openai
  model: gpt-4o-mini
  api_key: sk-from-file
`
	cfg, err := LoadConfig(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("Expected env override, got %q", cfg.LLM.APIKey)
	}
}

func TestConfig_ValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"fee out of range", func(c *Config) { c.Pool.FeeRate = 1.0 }},
		{"one-sided reserves", func(c *Config) { c.Pool.ReserveB = 0 }},
		{"no agents", func(c *Config) { c.Agents = nil }},
		{"duplicate agent id", func(c *Config) { c.Agents[1].ID = c.Agents[0].ID }},
		{"unknown strategy", func(c *Config) { c.Agents[0].Strategy = "hodl" }},
		{"zero interval", func(c *Config) { c.Agents[0].IntervalSec = 0 }},
		{"llm agent without provider", func(c *Config) { c.Agents[0].UseLLM = true }},
		{"bad reference mode", func(c *Config) { c.Reference.Mode = "carrier-pigeon" }},
		{"poll without url", func(c *Config) { c.Reference.Mode = "poll"; c.Reference.URL = "" }},
		{"ws without url", func(c *Config) { c.Reference.Mode = "ws"; c.Reference.WSURL = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, validConfigYAML))
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
