package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultUserAgent identifies outbound HTTP and WebSocket requests.
const DefaultUserAgent = "amm-go/1.0"

// Strategy names accepted in agent configuration.
const (
	StrategyMarketMaker = "market_maker"
	StrategyArbitrage   = "arbitrage"
)

// Config holds all application settings. Loaded from YAML, then sensitive
// values are overridden from environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Pool struct {
		ReserveA float64 `yaml:"reserve_a"`
		ReserveB float64 `yaml:"reserve_b"`
		FeeRate  float64 `yaml:"fee_rate"`
	} `yaml:"pool"`

	Reference struct {
		Mode            string `yaml:"mode"` // "none", "poll" or "ws"
		URL             string `yaml:"url"`
		WSURL           string `yaml:"ws_url"`
		PollIntervalSec int    `yaml:"poll_interval_sec"`
	} `yaml:"reference"`

	LLM struct {
		Provider    string  `yaml:"provider"` // empty disables the external reasoner
		Model       string  `yaml:"model"`
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Temperature float64 `yaml:"temperature"`
		TimeoutSec  int     `yaml:"timeout_sec"`
	} `yaml:"llm"`

	Storage struct {
		DataDir      string `yaml:"data_dir"` // empty uses the workspace dir
		SnapshotKeep int    `yaml:"snapshot_keep"`
		Retention    int    `yaml:"retention"` // in-memory records per agent
	} `yaml:"storage"`

	Agents []AgentConfig `yaml:"agents"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "text" or "json"
	} `yaml:"logging"`
}

// AgentConfig describes one agent: its strategy, cadence, wallet funding and
// risk limits.
type AgentConfig struct {
	ID          string  `yaml:"id"`
	Strategy    string  `yaml:"strategy"`
	Role        string  `yaml:"role"` // free-text mandate, folded into LLM prompts
	IntervalSec int     `yaml:"interval_sec"`
	UseLLM      bool    `yaml:"use_llm"`

	Wallet struct {
		BalanceA float64 `yaml:"balance_a"`
		BalanceB float64 `yaml:"balance_b"`
	} `yaml:"wallet"`

	Limits struct {
		MaxAmountPerTx   float64 `yaml:"max_amount_per_tx"`
		SessionBudget    float64 `yaml:"session_budget"`
		MaxPriceImpact   float64 `yaml:"max_price_impact"`
		MinReserveA      float64 `yaml:"min_reserve_a"`
		MinReserveB      float64 `yaml:"min_reserve_b"`
		WarnThreshold    float64 `yaml:"warn_threshold"`
		RebalanceTrigger float64 `yaml:"rebalance_trigger"`
		TargetPrice      float64 `yaml:"target_price"`
	} `yaml:"limits"`

	TradeFraction float64 `yaml:"trade_fraction"`
	ArbThreshold  float64 `yaml:"arb_threshold"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Pool.FeeRate < 0 || c.Pool.FeeRate >= 1 {
		return fmt.Errorf("pool fee_rate must be in [0,1), got %v", c.Pool.FeeRate)
	}
	if c.Pool.ReserveA < 0 || c.Pool.ReserveB < 0 {
		return fmt.Errorf("pool reserves must be >= 0")
	}
	if (c.Pool.ReserveA == 0) != (c.Pool.ReserveB == 0) {
		return fmt.Errorf("pool reserves must both be zero or both be positive")
	}

	switch c.Reference.Mode {
	case "", "none":
	case "poll":
		if !strings.HasPrefix(c.Reference.URL, "http://") && !strings.HasPrefix(c.Reference.URL, "https://") {
			return fmt.Errorf("invalid reference URL: %s", c.Reference.URL)
		}
	case "ws":
		if !strings.HasPrefix(c.Reference.WSURL, "ws://") && !strings.HasPrefix(c.Reference.WSURL, "wss://") {
			return fmt.Errorf("invalid reference WS URL: %s", c.Reference.WSURL)
		}
	default:
		return fmt.Errorf("unknown reference mode %q", c.Reference.Mode)
	}

	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent is required")
	}
	seen := make(map[string]bool, len(c.Agents))
	for i, agent := range c.Agents {
		if agent.ID == "" {
			return fmt.Errorf("agent %d: id is required", i)
		}
		if seen[agent.ID] {
			return fmt.Errorf("duplicate agent id %q", agent.ID)
		}
		seen[agent.ID] = true

		switch agent.Strategy {
		case StrategyMarketMaker, StrategyArbitrage:
		default:
			return fmt.Errorf("agent %s: unknown strategy %q", agent.ID, agent.Strategy)
		}
		if agent.IntervalSec <= 0 {
			return fmt.Errorf("agent %s: interval_sec must be positive", agent.ID)
		}
		if agent.UseLLM && c.LLM.Provider == "" {
			return fmt.Errorf("agent %s: use_llm set but no llm provider configured", agent.ID)
		}
	}

	return nil
}

// overrideWithEnv applies environment variable overrides. Environment takes
// precedence over the config file for secrets.
func overrideWithEnv(cfg *Config) {
	if cfg.LLM.APIKey != "" {
		fmt.Println("WARNING: llm api key found in config file; prefer AMM_LLM_API_KEY")
	}
	if key := os.Getenv("AMM_LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if url := os.Getenv("AMM_REFERENCE_URL"); url != "" {
		cfg.Reference.URL = url
	}
}
