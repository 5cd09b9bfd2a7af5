package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"amm_go/internal/domain"
	"amm_go/internal/llm"
	"amm_go/internal/strategy"
)

// DecisionSource produces a decision for one observation. Sources may fail;
// the runner falls back to its deterministic strategy when they do.
type DecisionSource interface {
	Decide(ctx context.Context, obs strategy.Observation) (domain.Decision, error)
	Name() string
}

const decisionMaxAttempts = 2

// LLMSource asks a language model for a decision. The model's output is held
// to a strict schema: anything that fails to parse or validate is an error,
// never a best-effort guess.
type LLMSource struct {
	client llm.Client
	role   string
}

// NewLLMSource wraps an LLM client as a decision source. role is a short
// free-text description of the agent's mandate, folded into the prompt.
func NewLLMSource(client llm.Client, role string) *LLMSource {
	return &LLMSource{client: client, role: role}
}

func (s *LLMSource) Name() string {
	return s.client.Provider() + "/" + s.client.Model()
}

func (s *LLMSource) Decide(ctx context.Context, obs strategy.Observation) (domain.Decision, error) {
	base := s.buildPrompt(obs)
	prompt := base
	lastErr := fmt.Errorf("no decision produced")

	for attempt := 1; attempt <= decisionMaxAttempts; attempt++ {
		raw, err := s.client.Generate(ctx, prompt)
		if err != nil {
			lastErr = fmt.Errorf("llm error: %w", err)
		} else {
			decision, parseErr := parseDecision(raw)
			if parseErr == nil {
				return decision, nil
			}
			lastErr = parseErr
		}

		if attempt < decisionMaxAttempts {
			prompt = llm.Prompt{
				System: base.System,
				User: base.User + fmt.Sprintf(
					"\nPrevious output was rejected (%v). Return exactly one JSON object matching the schema. No markdown.",
					lastErr),
			}
		}
	}

	return domain.Decision{}, fmt.Errorf("%w: %v", domain.ErrDecisionSourceUnavailable, lastErr)
}

func (s *LLMSource) buildPrompt(obs strategy.Observation) llm.Prompt {
	system := "You are an autonomous liquidity agent on a two-asset constant-product pool. " +
		"Reply with a single JSON object only. Schema: " +
		`{"action":"hold"|"swap"|"add_liquidity"|"remove_liquidity",` +
		`"token_in":"A"|"B","amount_in":number,` +
		`"amount_a":number,"amount_b":number,"lp_tokens":number,` +
		`"urgency":"low"|"medium"|"high","reason":string}. ` +
		"Swap needs token_in and amount_in. Add needs amount_a and amount_b. " +
		"Remove needs lp_tokens. Hold needs only urgency and reason."
	if role := strings.TrimSpace(s.role); role != "" {
		system += " Your mandate: " + role
	}

	ref := "unavailable"
	if obs.HasReference {
		ref = obs.ReferencePrice.StringFixed(6)
	}
	user := fmt.Sprintf(
		"Cycle %d. Pool: reserve A %s, reserve B %s, price %s B per A, fee rate %s, total LP supply %s. "+
			"External reference price: %s. "+
			"Your holdings: %s A, %s B, %s LP tokens. "+
			"Decide one action now. Prefer small moves; hold when nothing is attractive.",
		obs.Cycle,
		obs.Pool.ReserveA, obs.Pool.ReserveB, obs.PoolPrice.StringFixed(6),
		obs.Pool.FeeRate, obs.Pool.TotalLiquidity,
		ref,
		obs.BalanceA, obs.BalanceB, obs.LPTokens,
	)

	return llm.Prompt{System: system, User: user}
}

// parseDecision extracts and validates the single JSON object a source must
// return. Code fences and surrounding prose are tolerated; schema violations
// are not.
func parseDecision(raw string) (domain.Decision, error) {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```json")
		clean = strings.TrimPrefix(clean, "```")
		clean = strings.TrimSuffix(clean, "```")
		clean = strings.TrimSpace(clean)
	}
	if !strings.HasPrefix(clean, "{") {
		start := strings.Index(clean, "{")
		end := strings.LastIndex(clean, "}")
		if start >= 0 && end > start {
			clean = clean[start : end+1]
		}
	}

	var decision domain.Decision
	if err := json.Unmarshal([]byte(clean), &decision); err != nil {
		return domain.Decision{}, fmt.Errorf("parse error: %w", err)
	}

	decision.Action = domain.Action(strings.ToLower(strings.TrimSpace(string(decision.Action))))
	decision.Urgency = domain.Urgency(strings.ToLower(strings.TrimSpace(string(decision.Urgency))))
	decision.TokenIn = domain.Token(strings.ToUpper(strings.TrimSpace(string(decision.TokenIn))))
	decision.Reason = strings.TrimSpace(decision.Reason)

	if err := decision.Validate(); err != nil {
		return domain.Decision{}, fmt.Errorf("invalid decision: %w", err)
	}
	return decision, nil
}

// RuleSource adapts a deterministic strategy to the DecisionSource interface.
// It never fails.
type RuleSource struct {
	strat strategy.Strategy
}

func NewRuleSource(strat strategy.Strategy) *RuleSource {
	return &RuleSource{strat: strat}
}

func (s *RuleSource) Name() string { return "rules/" + s.strat.Name() }

func (s *RuleSource) Decide(_ context.Context, obs strategy.Observation) (domain.Decision, error) {
	return s.strat.Decide(obs), nil
}
