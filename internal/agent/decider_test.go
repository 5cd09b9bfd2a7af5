package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"amm_go/internal/domain"
	"amm_go/internal/llm"
	"amm_go/internal/strategy"
)

func TestParseDecision_Swap(t *testing.T) {
	raw := `{"action":"swap","token_in":"A","amount_in":25.5,"urgency":"medium","reason":"pool above reference"}`

	d, err := parseDecision(raw)
	if err != nil {
		t.Fatalf("parseDecision failed: %v", err)
	}
	if d.Action != domain.ActionSwap {
		t.Errorf("Expected swap, got %q", d.Action)
	}
	if d.TokenIn != domain.TokenA {
		t.Errorf("Expected token A, got %q", d.TokenIn)
	}
	if !d.AmountIn.Equal(decimal.NewFromFloat(25.5)) {
		t.Errorf("Expected 25.5, got %s", d.AmountIn)
	}
}

func TestParseDecision_CodeFence(t *testing.T) {
	raw := "```json\n{\"action\":\"hold\",\"urgency\":\"low\",\"reason\":\"nothing attractive\"}\n```"

	d, err := parseDecision(raw)
	if err != nil {
		t.Fatalf("parseDecision failed: %v", err)
	}
	if d.Action != domain.ActionHold {
		t.Errorf("Expected hold, got %q", d.Action)
	}
}

func TestParseDecision_SurroundingProse(t *testing.T) {
	raw := `Here is my decision: {"action":"remove_liquidity","lp_tokens":10,"urgency":"high","reason":"derisk"} done.`

	d, err := parseDecision(raw)
	if err != nil {
		t.Fatalf("parseDecision failed: %v", err)
	}
	if d.Action != domain.ActionRemoveLiquidity {
		t.Errorf("Expected remove_liquidity, got %q", d.Action)
	}
	if !d.LPTokens.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected 10 lp, got %s", d.LPTokens)
	}
}

func TestParseDecision_NormalizesCase(t *testing.T) {
	raw := `{"action":"SWAP","token_in":"a","amount_in":1,"urgency":"LOW","reason":"x"}`

	d, err := parseDecision(raw)
	if err != nil {
		t.Fatalf("parseDecision failed: %v", err)
	}
	if d.Action != domain.ActionSwap || d.TokenIn != domain.TokenA || d.Urgency != domain.UrgencyLow {
		t.Errorf("Normalization failed: %+v", d)
	}
}

func TestParseDecision_Invalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "I think we should swap some tokens"},
		{"unknown action", `{"action":"liquidate","urgency":"low","reason":"x"}`},
		{"swap without amount", `{"action":"swap","token_in":"A","urgency":"low","reason":"x"}`},
		{"swap negative amount", `{"action":"swap","token_in":"A","amount_in":-5,"urgency":"low","reason":"x"}`},
		{"swap bad token", `{"action":"swap","token_in":"C","amount_in":5,"urgency":"low","reason":"x"}`},
		{"missing urgency", `{"action":"swap","token_in":"A","amount_in":5,"reason":"x"}`},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseDecision(tc.raw); err == nil {
				t.Errorf("Expected error for %q", tc.raw)
			}
		})
	}
}

type stubLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubLLM) Generate(_ context.Context, _ llm.Prompt) (string, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func (s *stubLLM) Provider() string { return "stub" }
func (s *stubLLM) Model() string    { return "test" }

func TestLLMSource_RetriesThenSucceeds(t *testing.T) {
	client := &stubLLM{
		responses: []string{
			"not json at all",
			`{"action":"hold","urgency":"low","reason":"ok"}`,
		},
		errs: []error{nil, nil},
	}
	source := NewLLMSource(client, "test agent")

	d, err := source.Decide(context.Background(), strategy.Observation{})
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Action != domain.ActionHold {
		t.Errorf("Expected hold, got %q", d.Action)
	}
	if client.calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", client.calls)
	}
}

func TestLLMSource_ExhaustedAttempts(t *testing.T) {
	client := &stubLLM{
		responses: []string{"garbage", "more garbage"},
		errs:      []error{nil, nil},
	}
	source := NewLLMSource(client, "")

	_, err := source.Decide(context.Background(), strategy.Observation{})
	if err == nil {
		t.Fatal("Expected error after exhausted attempts")
	}
	if !errors.Is(err, domain.ErrDecisionSourceUnavailable) {
		t.Errorf("Expected ErrDecisionSourceUnavailable, got %v", err)
	}
}
