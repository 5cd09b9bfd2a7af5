package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Action names the kind of move an agent decided on.
type Action string

const (
	ActionHold            Action = "hold"
	ActionSwap            Action = "swap"
	ActionAddLiquidity    Action = "add_liquidity"
	ActionRemoveLiquidity Action = "remove_liquidity"
)

// Urgency grades how strongly a decision wants to be acted on.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Decision is the tagged variant produced by a strategy or an external
// reasoner within one cycle. Ephemeral: produced and consumed in the same
// cycle, never persisted on its own.
type Decision struct {
	Action  Action  `json:"action"`
	Reason  string  `json:"reason"`
	Urgency Urgency `json:"urgency"`

	// Swap fields
	TokenIn  Token           `json:"token_in,omitempty"`
	AmountIn decimal.Decimal `json:"amount_in,omitempty"`

	// AddLiquidity fields
	AmountA decimal.Decimal `json:"amount_a,omitempty"`
	AmountB decimal.Decimal `json:"amount_b,omitempty"`

	// RemoveLiquidity fields
	LPTokens decimal.Decimal `json:"lp_tokens,omitempty"`
}

// Hold builds a hold decision.
func Hold(reason string) Decision {
	return Decision{Action: ActionHold, Reason: reason, Urgency: UrgencyLow}
}

// Validate checks the variant's fields strictly. Any mismatch is an error,
// never a silent reinterpretation: a malformed external decision must fail
// here so the cycle falls back to the rule set.
func (d Decision) Validate() error {
	switch d.Action {
	case ActionHold:
		return nil
	case ActionSwap:
		if !d.TokenIn.Valid() {
			return fmt.Errorf("swap: token_in must be %q or %q, got %q", TokenA, TokenB, d.TokenIn)
		}
		if d.AmountIn.Sign() <= 0 {
			return fmt.Errorf("swap: amount_in must be > 0, got %s", d.AmountIn)
		}
	case ActionAddLiquidity:
		if d.AmountA.Sign() <= 0 || d.AmountB.Sign() <= 0 {
			return fmt.Errorf("add_liquidity: both amounts must be > 0, got %s/%s", d.AmountA, d.AmountB)
		}
	case ActionRemoveLiquidity:
		if d.LPTokens.Sign() <= 0 {
			return fmt.Errorf("remove_liquidity: lp_tokens must be > 0, got %s", d.LPTokens)
		}
	default:
		return fmt.Errorf("unknown action %q", d.Action)
	}

	switch d.Urgency {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
	case "":
		return fmt.Errorf("missing urgency")
	default:
		return fmt.Errorf("unknown urgency %q", d.Urgency)
	}
	return nil
}

// GuardAmount is the notional the risk guard accounts against the session
// budget: input amount for swaps, combined deposit for adds, burned shares
// for removes, zero for holds.
func (d Decision) GuardAmount() decimal.Decimal {
	switch d.Action {
	case ActionSwap:
		return d.AmountIn
	case ActionAddLiquidity:
		return d.AmountA.Add(d.AmountB)
	case ActionRemoveLiquidity:
		return d.LPTokens
	default:
		return decimal.Zero
	}
}

// Summary renders a compact human-readable form used in activity records
// and logs.
func (d Decision) Summary() string {
	switch d.Action {
	case ActionSwap:
		return fmt.Sprintf("swap %s %s in", d.AmountIn, d.TokenIn)
	case ActionAddLiquidity:
		return fmt.Sprintf("add liquidity %s A + %s B", d.AmountA, d.AmountB)
	case ActionRemoveLiquidity:
		return fmt.Sprintf("remove %s lp", d.LPTokens)
	default:
		reason := strings.TrimSpace(d.Reason)
		if reason == "" {
			return "hold"
		}
		return "hold: " + reason
	}
}
