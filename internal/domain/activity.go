package domain

import "github.com/shopspring/decimal"

// Outcome classifies how a cycle ended for the acting agent.
type Outcome string

const (
	// OutcomeObserved: the cycle terminated at the observe step (read failure,
	// unseeded pool, missing reference price). Informational only.
	OutcomeObserved Outcome = "observed"
	// OutcomeHold: the agent decided not to act.
	OutcomeHold Outcome = "hold"
	// OutcomeRejected: the risk guard vetoed the decision.
	OutcomeRejected Outcome = "rejected"
	// OutcomeExecuted: the pool mutation committed.
	OutcomeExecuted Outcome = "executed"
	// OutcomeFailed: the mutation was attempted and failed. Budget not debited.
	OutcomeFailed Outcome = "failed"
)

// ActivityRecord is the immutable, append-only trace of one cycle: the
// decision, the guard verdict and the execution outcome, with enough detail
// to reconstruct the agent's reasoning after the fact.
type ActivityRecord struct {
	ID      string `json:"id"`
	AgentID string `json:"agent_id"`
	Cycle   uint64 `json:"cycle"`

	Decision       Decision `json:"decision"`
	DecisionSource string   `json:"decision_source"` // "rules" or the llm provider

	GuardAllowed bool   `json:"guard_allowed"`
	GuardReason  string `json:"guard_reason,omitempty"`
	GuardWarning string `json:"guard_warning,omitempty"`

	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`

	PriceAfter decimal.Decimal `json:"price_after"`
	TsUnixM    int64           `json:"ts_unix_micro"`
}
