package strategy

import (
	"github.com/shopspring/decimal"

	"amm_go/internal/domain"
)

// Observation is one agent's read-only view at the top of a cycle: the pool
// snapshot, the derived pool price, an optional external reference price and
// the agent's own holdings.
type Observation struct {
	Pool      domain.PoolState
	PoolPrice decimal.Decimal

	ReferencePrice decimal.Decimal
	HasReference   bool

	BalanceA decimal.Decimal
	BalanceB decimal.Decimal
	LPTokens decimal.Decimal

	Cycle uint64
}

// Strategy is the deterministic rule set behind every agent. It is always
// available and is the executable ground truth for safety: an external
// reasoner may propose decisions, but this is what the cycle falls back to.
type Strategy interface {
	// Decide produces a decision for the observation. Pure with respect to
	// the pool: implementations never mutate anything.
	Decide(obs Observation) domain.Decision

	// Name identifies the rule set in activity records.
	Name() string
}
