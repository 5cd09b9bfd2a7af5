package domain

import "errors"

// Error taxonomy shared by the pool, guard and agent layers.
// Callers match with errors.Is; wrapping sites add context with fmt.Errorf %w.
var (
	// ErrInvalidAmount marks non-positive or malformed caller input. Never retried.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientLiquidity means the pool cannot satisfy a swap at current
	// reserves (output would be zero or drain a side entirely).
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrInsufficientShares means a removal asked for more LP shares than exist.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrGuardRejected is a risk-control veto. Distinct from execution failure.
	ErrGuardRejected = errors.New("guard rejected")

	// ErrExecutionFailed means a guarded action was attempted and the underlying
	// call failed. Session budget is not debited for these.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrDecisionSourceUnavailable means the external reasoner failed. Not an
	// error to the cycle: it triggers the deterministic fallback.
	ErrDecisionSourceUnavailable = errors.New("decision source unavailable")
)
