// Package guard is the pre-trade admission-control layer. It is consulted by
// every agent before any mutating Pool Engine call and is never bypassed.
package guard

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Rule identifies which admission rule fired. Rules are evaluated in fixed
// order; the first failing rule wins.
type Rule string

const (
	RuleNone          Rule = ""
	RuleMaxAmount     Rule = "max_amount_per_tx"
	RuleSessionBudget Rule = "session_budget"
	RulePriceImpact   Rule = "max_price_impact"
	RuleMinReserveA   Rule = "min_reserve_a"
	RuleMinReserveB   Rule = "min_reserve_b"
)

// Limits are the per-session risk parameters. Immutable for a session except
// via an explicit Update call.
type Limits struct {
	MaxAmountPerTx decimal.Decimal
	SessionBudget  decimal.Decimal
	MaxPriceImpact decimal.Decimal // fraction in [0,1)
	MinReserveA    decimal.Decimal
	MinReserveB    decimal.Decimal
	WarnThreshold  decimal.Decimal

	// Strategy hints carried with the limit set. A zero TargetPrice means
	// the agent has no rebalancing target.
	RebalanceTriggerDeviation decimal.Decimal // fraction in [0,1)
	TargetPrice               decimal.Decimal
}

// Validate checks the limit set's ranges.
func (l Limits) Validate() error {
	one := decimal.NewFromInt(1)
	if l.MaxPriceImpact.Sign() < 0 || l.MaxPriceImpact.GreaterThanOrEqual(one) {
		return fmt.Errorf("max_price_impact must be in [0,1), got %s", l.MaxPriceImpact)
	}
	if l.RebalanceTriggerDeviation.Sign() < 0 || l.RebalanceTriggerDeviation.GreaterThanOrEqual(one) {
		return fmt.Errorf("rebalance_trigger_deviation must be in [0,1), got %s", l.RebalanceTriggerDeviation)
	}
	if l.TargetPrice.Sign() < 0 {
		return fmt.Errorf("target_price must be >= 0, got %s", l.TargetPrice)
	}
	if l.MaxAmountPerTx.Sign() < 0 || l.SessionBudget.Sign() < 0 {
		return fmt.Errorf("amount limits must be >= 0")
	}
	return nil
}

// Session holds the mutable counters for one agent's run. Reset only by an
// explicit operator action.
type Session struct {
	SessionSpent decimal.Decimal
	TxCount      int
	BlockedCount int
	LastTxAt     time.Time
}

// Candidate is the guard's view of a proposed action: how big it is, how
// hard it moves the price and where it leaves the reserves.
type Candidate struct {
	Amount        decimal.Decimal
	PriceImpact   decimal.Decimal
	ReserveAAfter decimal.Decimal
	ReserveBAfter decimal.Decimal
}

// Result is the verdict for one candidate. Warning is advisory and never
// blocks.
type Result struct {
	Allowed bool
	Rule    Rule
	Reason  string
	Warning string
}

// Guard couples a limit set with session counters for one agent.
// Safe for concurrent use, though each agent normally owns its guard.
type Guard struct {
	mu      sync.Mutex
	agentID string
	limits  Limits
	session Session
}

// New creates a guard for an agent session.
func New(agentID string, limits Limits) (*Guard, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("guard limits for %s: %w", agentID, err)
	}
	return &Guard{
		agentID: agentID,
		limits:  limits,
		session: Session{SessionSpent: decimal.Zero},
	}, nil
}

// Check evaluates the candidate against the rules in fixed order:
// amount cap, session budget, price impact, reserve A floor, reserve B
// floor. The first failing rule decides the rejection reason. Every
// rejection increments the session's blocked counter.
func (g *Guard) Check(c Candidate) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	reject := func(rule Rule, reason string) Result {
		g.session.BlockedCount++
		slog.Info("guard rejected",
			slog.String("agent", g.agentID),
			slog.String("rule", string(rule)),
			slog.String("reason", reason))
		return Result{Allowed: false, Rule: rule, Reason: reason}
	}

	if g.limits.MaxAmountPerTx.Sign() > 0 && c.Amount.GreaterThan(g.limits.MaxAmountPerTx) {
		return reject(RuleMaxAmount, fmt.Sprintf("amount %s exceeds per-tx cap %s",
			c.Amount, g.limits.MaxAmountPerTx))
	}
	if g.limits.SessionBudget.Sign() > 0 {
		if g.session.SessionSpent.Add(c.Amount).GreaterThan(g.limits.SessionBudget) {
			return reject(RuleSessionBudget, fmt.Sprintf("spent %s + amount %s exceeds session budget %s",
				g.session.SessionSpent, c.Amount, g.limits.SessionBudget))
		}
	}
	if c.PriceImpact.GreaterThan(g.limits.MaxPriceImpact) {
		return reject(RulePriceImpact, fmt.Sprintf("price impact %s exceeds cap %s",
			c.PriceImpact, g.limits.MaxPriceImpact))
	}
	if c.ReserveAAfter.LessThan(g.limits.MinReserveA) {
		return reject(RuleMinReserveA, fmt.Sprintf("reserve A would fall to %s, floor %s",
			c.ReserveAAfter, g.limits.MinReserveA))
	}
	if c.ReserveBAfter.LessThan(g.limits.MinReserveB) {
		return reject(RuleMinReserveB, fmt.Sprintf("reserve B would fall to %s, floor %s",
			c.ReserveBAfter, g.limits.MinReserveB))
	}

	res := Result{Allowed: true}
	if g.limits.WarnThreshold.Sign() > 0 && c.Amount.GreaterThan(g.limits.WarnThreshold) {
		res.Warning = fmt.Sprintf("amount %s above warn threshold %s", c.Amount, g.limits.WarnThreshold)
	}
	return res
}

// RecordTx debits the session budget for a successfully executed action.
// Callers must NOT invoke it for approved-but-failed executions; budget is
// only spent on work actually done.
func (g *Guard) RecordTx(amount decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.session.SessionSpent = g.session.SessionSpent.Add(amount)
	g.session.TxCount++
	g.session.LastTxAt = time.Now()
}

// HasRemainingBudget reports whether the session budget allows any further
// spend. A zero budget disables budget accounting.
func (g *Guard) HasRemainingBudget() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limits.SessionBudget.Sign() <= 0 {
		return true
	}
	return g.session.SessionSpent.LessThan(g.limits.SessionBudget)
}

// RemainingBudget returns sessionBudget - sessionSpent, floored at zero.
func (g *Guard) RemainingBudget() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()

	rem := g.limits.SessionBudget.Sub(g.session.SessionSpent)
	if rem.Sign() < 0 {
		return decimal.Zero
	}
	return rem
}

// Session returns a copy of the session counters.
func (g *Guard) Session() Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// Limits returns the active limit set.
func (g *Guard) Limits() Limits {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limits
}

// Update replaces the limit set. Explicit operator action.
func (g *Guard) Update(limits Limits) error {
	if err := limits.Validate(); err != nil {
		return fmt.Errorf("guard limits for %s: %w", g.agentID, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.limits = limits
	slog.Info("guard limits updated", slog.String("agent", g.agentID))
	return nil
}

// ResetSession zeroes the session counters. Explicit operator action.
func (g *Guard) ResetSession() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.session = Session{SessionSpent: decimal.Zero}
	slog.Info("guard session reset", slog.String("agent", g.agentID))
}
