package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"amm_go/internal/activity"
	"amm_go/internal/domain"
	"amm_go/internal/guard"
	"amm_go/internal/infra"
	"amm_go/internal/pool"
	"amm_go/internal/strategy"
)

// ReferencePricer supplies an external market price for asset A in B terms.
// The bool reports whether a price is currently known.
type ReferencePricer interface {
	Price() (decimal.Decimal, bool)
}

// Config wires a runner's collaborators.
type Config struct {
	ID       string
	Interval time.Duration

	Pool      *pool.Engine
	Guard     *guard.Guard
	Wallet    *Wallet
	Strategy  strategy.Strategy
	Source    DecisionSource  // optional external reasoner
	Reference ReferencePricer // optional
	Log       *activity.Log
}

// Runner drives one agent's decision cycles against the shared pool.
// Cycles never overlap: a tick that arrives while a cycle is in flight is
// dropped, not queued.
type Runner struct {
	id       string
	interval time.Duration

	pool      *pool.Engine
	guard     *guard.Guard
	wallet    *Wallet
	strat     strategy.Strategy
	source    DecisionSource
	breaker   *infra.CircuitBreaker
	reference ReferencePricer
	log       *activity.Log

	cycle    atomic.Uint64
	inFlight atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a runner. Pool, guard, wallet, strategy and log are
// required; the external decision source and reference pricer are optional.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("agent id required")
	}
	if cfg.Pool == nil || cfg.Guard == nil || cfg.Wallet == nil || cfg.Strategy == nil || cfg.Log == nil {
		return nil, fmt.Errorf("agent %s: pool, guard, wallet, strategy and log are required", cfg.ID)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}

	r := &Runner{
		id:        cfg.ID,
		interval:  cfg.Interval,
		pool:      cfg.Pool,
		guard:     cfg.Guard,
		wallet:    cfg.Wallet,
		strat:     cfg.Strategy,
		source:    cfg.Source,
		reference: cfg.Reference,
		log:       cfg.Log,
	}
	if cfg.Source != nil {
		r.breaker = infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("llm-" + cfg.ID))
	}
	return r, nil
}

// ID returns the agent identifier.
func (r *Runner) ID() string { return r.id }

// Cycle returns the number of completed cycles.
func (r *Runner) Cycle() uint64 { return r.cycle.Load() }

// Start begins the cycle loop in a background goroutine.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Agent cycle loop panic recovered",
					slog.String("agent", r.id),
					slog.Any("panic", rec))
			}
		}()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		slog.Info("Agent started",
			slog.String("agent", r.id),
			slog.String("strategy", r.strat.Name()),
			slog.Duration("interval", r.interval))

		for {
			select {
			case <-ctx.Done():
				slog.Info("Agent stopped", slog.String("agent", r.id))
				return
			case <-ticker.C:
				r.RunCycle(ctx)
				// Drop any tick that fired while the cycle ran.
				select {
				case <-ticker.C:
				default:
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
		r.wg.Wait()
	}
}

// RunCycle executes one observe-decide-guard-act-record pass. If a cycle is
// already in flight the call is dropped and reports false.
func (r *Runner) RunCycle(ctx context.Context) bool {
	if !r.inFlight.CompareAndSwap(false, true) {
		slog.Debug("Cycle dropped, previous still in flight", slog.String("agent", r.id))
		return false
	}
	defer r.inFlight.Store(false)

	cycle := r.cycle.Add(1)
	obs := r.observe(cycle)
	decision, sourceName := r.decide(ctx, obs)

	rec := domain.ActivityRecord{
		ID:             uuid.NewString(),
		AgentID:        r.id,
		Cycle:          cycle,
		Decision:       decision,
		DecisionSource: sourceName,
	}

	if decision.Action == domain.ActionHold {
		rec.GuardAllowed = true
		rec.Outcome = domain.OutcomeHold
		if obs.Pool.TotalLiquidity.IsZero() {
			// Nothing to act on yet; the pool has no liquidity.
			rec.Outcome = domain.OutcomeObserved
		}
		rec.Detail = decision.Reason
		r.finish(ctx, rec)
		return true
	}

	candidate, err := r.buildCandidate(decision)
	if err != nil {
		rec.GuardAllowed = false
		rec.Outcome = domain.OutcomeFailed
		rec.Detail = err.Error()
		r.finish(ctx, rec)
		return true
	}

	verdict := r.guard.Check(candidate)
	rec.GuardAllowed = verdict.Allowed
	rec.GuardReason = verdict.Reason
	rec.GuardWarning = verdict.Warning
	if !verdict.Allowed {
		rec.Outcome = domain.OutcomeRejected
		rec.Detail = fmt.Sprintf("%s: %s", verdict.Rule, verdict.Reason)
		r.finish(ctx, rec)
		return true
	}

	if err := r.wallet.CanCover(decision); err != nil {
		rec.Outcome = domain.OutcomeFailed
		rec.Detail = err.Error()
		r.finish(ctx, rec)
		return true
	}

	detail, err := r.execute(decision)
	if err != nil {
		rec.Outcome = domain.OutcomeFailed
		rec.Detail = err.Error()
		r.finish(ctx, rec)
		return true
	}

	// Budget is spent only on work actually done.
	r.guard.RecordTx(decision.GuardAmount())
	rec.Outcome = domain.OutcomeExecuted
	rec.Detail = detail
	r.finish(ctx, rec)
	return true
}

func (r *Runner) observe(cycle uint64) strategy.Observation {
	st := r.pool.State()
	balA, balB, lp := r.wallet.Balances()

	obs := strategy.Observation{
		Pool:      st,
		PoolPrice: st.Price(),
		BalanceA:  balA,
		BalanceB:  balB,
		LPTokens:  lp,
		Cycle:     cycle,
	}
	if r.reference != nil {
		if price, ok := r.reference.Price(); ok && price.Sign() > 0 {
			obs.ReferencePrice = price
			obs.HasReference = true
		}
	}
	return obs
}

// decide consults the external source when one is configured and its breaker
// allows it; any failure falls back to the deterministic strategy.
func (r *Runner) decide(ctx context.Context, obs strategy.Observation) (domain.Decision, string) {
	if r.source != nil && r.breaker.Allow() {
		decision, err := r.source.Decide(ctx, obs)
		if err == nil {
			r.breaker.RecordSuccess()
			return decision, r.source.Name()
		}
		r.breaker.RecordFailure()
		slog.Warn("Decision source failed, falling back to rules",
			slog.String("agent", r.id),
			slog.Any("error", err))
	}
	return r.strat.Decide(obs), "rules/" + r.strat.Name()
}

// buildCandidate derives the guard's view of the decision. Swaps are priced
// through a quote; liquidity moves compute post-state reserves directly.
func (r *Runner) buildCandidate(decision domain.Decision) (guard.Candidate, error) {
	st := r.pool.State()

	switch decision.Action {
	case domain.ActionSwap:
		q, err := r.pool.Quote(decision.TokenIn, decision.AmountIn)
		if err != nil {
			return guard.Candidate{}, err
		}
		return guard.Candidate{
			Amount:        decision.GuardAmount(),
			PriceImpact:   q.PriceImpact,
			ReserveAAfter: q.NewReserveA,
			ReserveBAfter: q.NewReserveB,
		}, nil

	case domain.ActionAddLiquidity:
		// Deposits only grow reserves and leave the price unchanged.
		return guard.Candidate{
			Amount:        decision.GuardAmount(),
			PriceImpact:   decimal.Zero,
			ReserveAAfter: st.ReserveA.Add(decision.AmountA),
			ReserveBAfter: st.ReserveB.Add(decision.AmountB),
		}, nil

	case domain.ActionRemoveLiquidity:
		if st.TotalLiquidity.Sign() <= 0 || decision.LPTokens.GreaterThan(st.TotalLiquidity) {
			return guard.Candidate{}, fmt.Errorf("%w: burn %s exceeds supply %s",
				domain.ErrInsufficientShares, decision.LPTokens, st.TotalLiquidity)
		}
		share := decision.LPTokens.Div(st.TotalLiquidity)
		remaining := decimal.NewFromInt(1).Sub(share)
		return guard.Candidate{
			Amount:        decision.GuardAmount(),
			PriceImpact:   decimal.Zero,
			ReserveAAfter: st.ReserveA.Mul(remaining),
			ReserveBAfter: st.ReserveB.Mul(remaining),
		}, nil

	default:
		return guard.Candidate{}, fmt.Errorf("%w: no candidate for action %q",
			domain.ErrInvalidAmount, decision.Action)
	}
}

func (r *Runner) execute(decision domain.Decision) (string, error) {
	switch decision.Action {
	case domain.ActionSwap:
		res, err := r.pool.Swap(decision.TokenIn, decision.AmountIn)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
		}
		if err := r.wallet.ApplySwap(res); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
		}
		return fmt.Sprintf("swapped %s %s for %s %s, fee %s, impact %s",
			res.AmountIn, decision.TokenIn, res.AmountOut, decision.TokenIn.Other(),
			res.FeeCharged, res.PriceImpact.StringFixed(6)), nil

	case domain.ActionAddLiquidity:
		res, err := r.pool.AddLiquidity(decision.AmountA, decision.AmountB)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
		}
		if err := r.wallet.ApplyAddLiquidity(res); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
		}
		return fmt.Sprintf("deposited %s A + %s B for %s lp (unused %s A, %s B)",
			res.ActualA, res.ActualB, res.LPTokensMinted, res.UnusedA, res.UnusedB), nil

	case domain.ActionRemoveLiquidity:
		res, err := r.pool.RemoveLiquidity(decision.LPTokens)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
		}
		if err := r.wallet.ApplyRemoveLiquidity(res); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
		}
		return fmt.Sprintf("burned %s lp for %s A + %s B",
			res.LPTokensBurned, res.AmountA, res.AmountB), nil

	default:
		return "", fmt.Errorf("%w: unknown action %q", domain.ErrExecutionFailed, decision.Action)
	}
}

func (r *Runner) finish(ctx context.Context, rec domain.ActivityRecord) {
	rec.PriceAfter = r.pool.Price()
	rec.TsUnixM = time.Now().UnixMicro()
	r.log.Append(ctx, rec)

	slog.Info("Cycle complete",
		slog.String("agent", r.id),
		slog.Uint64("cycle", rec.Cycle),
		slog.String("outcome", string(rec.Outcome)),
		slog.String("decision", rec.Decision.Summary()),
		slog.String("source", rec.DecisionSource))
}
