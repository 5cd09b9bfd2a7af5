package pool

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"amm_go/internal/domain"
	"amm_go/pkg/quant"
)

// Engine owns the constant-product pool state. It is the only component
// allowed to mutate reserves. Mutations are serialized behind a single
// mutex; reads copy the state out so no caller ever observes a torn write.
type Engine struct {
	mu    sync.RWMutex
	state domain.PoolState
}

// New creates a pool seeded with non-zero initial reserves. The initial
// deposit mints sqrt(a*b) shares, so a fresh pool is immediately priced.
func New(reserveA, reserveB, feeRate decimal.Decimal) (*Engine, error) {
	if reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return nil, fmt.Errorf("%w: initial reserves must be > 0 (got %s/%s)",
			domain.ErrInvalidAmount, reserveA, reserveB)
	}
	if feeRate.Sign() < 0 || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: fee rate must be in [0,1), got %s",
			domain.ErrInvalidAmount, feeRate)
	}

	return &Engine{state: freshState(reserveA, reserveB, feeRate)}, nil
}

// NewEmpty creates an unseeded pool. Swaps and quotes fail until the first
// liquidity deposit bootstraps the price.
func NewEmpty(feeRate decimal.Decimal) (*Engine, error) {
	if feeRate.Sign() < 0 || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: fee rate must be in [0,1), got %s",
			domain.ErrInvalidAmount, feeRate)
	}
	st := freshState(decimal.Zero, decimal.Zero, feeRate)
	st.TotalLiquidity = decimal.Zero
	return &Engine{state: st}, nil
}

// Restore rebuilds an engine from a persisted snapshot.
func Restore(st domain.PoolState) *Engine {
	return &Engine{state: st}
}

func freshState(reserveA, reserveB, feeRate decimal.Decimal) domain.PoolState {
	return domain.PoolState{
		ReserveA:       reserveA,
		ReserveB:       reserveB,
		TotalLiquidity: quant.Sqrt(reserveA.Mul(reserveB)),
		FeeRate:        feeRate,
		VolumeA:        decimal.Zero,
		VolumeB:        decimal.Zero,
		FeesCollectedA: decimal.Zero,
		FeesCollectedB: decimal.Zero,
	}
}

// State returns a copy of the current pool state, consistent with the last
// committed mutation.
func (e *Engine) State() domain.PoolState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Price returns reserveB/reserveA (price of A in B).
func (e *Engine) Price() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Price()
}

// PriceInverse returns reserveA/reserveB (price of B in A).
func (e *Engine) PriceInverse() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state.ReserveB.IsZero() {
		return decimal.Zero
	}
	return e.state.ReserveA.Div(e.state.ReserveB)
}

// Invariant returns the current reserveA * reserveB product.
func (e *Engine) Invariant() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Invariant()
}

// Quote previews a swap without mutating anything. Calling it twice with
// identical state and inputs yields identical results.
func (e *Engine) Quote(tokenIn domain.Token, amountIn decimal.Decimal) (domain.QuoteResult, error) {
	e.mu.RLock()
	st := e.state
	e.mu.RUnlock()

	return quoteOn(st, tokenIn, amountIn)
}

// quoteOn computes the swap preview against a given state. Pure.
//
// The constant product k is taken before the fee-adjusted input is applied:
// the output side is k / (reserveIn + netIn). On commit the full amountIn
// (fee included) lands in the input reserve, which is what keeps the product
// strictly growing whenever feeRate > 0.
func quoteOn(st domain.PoolState, tokenIn domain.Token, amountIn decimal.Decimal) (domain.QuoteResult, error) {
	if !tokenIn.Valid() {
		return domain.QuoteResult{}, fmt.Errorf("%w: unknown token %q", domain.ErrInvalidAmount, tokenIn)
	}
	if amountIn.Sign() <= 0 {
		return domain.QuoteResult{}, fmt.Errorf("%w: amount_in must be > 0, got %s", domain.ErrInvalidAmount, amountIn)
	}

	reserveIn, reserveOut := st.ReserveA, st.ReserveB
	if tokenIn == domain.TokenB {
		reserveIn, reserveOut = st.ReserveB, st.ReserveA
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return domain.QuoteResult{}, fmt.Errorf("%w: pool is unseeded", domain.ErrInsufficientLiquidity)
	}

	fee := amountIn.Mul(st.FeeRate)
	netIn := amountIn.Sub(fee)

	k := reserveIn.Mul(reserveOut)
	newReserveOut := k.Div(reserveIn.Add(netIn))
	amountOut := reserveOut.Sub(newReserveOut)

	if amountOut.Sign() <= 0 || amountOut.GreaterThanOrEqual(reserveOut) {
		return domain.QuoteResult{}, fmt.Errorf("%w: swap of %s %s would drain the pool",
			domain.ErrInsufficientLiquidity, amountIn, tokenIn)
	}

	// Post-commit reserves: fee stays in the input side.
	committedIn := reserveIn.Add(amountIn)
	committedOut := reserveOut.Sub(amountOut)

	newA, newB := committedIn, committedOut
	if tokenIn == domain.TokenB {
		newA, newB = committedOut, committedIn
	}

	priceBefore := st.Price()
	priceAfter := newB.Div(newA)
	if tokenIn == domain.TokenB {
		// Measure impact in the direction of the trade.
		priceBefore = st.ReserveA.Div(st.ReserveB)
		priceAfter = newA.Div(newB)
	}
	impact := priceAfter.Sub(priceBefore).Abs().Div(priceBefore)

	return domain.QuoteResult{
		TokenIn:     tokenIn,
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		FeeCharged:  fee,
		PriceImpact: impact,
		NewReserveA: newA,
		NewReserveB: newB,
	}, nil
}

// Swap quotes and commits atomically: reserves, swap counter, per-token
// volume and fee counters all move under one lock, or none do.
func (e *Engine) Swap(tokenIn domain.Token, amountIn decimal.Decimal) (domain.SwapResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, err := quoteOn(e.state, tokenIn, amountIn)
	if err != nil {
		return domain.SwapResult{}, err
	}

	e.state.ReserveA = q.NewReserveA
	e.state.ReserveB = q.NewReserveB
	e.state.SwapCount++
	if tokenIn == domain.TokenA {
		e.state.VolumeA = e.state.VolumeA.Add(amountIn)
		e.state.VolumeB = e.state.VolumeB.Add(q.AmountOut)
		e.state.FeesCollectedA = e.state.FeesCollectedA.Add(q.FeeCharged)
	} else {
		e.state.VolumeB = e.state.VolumeB.Add(amountIn)
		e.state.VolumeA = e.state.VolumeA.Add(q.AmountOut)
		e.state.FeesCollectedB = e.state.FeesCollectedB.Add(q.FeeCharged)
	}

	res := domain.SwapResult{
		TokenIn:     tokenIn,
		AmountIn:    amountIn,
		AmountOut:   q.AmountOut,
		FeeCharged:  q.FeeCharged,
		PriceImpact: q.PriceImpact,
		PriceAfter:  e.state.Price(),
	}

	slog.Debug("swap committed",
		slog.String("token_in", string(tokenIn)),
		slog.String("amount_in", amountIn.String()),
		slog.String("amount_out", q.AmountOut.String()),
		slog.String("price", res.PriceAfter.String()))

	return res, nil
}

// AddLiquidity deposits both assets. The first-ever deposit bootstraps the
// pool at the caller's ratio and mints sqrt(a*b) shares. Later deposits are
// re-ratioed down to the pool's current ratio; the shrunk side's excess is
// reported back as Unused, never silently absorbed into reserves.
func (e *Engine) AddLiquidity(amountA, amountB decimal.Decimal) (domain.LiquidityResult, error) {
	if amountA.Sign() <= 0 || amountB.Sign() <= 0 {
		return domain.LiquidityResult{}, fmt.Errorf("%w: both amounts must be > 0, got %s/%s",
			domain.ErrInvalidAmount, amountA, amountB)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := &e.state

	if st.TotalLiquidity.IsZero() {
		minted := quant.Sqrt(amountA.Mul(amountB))
		st.ReserveA = st.ReserveA.Add(amountA)
		st.ReserveB = st.ReserveB.Add(amountB)
		st.TotalLiquidity = minted

		return domain.LiquidityResult{
			ActualA:        amountA,
			ActualB:        amountB,
			UnusedA:        decimal.Zero,
			UnusedB:        decimal.Zero,
			LPTokensMinted: minted,
			ShareOfPool:    decimal.NewFromInt(1),
		}, nil
	}

	// Re-ratio: shrink whichever side is in excess of the pool ratio.
	actualA, actualB := amountA, amountB
	ratioB := amountA.Mul(st.ReserveB).Div(st.ReserveA)
	if amountB.GreaterThan(ratioB) {
		actualB = ratioB
	} else if amountB.LessThan(ratioB) {
		actualA = amountB.Mul(st.ReserveA).Div(st.ReserveB)
	}

	minted := actualA.Div(st.ReserveA).Mul(st.TotalLiquidity)
	if minted.Sign() <= 0 {
		return domain.LiquidityResult{}, fmt.Errorf("%w: deposit too small to mint shares",
			domain.ErrInvalidAmount)
	}

	st.ReserveA = st.ReserveA.Add(actualA)
	st.ReserveB = st.ReserveB.Add(actualB)
	st.TotalLiquidity = st.TotalLiquidity.Add(minted)

	return domain.LiquidityResult{
		ActualA:        actualA,
		ActualB:        actualB,
		UnusedA:        amountA.Sub(actualA),
		UnusedB:        amountB.Sub(actualB),
		LPTokensMinted: minted,
		ShareOfPool:    minted.Div(st.TotalLiquidity),
	}, nil
}

// RemoveLiquidity burns lpTokens and pays out the proportional share of both
// reserves. Both sides scale by the same fraction, so the price is unchanged.
func (e *Engine) RemoveLiquidity(lpTokens decimal.Decimal) (domain.RemoveLiquidityResult, error) {
	if lpTokens.Sign() <= 0 {
		return domain.RemoveLiquidityResult{}, fmt.Errorf("%w: lp_tokens must be > 0, got %s",
			domain.ErrInvalidAmount, lpTokens)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := &e.state
	if lpTokens.GreaterThan(st.TotalLiquidity) {
		return domain.RemoveLiquidityResult{}, fmt.Errorf("%w: burn %s exceeds supply %s",
			domain.ErrInsufficientShares, lpTokens, st.TotalLiquidity)
	}

	share := lpTokens.Div(st.TotalLiquidity)
	outA := st.ReserveA.Mul(share)
	outB := st.ReserveB.Mul(share)

	st.ReserveA = st.ReserveA.Sub(outA)
	st.ReserveB = st.ReserveB.Sub(outB)
	st.TotalLiquidity = st.TotalLiquidity.Sub(lpTokens)

	return domain.RemoveLiquidityResult{
		AmountA:         outA,
		AmountB:         outB,
		LPTokensBurned:  lpTokens,
		ShareWithdrawed: share,
	}, nil
}

// Reset replaces all state, counters included, with a fresh pool.
// Administrative only; the caller is responsible for gating it.
func (e *Engine) Reset(reserveA, reserveB decimal.Decimal) error {
	if reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return fmt.Errorf("%w: reset reserves must be > 0", domain.ErrInvalidAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	feeRate := e.state.FeeRate
	e.state = freshState(reserveA, reserveB, feeRate)

	slog.Warn("pool reset",
		slog.String("reserve_a", reserveA.String()),
		slog.String("reserve_b", reserveB.String()))
	return nil
}
