package domain

import "github.com/shopspring/decimal"

// Token identifies one side of the pool pair.
type Token string

const (
	TokenA Token = "A"
	TokenB Token = "B"
)

// Valid reports whether t names a pool side.
func (t Token) Valid() bool {
	return t == TokenA || t == TokenB
}

// Other returns the opposing side.
func (t Token) Other() Token {
	if t == TokenA {
		return TokenB
	}
	return TokenA
}

// PoolState is the sole mutable shared entity: reserves, share supply and
// cumulative counters of a constant-product pool. Counters only ever grow.
type PoolState struct {
	ReserveA       decimal.Decimal `json:"reserve_a"`
	ReserveB       decimal.Decimal `json:"reserve_b"`
	TotalLiquidity decimal.Decimal `json:"total_liquidity"`
	FeeRate        decimal.Decimal `json:"fee_rate"`

	SwapCount      uint64          `json:"swap_count"`
	VolumeA        decimal.Decimal `json:"volume_a"`
	VolumeB        decimal.Decimal `json:"volume_b"`
	FeesCollectedA decimal.Decimal `json:"fees_collected_a"`
	FeesCollectedB decimal.Decimal `json:"fees_collected_b"`
}

// Price returns reserveB/reserveA, the price of A denominated in B.
// Zero if the pool is unseeded.
func (s PoolState) Price() decimal.Decimal {
	if s.ReserveA.IsZero() {
		return decimal.Zero
	}
	return s.ReserveB.Div(s.ReserveA)
}

// Invariant returns reserveA * reserveB.
func (s PoolState) Invariant() decimal.Decimal {
	return s.ReserveA.Mul(s.ReserveB)
}

// QuoteResult is the pure preview of a swap: no state is mutated.
// NewReserveA/B are the reserves the pool would hold after commit (the fee
// stays in the input-side reserve).
type QuoteResult struct {
	TokenIn     Token           `json:"token_in"`
	AmountIn    decimal.Decimal `json:"amount_in"`
	AmountOut   decimal.Decimal `json:"amount_out"`
	FeeCharged  decimal.Decimal `json:"fee_charged"`
	PriceImpact decimal.Decimal `json:"price_impact"`
	NewReserveA decimal.Decimal `json:"new_reserve_a"`
	NewReserveB decimal.Decimal `json:"new_reserve_b"`
}

// SwapResult records a committed swap.
type SwapResult struct {
	TokenIn     Token           `json:"token_in"`
	AmountIn    decimal.Decimal `json:"amount_in"`
	AmountOut   decimal.Decimal `json:"amount_out"`
	FeeCharged  decimal.Decimal `json:"fee_charged"`
	PriceImpact decimal.Decimal `json:"price_impact"`
	PriceAfter  decimal.Decimal `json:"price_after"`
}

// LiquidityResult records a committed deposit. ActualA/ActualB are the
// amounts the pool accepted after re-ratioing; UnusedA/UnusedB are the
// caller's stated excess, reported so the caller can reclaim it.
type LiquidityResult struct {
	ActualA        decimal.Decimal `json:"actual_a"`
	ActualB        decimal.Decimal `json:"actual_b"`
	UnusedA        decimal.Decimal `json:"unused_a"`
	UnusedB        decimal.Decimal `json:"unused_b"`
	LPTokensMinted decimal.Decimal `json:"lp_tokens_minted"`
	ShareOfPool    decimal.Decimal `json:"share_of_pool"`
}

// RemoveLiquidityResult records a committed withdrawal.
type RemoveLiquidityResult struct {
	AmountA         decimal.Decimal `json:"amount_a"`
	AmountB         decimal.Decimal `json:"amount_b"`
	LPTokensBurned  decimal.Decimal `json:"lp_tokens_burned"`
	ShareWithdrawed decimal.Decimal `json:"share_withdrawn"`
}
