package agent

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"amm_go/internal/domain"
)

// Wallet tracks one agent's virtual holdings: both pool assets plus the LP
// tokens it has been minted. All movements go through Apply* methods so the
// book can never go negative.
type Wallet struct {
	mu       sync.Mutex
	balanceA decimal.Decimal
	balanceB decimal.Decimal
	lpTokens decimal.Decimal
}

// NewWallet creates a wallet funded with the given asset balances.
func NewWallet(balanceA, balanceB decimal.Decimal) *Wallet {
	return &Wallet{
		balanceA: balanceA,
		balanceB: balanceB,
		lpTokens: decimal.Zero,
	}
}

// Balances returns the current holdings.
func (w *Wallet) Balances() (balanceA, balanceB, lpTokens decimal.Decimal) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balanceA, w.balanceB, w.lpTokens
}

// CanCover reports whether the wallet holds enough to fund the decision.
func (w *Wallet) CanCover(d domain.Decision) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch d.Action {
	case domain.ActionSwap:
		bal := w.balanceA
		if d.TokenIn == domain.TokenB {
			bal = w.balanceB
		}
		if bal.LessThan(d.AmountIn) {
			return fmt.Errorf("insufficient %s balance: need %s, have %s",
				d.TokenIn, d.AmountIn, bal)
		}
	case domain.ActionAddLiquidity:
		if w.balanceA.LessThan(d.AmountA) {
			return fmt.Errorf("insufficient A balance: need %s, have %s", d.AmountA, w.balanceA)
		}
		if w.balanceB.LessThan(d.AmountB) {
			return fmt.Errorf("insufficient B balance: need %s, have %s", d.AmountB, w.balanceB)
		}
	case domain.ActionRemoveLiquidity:
		if w.lpTokens.LessThan(d.LPTokens) {
			return fmt.Errorf("insufficient lp tokens: need %s, have %s", d.LPTokens, w.lpTokens)
		}
	}
	return nil
}

// ApplySwap settles an executed swap: debit the input side, credit the output.
func (w *Wallet) ApplySwap(res domain.SwapResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	in, out := &w.balanceA, &w.balanceB
	if res.TokenIn == domain.TokenB {
		in, out = &w.balanceB, &w.balanceA
	}
	if in.LessThan(res.AmountIn) {
		return fmt.Errorf("insufficient %s balance: need %s, have %s",
			res.TokenIn, res.AmountIn, *in)
	}

	*in = in.Sub(res.AmountIn)
	*out = out.Add(res.AmountOut)
	return nil
}

// ApplyAddLiquidity settles an executed deposit. Only the actually-used
// amounts are debited; unused excess never left the wallet.
func (w *Wallet) ApplyAddLiquidity(res domain.LiquidityResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.balanceA.LessThan(res.ActualA) {
		return fmt.Errorf("insufficient A balance: need %s, have %s", res.ActualA, w.balanceA)
	}
	if w.balanceB.LessThan(res.ActualB) {
		return fmt.Errorf("insufficient B balance: need %s, have %s", res.ActualB, w.balanceB)
	}

	w.balanceA = w.balanceA.Sub(res.ActualA)
	w.balanceB = w.balanceB.Sub(res.ActualB)
	w.lpTokens = w.lpTokens.Add(res.LPTokensMinted)
	return nil
}

// ApplyRemoveLiquidity settles an executed withdrawal.
func (w *Wallet) ApplyRemoveLiquidity(res domain.RemoveLiquidityResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.lpTokens.LessThan(res.LPTokensBurned) {
		return fmt.Errorf("insufficient lp tokens: need %s, have %s", res.LPTokensBurned, w.lpTokens)
	}

	w.lpTokens = w.lpTokens.Sub(res.LPTokensBurned)
	w.balanceA = w.balanceA.Add(res.AmountA)
	w.balanceB = w.balanceB.Add(res.AmountB)
	return nil
}

// TotalEquity values the wallet in asset B terms at the given pool price
// and, for LP holdings, the given pool state.
func (w *Wallet) TotalEquity(pool domain.PoolState) decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()

	equity := w.balanceB.Add(w.balanceA.Mul(pool.Price()))
	if w.lpTokens.Sign() > 0 && pool.TotalLiquidity.Sign() > 0 {
		share := w.lpTokens.Div(pool.TotalLiquidity)
		lpValueA := pool.ReserveA.Mul(share)
		lpValueB := pool.ReserveB.Mul(share)
		equity = equity.Add(lpValueB).Add(lpValueA.Mul(pool.Price()))
	}
	return equity
}
