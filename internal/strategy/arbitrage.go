package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"amm_go/internal/domain"
	"amm_go/pkg/quant"
)

// DefaultArbThreshold is the minimum fractional pool/reference divergence
// worth trading on. Below it the agent holds; fees eat anything smaller.
var DefaultArbThreshold = decimal.RequireFromString("0.005")

// Arbitrage trades the pool back toward an external reference price whenever
// the divergence clears the threshold.
type Arbitrage struct {
	// Threshold is the minimum |priceDiff| to act on. Zero means default.
	Threshold decimal.Decimal

	// TradeFraction caps a trade at this fraction of the input reserve.
	TradeFraction decimal.Decimal
}

func (a *Arbitrage) Name() string { return "arbitrage" }

func (a *Arbitrage) threshold() decimal.Decimal {
	if a.Threshold.Sign() > 0 {
		return a.Threshold
	}
	return DefaultArbThreshold
}

// Decide computes priceDiff = (poolPrice - referencePrice) / referencePrice.
// Pool below reference: A is cheap in the pool, so sell B in (buy A, price
// rises). Pool above reference: sell A in. Inside the threshold: hold,
// never trade on noise.
func (a *Arbitrage) Decide(obs Observation) domain.Decision {
	if !obs.HasReference || obs.ReferencePrice.Sign() <= 0 {
		return domain.Hold("no reference price available")
	}
	if obs.Pool.TotalLiquidity.IsZero() || obs.PoolPrice.Sign() <= 0 {
		return domain.Hold("pool has no liquidity to arbitrage")
	}

	diff := quant.Deviation(obs.PoolPrice, obs.ReferencePrice)
	th := a.threshold()

	if diff.Abs().LessThan(th) {
		return domain.Hold(fmt.Sprintf("price diff %s inside threshold %s",
			diff.StringFixed(5), th))
	}

	tokenIn := domain.TokenA
	reserveIn := obs.Pool.ReserveA
	balance := obs.BalanceA
	if diff.Sign() < 0 {
		// Pool price below reference: push it up by selling B.
		tokenIn = domain.TokenB
		reserveIn = obs.Pool.ReserveB
		balance = obs.BalanceB
	}

	amount := sizeTrade(reserveIn, diff.Abs(), a.TradeFraction, balance)
	if amount.Sign() <= 0 {
		return domain.Hold(fmt.Sprintf("arb opportunity (%s) but no %s balance",
			diff.StringFixed(5), tokenIn))
	}

	return domain.Decision{
		Action:   domain.ActionSwap,
		TokenIn:  tokenIn,
		AmountIn: amount,
		Reason: fmt.Sprintf("arbitrage: pool %s vs reference %s (diff %s)",
			obs.PoolPrice.StringFixed(6), obs.ReferencePrice.StringFixed(6), diff.StringFixed(5)),
		Urgency: urgencyFor(diff.Abs(), th),
	}
}
