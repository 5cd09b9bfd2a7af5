package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"amm_go/internal/domain"
	"amm_go/pkg/quant"
)

// MarketMaker seeds an empty pool and afterwards nudges the pool price back
// toward a target whenever it drifts past the rebalance trigger.
type MarketMaker struct {
	// SeedA/SeedB fund the bootstrap deposit when the pool is unseeded.
	SeedA decimal.Decimal
	SeedB decimal.Decimal

	// TargetPrice and RebalanceTrigger drive the rebalancing rule:
	// deviation beyond the trigger produces a corrective swap.
	TargetPrice      decimal.Decimal
	RebalanceTrigger decimal.Decimal

	// TradeFraction caps a corrective swap at this fraction of the input
	// reserve.
	TradeFraction decimal.Decimal
}

func (m *MarketMaker) Name() string { return "market_maker" }

// Decide implements the market-maker rules:
//  1. unseeded pool + sufficient balance -> seed
//  2. price off target beyond the trigger -> corrective swap sized to
//     balance and TradeFraction
//  3. otherwise hold, reporting the observed state
func (m *MarketMaker) Decide(obs Observation) domain.Decision {
	if obs.Pool.TotalLiquidity.IsZero() {
		if obs.BalanceA.GreaterThanOrEqual(m.SeedA) && obs.BalanceB.GreaterThanOrEqual(m.SeedB) {
			return domain.Decision{
				Action:  domain.ActionAddLiquidity,
				AmountA: m.SeedA,
				AmountB: m.SeedB,
				Reason:  "pool unseeded, providing initial liquidity",
				Urgency: domain.UrgencyHigh,
			}
		}
		return domain.Hold(fmt.Sprintf("pool unseeded, balance insufficient to seed (%s A / %s B held)",
			obs.BalanceA, obs.BalanceB))
	}

	if m.TargetPrice.Sign() <= 0 || obs.PoolPrice.Sign() <= 0 {
		return domain.Hold("no price to rebalance against")
	}

	dev := quant.Deviation(obs.PoolPrice, m.TargetPrice)
	if dev.Abs().LessThanOrEqual(m.RebalanceTrigger) {
		return domain.Hold(fmt.Sprintf("price %s within %s of target %s",
			obs.PoolPrice.StringFixed(6), m.RebalanceTrigger, m.TargetPrice))
	}

	// Price above target: sell A into the pool to push it down.
	// Price below target: sell B to push it up.
	tokenIn := domain.TokenA
	reserveIn := obs.Pool.ReserveA
	balance := obs.BalanceA
	if dev.Sign() < 0 {
		tokenIn = domain.TokenB
		reserveIn = obs.Pool.ReserveB
		balance = obs.BalanceB
	}

	amount := sizeTrade(reserveIn, dev.Abs(), m.TradeFraction, balance)
	if amount.Sign() <= 0 {
		return domain.Hold(fmt.Sprintf("rebalance wanted but no %s balance", tokenIn))
	}

	return domain.Decision{
		Action:   domain.ActionSwap,
		TokenIn:  tokenIn,
		AmountIn: amount,
		Reason: fmt.Sprintf("rebalancing: price %s deviates %s from target %s",
			obs.PoolPrice.StringFixed(6), dev.StringFixed(4), m.TargetPrice),
		Urgency: urgencyFor(dev.Abs(), m.RebalanceTrigger),
	}
}

// sizeTrade sizes a corrective swap: half the deviation applied to the input
// reserve, capped by the trade fraction and the agent's balance.
func sizeTrade(reserveIn, deviation, fraction, balance decimal.Decimal) decimal.Decimal {
	two := decimal.NewFromInt(2)
	amount := reserveIn.Mul(deviation).Div(two)

	cap := reserveIn.Mul(fraction)
	if fraction.Sign() > 0 && amount.GreaterThan(cap) {
		amount = cap
	}
	if amount.GreaterThan(balance) {
		amount = balance
	}
	return amount
}

// urgencyFor grades a deviation relative to its trigger.
func urgencyFor(deviation, trigger decimal.Decimal) domain.Urgency {
	if trigger.Sign() <= 0 {
		return domain.UrgencyMedium
	}
	if deviation.GreaterThan(trigger.Mul(decimal.NewFromInt(4))) {
		return domain.UrgencyHigh
	}
	return domain.UrgencyMedium
}
