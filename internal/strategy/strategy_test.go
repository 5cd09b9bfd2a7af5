package strategy

import (
	"testing"

	"github.com/shopspring/decimal"

	"amm_go/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seededObs(poolPrice string) Observation {
	return Observation{
		Pool: domain.PoolState{
			ReserveA:       dec("10000"),
			ReserveB:       dec("10000"),
			TotalLiquidity: dec("10000"),
		},
		PoolPrice: dec(poolPrice),
		BalanceA:  dec("1000"),
		BalanceB:  dec("1000"),
	}
}

func TestArbitrage_BuysWhenPoolBelowReference(t *testing.T) {
	// priceDiff = (0.99 - 1.00) / 1.00 = -0.01, threshold 0.005 -> buy A
	arb := &Arbitrage{Threshold: dec("0.005"), TradeFraction: dec("0.1")}

	obs := seededObs("0.99")
	obs.ReferencePrice = dec("1.00")
	obs.HasReference = true

	d := arb.Decide(obs)
	if d.Action != domain.ActionSwap {
		t.Fatalf("action = %s, want swap", d.Action)
	}
	if d.TokenIn != domain.TokenB {
		t.Errorf("tokenIn = %s, want B (selling B pushes pool price up)", d.TokenIn)
	}
	if d.AmountIn.Sign() <= 0 {
		t.Error("trade amount should be positive")
	}
}

func TestArbitrage_SellsWhenPoolAboveReference(t *testing.T) {
	arb := &Arbitrage{Threshold: dec("0.005"), TradeFraction: dec("0.1")}

	obs := seededObs("1.02")
	obs.ReferencePrice = dec("1.00")
	obs.HasReference = true

	d := arb.Decide(obs)
	if d.Action != domain.ActionSwap || d.TokenIn != domain.TokenA {
		t.Errorf("got %s/%s, want swap of A in", d.Action, d.TokenIn)
	}
}

func TestArbitrage_HoldsInsideThreshold(t *testing.T) {
	// priceDiff = 0.001 with threshold 0.005: never trade on noise.
	arb := &Arbitrage{Threshold: dec("0.005"), TradeFraction: dec("0.1")}

	obs := seededObs("1.001")
	obs.ReferencePrice = dec("1.00")
	obs.HasReference = true

	if d := arb.Decide(obs); d.Action != domain.ActionHold {
		t.Errorf("action = %s, want hold", d.Action)
	}
}

func TestArbitrage_HoldsWithoutReference(t *testing.T) {
	arb := &Arbitrage{}
	if d := arb.Decide(seededObs("1.0")); d.Action != domain.ActionHold {
		t.Errorf("action = %s, want hold without a reference price", d.Action)
	}
}

func TestArbitrage_HoldsWithoutBalance(t *testing.T) {
	arb := &Arbitrage{Threshold: dec("0.005"), TradeFraction: dec("0.1")}

	obs := seededObs("0.99")
	obs.ReferencePrice = dec("1.00")
	obs.HasReference = true
	obs.BalanceB = decimal.Zero // buying A requires B

	if d := arb.Decide(obs); d.Action != domain.ActionHold {
		t.Errorf("action = %s, want hold with empty balance", d.Action)
	}
}

func TestMarketMaker_SeedsEmptyPool(t *testing.T) {
	mm := &MarketMaker{
		SeedA:            dec("500"),
		SeedB:            dec("500"),
		TargetPrice:      dec("1"),
		RebalanceTrigger: dec("0.02"),
		TradeFraction:    dec("0.05"),
	}

	obs := Observation{
		Pool:      domain.PoolState{TotalLiquidity: decimal.Zero},
		PoolPrice: decimal.Zero,
		BalanceA:  dec("1000"),
		BalanceB:  dec("1000"),
	}

	d := mm.Decide(obs)
	if d.Action != domain.ActionAddLiquidity {
		t.Fatalf("action = %s, want add_liquidity", d.Action)
	}
	if !d.AmountA.Equal(dec("500")) || !d.AmountB.Equal(dec("500")) {
		t.Errorf("seed amounts = %s/%s, want 500/500", d.AmountA, d.AmountB)
	}
	if d.Urgency != domain.UrgencyHigh {
		t.Errorf("urgency = %s, want high", d.Urgency)
	}
}

func TestMarketMaker_HoldsWhenCannotSeed(t *testing.T) {
	mm := &MarketMaker{SeedA: dec("500"), SeedB: dec("500"), TargetPrice: dec("1")}

	obs := Observation{
		Pool:     domain.PoolState{TotalLiquidity: decimal.Zero},
		BalanceA: dec("10"),
		BalanceB: dec("10"),
	}

	if d := mm.Decide(obs); d.Action != domain.ActionHold {
		t.Errorf("action = %s, want hold when balance can't cover seed", d.Action)
	}
}

func TestMarketMaker_RebalancesPastTrigger(t *testing.T) {
	mm := &MarketMaker{
		SeedA:            dec("500"),
		SeedB:            dec("500"),
		TargetPrice:      dec("1"),
		RebalanceTrigger: dec("0.02"),
		TradeFraction:    dec("0.05"),
	}

	// Price 1.10, target 1: sell A to push it down.
	d := mm.Decide(seededObs("1.10"))
	if d.Action != domain.ActionSwap || d.TokenIn != domain.TokenA {
		t.Errorf("got %s/%s, want swap of A in", d.Action, d.TokenIn)
	}

	// Inside the trigger: hold.
	if d := mm.Decide(seededObs("1.01")); d.Action != domain.ActionHold {
		t.Errorf("action = %s, want hold inside trigger", d.Action)
	}
}

func TestSizeTrade_Caps(t *testing.T) {
	// Deviation sizing wants 10000*0.5/2 = 2500, fraction caps to 500,
	// balance caps to 100.
	got := sizeTrade(dec("10000"), dec("0.5"), dec("0.05"), dec("100"))
	if !got.Equal(dec("100")) {
		t.Errorf("sized %s, want 100 (balance cap)", got)
	}

	got = sizeTrade(dec("10000"), dec("0.5"), dec("0.05"), dec("9999"))
	if !got.Equal(dec("500")) {
		t.Errorf("sized %s, want 500 (fraction cap)", got)
	}
}
