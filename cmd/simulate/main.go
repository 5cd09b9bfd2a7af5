package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"amm_go/internal/activity"
	"amm_go/internal/agent"
	"amm_go/internal/domain"
	"amm_go/internal/guard"
	"amm_go/internal/infra"
	"amm_go/internal/pool"
	"amm_go/internal/strategy"
)

// scriptedReference random-walks a reference price around a drifting mean.
// Deterministic for a fixed seed.
type scriptedReference struct {
	mu    sync.Mutex
	rng   *rand.Rand
	price decimal.Decimal
}

func newScriptedReference(seed int64, start float64) *scriptedReference {
	return &scriptedReference{
		rng:   rand.New(rand.NewSource(seed)),
		price: decimal.NewFromFloat(start),
	}
}

func (s *scriptedReference) Price() (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.price, true
}

func (s *scriptedReference) step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	// +/- up to 1% per step
	move := (s.rng.Float64() - 0.5) * 0.02
	s.price = s.price.Mul(decimal.NewFromFloat(1 + move))
}

func main() {
	cycles := flag.Int("cycles", 200, "decision cycles per agent")
	fee := flag.Float64("fee", 0.003, "pool fee rate")
	seed := flag.Int64("seed", 42, "reference price seed")
	flag.Parse()

	infra.NewLogger("warn", "text")

	eng, err := pool.NewEmpty(decimal.NewFromFloat(*fee))
	if err != nil {
		slog.Error("Failed to create pool", slog.Any("error", err))
		os.Exit(1)
	}

	log := activity.NewLog(*cycles+1, nil)
	ref := newScriptedReference(*seed, 1.0)

	mm := buildAgent(eng, log, ref, "mm-1", &strategy.MarketMaker{
		SeedA:            decimal.NewFromInt(5000),
		SeedB:            decimal.NewFromInt(5000),
		TargetPrice:      decimal.NewFromInt(1),
		RebalanceTrigger: decimal.NewFromFloat(0.02),
		TradeFraction:    decimal.NewFromFloat(0.05),
	}, decimal.NewFromInt(10000), decimal.NewFromInt(10000), decimal.NewFromInt(20000))

	arb := buildAgent(eng, log, ref, "arb-1", &strategy.Arbitrage{
		Threshold:     decimal.NewFromFloat(0.005),
		TradeFraction: decimal.NewFromFloat(0.02),
	}, decimal.NewFromInt(2000), decimal.NewFromInt(2000), decimal.NewFromInt(500))

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < *cycles; i++ {
		ref.step()
		mm.RunCycle(ctx)
		arb.RunCycle(ctx)
	}
	elapsed := time.Since(start)

	st := eng.State()
	fmt.Printf("\nSimulation: %d cycles x 2 agents in %s\n\n", *cycles, elapsed)
	fmt.Printf("Pool:  reserve A %s, reserve B %s, price %s\n",
		st.ReserveA.StringFixed(4), st.ReserveB.StringFixed(4), st.Price().StringFixed(6))
	fmt.Printf("       swaps %d, fees %s A / %s B\n\n",
		st.SwapCount, st.FeesCollectedA.StringFixed(4), st.FeesCollectedB.StringFixed(4))

	for _, id := range log.Agents() {
		tally := log.Tally(id)
		fmt.Printf("Agent %-8s executed=%d hold=%d rejected=%d failed=%d observed=%d\n",
			id,
			tally[domain.OutcomeExecuted],
			tally[domain.OutcomeHold],
			tally[domain.OutcomeRejected],
			tally[domain.OutcomeFailed],
			tally[domain.OutcomeObserved])
	}
}

func buildAgent(eng *pool.Engine, log *activity.Log, ref agent.ReferencePricer,
	id string, strat strategy.Strategy, balA, balB, maxPerTx decimal.Decimal) *agent.Runner {

	limits := guard.Limits{
		MaxAmountPerTx: maxPerTx,
		SessionBudget:  decimal.NewFromInt(100000),
		MaxPriceImpact: decimal.NewFromFloat(0.10),
		MinReserveA:    decimal.NewFromInt(100),
		MinReserveB:    decimal.NewFromInt(100),
		TargetPrice:    decimal.NewFromInt(1),
	}
	g, err := guard.New(id, limits)
	if err != nil {
		slog.Error("Failed to create guard", slog.Any("error", err))
		os.Exit(1)
	}

	runner, err := agent.NewRunner(agent.Config{
		ID:        id,
		Interval:  time.Second,
		Pool:      eng,
		Guard:     g,
		Wallet:    agent.NewWallet(balA, balB),
		Strategy:  strat,
		Reference: ref,
		Log:       log,
	})
	if err != nil {
		slog.Error("Failed to create agent", slog.Any("error", err))
		os.Exit(1)
	}
	return runner
}
