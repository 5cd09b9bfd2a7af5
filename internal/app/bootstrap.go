package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"amm_go/internal/activity"
	"amm_go/internal/agent"
	"amm_go/internal/guard"
	"amm_go/internal/infra"
	"amm_go/internal/llm"
	"amm_go/internal/pool"
	"amm_go/internal/storage"
	"amm_go/internal/strategy"
)

// Bootstrap orchestrates the application startup sequence and owns the
// long-lived pieces: pool, stores, reference source and agents.
type Bootstrap struct {
	Config    *infra.Config
	Pool      *pool.Engine
	Store     *storage.ActivityStore
	Snapshots *storage.SnapshotManager
	Log       *activity.Log
	Agents    []*agent.Runner

	reference referenceSource
	unlock    func()
}

// referenceSource is what both the polling client and the WS feed provide.
type referenceSource interface {
	agent.ReferencePricer
	Stop()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, logger, data
// directories, stores, pool restore and agent construction.
func (b *Bootstrap) Initialize() error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	infra.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("Bootstrapping", slog.String("app", cfg.App.Name), slog.String("version", cfg.App.Version))

	dataDir := cfg.Storage.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(infra.GetWorkspaceDir(), "data")
	}
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// One process per data dir; concurrent writers would corrupt the store.
	unlock, err := infra.CreateLockFile(dataDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	store, err := storage.NewActivityStore(filepath.Join(dataDir, "activity.db"))
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("Activity store initialized (WAL-mode)", slog.String("dir", dataDir))

	b.Snapshots = storage.NewSnapshotManager(filepath.Join(dataDir, "snapshots"))
	if err := b.restorePool(); err != nil {
		return err
	}

	b.Log = activity.NewLog(cfg.Storage.Retention, store)

	b.buildReference()
	if err := b.buildAgents(); err != nil {
		return err
	}

	return nil
}

// restorePool loads the latest snapshot when one exists, otherwise creates
// the pool from configuration. Zero configured reserves start the pool
// unseeded, waiting for a market maker's bootstrap deposit.
func (b *Bootstrap) restorePool() error {
	feeRate := decimal.NewFromFloat(b.Config.Pool.FeeRate)

	snap, err := b.Snapshots.LoadLatest()
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snap != nil {
		b.Pool = pool.Restore(snap.Pool)
		slog.Info("Pool restored from snapshot",
			slog.Uint64("cycle", snap.Cycle),
			slog.String("reserve_a", snap.Pool.ReserveA.String()),
			slog.String("reserve_b", snap.Pool.ReserveB.String()))
		return nil
	}

	if b.Config.Pool.ReserveA > 0 {
		b.Pool, err = pool.New(
			decimal.NewFromFloat(b.Config.Pool.ReserveA),
			decimal.NewFromFloat(b.Config.Pool.ReserveB),
			feeRate)
	} else {
		b.Pool, err = pool.NewEmpty(feeRate)
	}
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	slog.Info("Pool created",
		slog.String("reserve_a", b.Pool.State().ReserveA.String()),
		slog.String("reserve_b", b.Pool.State().ReserveB.String()),
		slog.String("fee_rate", feeRate.String()))
	return nil
}

func (b *Bootstrap) buildReference() {
	switch b.Config.Reference.Mode {
	case "poll":
		b.reference = infra.NewReferencePriceClient(
			b.Config.Reference.URL, b.Config.Reference.PollIntervalSec, nil)
	case "ws":
		b.reference = infra.NewReferenceFeed(b.Config.Reference.WSURL, "")
	}
}

func (b *Bootstrap) buildAgents() error {
	var llmClient llm.Client
	var err error
	if b.Config.LLM.Provider != "" {
		llmClient, err = llm.New(llm.Config{
			Provider:       b.Config.LLM.Provider,
			Model:          b.Config.LLM.Model,
			BaseURL:        b.Config.LLM.BaseURL,
			APIKey:         b.Config.LLM.APIKey,
			Temperature:    b.Config.LLM.Temperature,
			TimeoutSeconds: b.Config.LLM.TimeoutSec,
		})
		if err != nil {
			return fmt.Errorf("failed to build llm client: %w", err)
		}
	}

	for _, ac := range b.Config.Agents {
		limits := guard.Limits{
			MaxAmountPerTx:            decimal.NewFromFloat(ac.Limits.MaxAmountPerTx),
			SessionBudget:             decimal.NewFromFloat(ac.Limits.SessionBudget),
			MaxPriceImpact:            decimal.NewFromFloat(ac.Limits.MaxPriceImpact),
			MinReserveA:               decimal.NewFromFloat(ac.Limits.MinReserveA),
			MinReserveB:               decimal.NewFromFloat(ac.Limits.MinReserveB),
			WarnThreshold:             decimal.NewFromFloat(ac.Limits.WarnThreshold),
			RebalanceTriggerDeviation: decimal.NewFromFloat(ac.Limits.RebalanceTrigger),
			TargetPrice:               decimal.NewFromFloat(ac.Limits.TargetPrice),
		}
		g, err := guard.New(ac.ID, limits)
		if err != nil {
			return err
		}

		wallet := agent.NewWallet(
			decimal.NewFromFloat(ac.Wallet.BalanceA),
			decimal.NewFromFloat(ac.Wallet.BalanceB))

		strat, err := buildStrategy(ac, limits)
		if err != nil {
			return err
		}

		var source agent.DecisionSource
		if ac.UseLLM && llmClient != nil {
			source = agent.NewLLMSource(llmClient, ac.Role)
		}

		var ref agent.ReferencePricer
		if b.reference != nil {
			ref = b.reference
		}

		runner, err := agent.NewRunner(agent.Config{
			ID:        ac.ID,
			Interval:  time.Duration(ac.IntervalSec) * time.Second,
			Pool:      b.Pool,
			Guard:     g,
			Wallet:    wallet,
			Strategy:  strat,
			Source:    source,
			Reference: ref,
			Log:       b.Log,
		})
		if err != nil {
			return err
		}
		b.Agents = append(b.Agents, runner)
	}

	return nil
}

func buildStrategy(ac infra.AgentConfig, limits guard.Limits) (strategy.Strategy, error) {
	fraction := decimal.NewFromFloat(ac.TradeFraction)

	switch ac.Strategy {
	case infra.StrategyMarketMaker:
		return &strategy.MarketMaker{
			SeedA:            decimal.NewFromFloat(ac.Wallet.BalanceA).Div(decimal.NewFromInt(2)),
			SeedB:            decimal.NewFromFloat(ac.Wallet.BalanceB).Div(decimal.NewFromInt(2)),
			TargetPrice:      limits.TargetPrice,
			RebalanceTrigger: limits.RebalanceTriggerDeviation,
			TradeFraction:    fraction,
		}, nil
	case infra.StrategyArbitrage:
		return &strategy.Arbitrage{
			Threshold:     decimal.NewFromFloat(ac.ArbThreshold),
			TradeFraction: fraction,
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", ac.Strategy)
	}
}

// Start launches the reference source and all agents.
func (b *Bootstrap) Start(ctx context.Context) error {
	switch ref := b.reference.(type) {
	case *infra.ReferencePriceClient:
		if err := ref.Start(ctx); err != nil {
			return err
		}
	case *infra.ReferenceFeed:
		ref.Start(ctx)
	}

	for _, runner := range b.Agents {
		runner.Start(ctx)
	}
	slog.Info("All agents started", slog.Int("count", len(b.Agents)))
	return nil
}

// Shutdown stops the agents, persists a final snapshot and closes the store.
func (b *Bootstrap) Shutdown(ctx context.Context) {
	for _, runner := range b.Agents {
		runner.Stop()
	}
	if b.reference != nil {
		b.reference.Stop()
	}

	var maxCycle uint64
	for _, runner := range b.Agents {
		if c := runner.Cycle(); c > maxCycle {
			maxCycle = c
		}
	}
	snap := storage.CreateSnapshot(maxCycle, b.Pool.State())
	if err := b.Snapshots.Save(snap); err != nil {
		slog.Error("Failed to save final snapshot", slog.Any("error", err))
	}
	keep := b.Config.Storage.SnapshotKeep
	if keep <= 0 {
		keep = 5
	}
	if err := b.Snapshots.Cleanup(keep); err != nil {
		slog.Warn("Snapshot cleanup failed", slog.Any("error", err))
	}

	if err := b.Store.Close(); err != nil {
		slog.Warn("Failed to close activity store", slog.Any("error", err))
	}
	if b.unlock != nil {
		b.unlock()
	}
	slog.Info("Shutdown complete")
}
