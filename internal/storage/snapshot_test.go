package storage

import (
	"amm_go/internal/domain"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func testPoolState(reserveA, reserveB int64) domain.PoolState {
	return domain.PoolState{
		ReserveA:       decimal.NewFromInt(reserveA),
		ReserveB:       decimal.NewFromInt(reserveB),
		TotalLiquidity: decimal.NewFromInt(1000),
		FeeRate:        decimal.NewFromFloat(0.003),
		SwapCount:      7,
	}
}

func TestSnapshotManager_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	snap := CreateSnapshot(42, testPoolState(10000, 10000))
	if err := sm.Save(snap); err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected snapshot, got nil")
	}

	if loaded.Cycle != 42 {
		t.Errorf("Cycle mismatch: got %d", loaded.Cycle)
	}
	if !loaded.Pool.ReserveA.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("ReserveA mismatch: got %s", loaded.Pool.ReserveA)
	}
	if loaded.Pool.SwapCount != 7 {
		t.Errorf("SwapCount mismatch: got %d", loaded.Pool.SwapCount)
	}
}

func TestSnapshotManager_LoadLatestPicksHighestCycle(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	for _, cycle := range []uint64{10, 30, 20} {
		snap := CreateSnapshot(cycle, testPoolState(int64(cycle), int64(cycle*2)))
		if err := sm.Save(snap); err != nil {
			t.Fatalf("Failed to save snapshot %d: %v", cycle, err)
		}
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	if loaded.Cycle != 30 {
		t.Errorf("Expected cycle 30, got %d", loaded.Cycle)
	}
	if !loaded.Pool.ReserveA.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Loaded wrong snapshot state: reserveA %s", loaded.Pool.ReserveA)
	}
}

func TestSnapshotManager_LoadLatestEmpty(t *testing.T) {
	sm := NewSnapshotManager(filepath.Join(t.TempDir(), "missing"))

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("Expected nil error for missing dir, got %v", err)
	}
	if loaded != nil {
		t.Errorf("Expected nil snapshot, got cycle %d", loaded.Cycle)
	}
}

func TestSnapshotManager_Cleanup(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	for cycle := uint64(1); cycle <= 5; cycle++ {
		snap := CreateSnapshot(cycle, testPoolState(1000, 1000))
		if err := sm.Save(snap); err != nil {
			t.Fatalf("Failed to save snapshot %d: %v", cycle, err)
		}
	}

	if err := sm.Cleanup(2); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 snapshots after cleanup, got %d", len(entries))
	}

	// Latest survives cleanup
	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	if loaded.Cycle != 5 {
		t.Errorf("Expected cycle 5 after cleanup, got %d", loaded.Cycle)
	}
}
