package storage

import (
	"amm_go/internal/domain"
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testRecord(agentID string, cycle uint64, outcome domain.Outcome, ts int64) domain.ActivityRecord {
	return domain.ActivityRecord{
		ID:      uuid.NewString(),
		AgentID: agentID,
		Cycle:   cycle,
		Decision: domain.Decision{
			Action:  domain.ActionSwap,
			TokenIn: domain.TokenA,
			AmountIn: decimal.NewFromInt(10),
			Urgency: domain.UrgencyLow,
			Reason:  "test",
		},
		DecisionSource: "rule",
		GuardAllowed:   true,
		Outcome:        outcome,
		PriceAfter:     decimal.NewFromFloat(1.5),
		TsUnixM:        ts,
	}
}

func TestActivityStore_SaveAndList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "activity.db")

	store, err := NewActivityStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	rec1 := testRecord("alpha", 1, domain.OutcomeExecuted, 1000)
	rec2 := testRecord("alpha", 2, domain.OutcomeHold, 2000)
	rec3 := testRecord("beta", 1, domain.OutcomeRejected, 1500)

	for _, rec := range []domain.ActivityRecord{rec1, rec2, rec3} {
		if err := store.SaveRecord(ctx, rec); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
	}

	loaded, err := store.ListLatest(ctx, "alpha", 10)
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 records for alpha, got %d", len(loaded))
	}

	// Oldest first
	if loaded[0].Cycle != 1 || loaded[1].Cycle != 2 {
		t.Errorf("Record order mismatch: got cycles %d, %d", loaded[0].Cycle, loaded[1].Cycle)
	}
	if loaded[0].Decision.Action != domain.ActionSwap {
		t.Errorf("Decision payload mismatch: got action %q", loaded[0].Decision.Action)
	}
	if !loaded[0].Decision.AmountIn.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Decision amount mismatch: got %s", loaded[0].Decision.AmountIn)
	}

	all, err := store.ListLatest(ctx, "", 10)
	if err != nil {
		t.Fatalf("Failed to list all records: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 records across agents, got %d", len(all))
	}
}

func TestActivityStore_ListLimit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "activity.db")

	store, err := NewActivityStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	for i := uint64(1); i <= 5; i++ {
		rec := testRecord("alpha", i, domain.OutcomeExecuted, int64(i*1000))
		if err := store.SaveRecord(ctx, rec); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
	}

	loaded, err := store.ListLatest(ctx, "alpha", 2)
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(loaded))
	}

	// Latest two cycles, oldest first
	if loaded[0].Cycle != 4 || loaded[1].Cycle != 5 {
		t.Errorf("Expected cycles 4, 5; got %d, %d", loaded[0].Cycle, loaded[1].Cycle)
	}
}

func TestActivityStore_CountByOutcome(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "activity.db")

	store, err := NewActivityStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	outcomes := []domain.Outcome{
		domain.OutcomeExecuted,
		domain.OutcomeExecuted,
		domain.OutcomeHold,
		domain.OutcomeRejected,
	}
	for i, outcome := range outcomes {
		rec := testRecord("alpha", uint64(i+1), outcome, int64((i+1)*1000))
		if err := store.SaveRecord(ctx, rec); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
	}

	counts, err := store.CountByOutcome(ctx, "alpha")
	if err != nil {
		t.Fatalf("CountByOutcome failed: %v", err)
	}
	if counts[domain.OutcomeExecuted] != 2 {
		t.Errorf("Expected 2 executed, got %d", counts[domain.OutcomeExecuted])
	}
	if counts[domain.OutcomeHold] != 1 {
		t.Errorf("Expected 1 hold, got %d", counts[domain.OutcomeHold])
	}
	if counts[domain.OutcomeRejected] != 1 {
		t.Errorf("Expected 1 rejected, got %d", counts[domain.OutcomeRejected])
	}
}

func TestActivityStore_Metadata(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "activity.db")

	store, err := NewActivityStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Missing key reads as empty
	val, err := store.GetMetadata(ctx, "run_id")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if val != "" {
		t.Errorf("Expected empty value for missing key, got %q", val)
	}

	if err := store.UpsertMetadata(ctx, "run_id", "run-1", 1000); err != nil {
		t.Fatalf("UpsertMetadata failed: %v", err)
	}
	if err := store.UpsertMetadata(ctx, "run_id", "run-2", 2000); err != nil {
		t.Fatalf("UpsertMetadata upsert failed: %v", err)
	}

	val, err = store.GetMetadata(ctx, "run_id")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if val != "run-2" {
		t.Errorf("Expected run-2 after upsert, got %q", val)
	}
}
