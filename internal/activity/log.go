// Package activity keeps the append-only, per-agent record of decisions and
// outcomes. External observers read from here; transport is out of scope.
package activity

import (
	"context"
	"log/slog"
	"sync"

	"amm_go/internal/domain"
)

// Sink receives every appended record for durable storage. A failing sink is
// logged and skipped; the in-memory log is the source of truth for a run.
type Sink interface {
	SaveRecord(ctx context.Context, rec domain.ActivityRecord) error
}

// Log is the in-memory activity log. Retention is bounded per agent; older
// records age out in memory but survive in the sink.
type Log struct {
	mu      sync.RWMutex
	limit   int
	byAgent map[string][]domain.ActivityRecord
	sink    Sink
}

// DefaultRetention is the per-agent in-memory record cap.
const DefaultRetention = 256

// NewLog creates a log keeping up to limit records per agent in memory.
// sink may be nil.
func NewLog(limit int, sink Sink) *Log {
	if limit <= 0 {
		limit = DefaultRetention
	}
	return &Log{
		limit:   limit,
		byAgent: make(map[string][]domain.ActivityRecord),
		sink:    sink,
	}
}

// Append records one cycle outcome. Never fails: a sink error is demoted to
// a warning so recording can never break an agent cycle.
func (l *Log) Append(ctx context.Context, rec domain.ActivityRecord) {
	l.mu.Lock()
	records := append(l.byAgent[rec.AgentID], rec)
	if len(records) > l.limit {
		records = records[len(records)-l.limit:]
	}
	l.byAgent[rec.AgentID] = records
	l.mu.Unlock()

	if l.sink != nil {
		if err := l.sink.SaveRecord(ctx, rec); err != nil {
			slog.Warn("activity sink write failed",
				slog.String("agent", rec.AgentID),
				slog.String("record", rec.ID),
				slog.Any("error", err))
		}
	}
}

// Records returns a copy of the retained records for one agent, oldest first.
func (l *Log) Records(agentID string) []domain.ActivityRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	src := l.byAgent[agentID]
	out := make([]domain.ActivityRecord, len(src))
	copy(out, src)
	return out
}

// Agents lists the agent IDs with retained records.
func (l *Log) Agents() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.byAgent))
	for id := range l.byAgent {
		out = append(out, id)
	}
	return out
}

// Tally counts retained records per outcome for one agent.
func (l *Log) Tally(agentID string) map[domain.Outcome]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tally := make(map[domain.Outcome]int)
	for _, rec := range l.byAgent[agentID] {
		tally[rec.Outcome]++
	}
	return tally
}
