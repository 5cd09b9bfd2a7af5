package storage

import (
	"amm_go/internal/domain"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
)

// ActivityStore handles persistent storage of agent activity records in SQLite.
type ActivityStore struct {
	db *sql.DB
}

// NewActivityStore creates a new SQLite activity store with WAL mode enabled.
func NewActivityStore(dbPath string) (*ActivityStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Configure SQLite for append-heavy activity logging
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	// Create metadata table for KV storage (run markers, schema version)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	// Create activity table; payload carries the full record as JSON,
	// indexed columns cover the common query paths
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS activity (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			cycle INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_activity_agent_ts ON activity (agent_id, ts);`)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity index: %w", err)
	}

	return &ActivityStore{db: db}, nil
}

// SaveRecord stores an activity record in the database.
func (s *ActivityStore) SaveRecord(ctx context.Context, rec domain.ActivityRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO activity (id, agent_id, cycle, outcome, ts, payload) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.AgentID, rec.Cycle, string(rec.Outcome), rec.TsUnixM, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// ListLatest returns the most recent records for one agent, oldest first.
// agentID "" lists across all agents.
func (s *ActivityStore) ListLatest(ctx context.Context, agentID string, limit int) ([]domain.ActivityRecord, error) {
	query := "SELECT payload FROM activity WHERE agent_id = ? ORDER BY ts DESC, cycle DESC LIMIT ?"
	args := []any{agentID, limit}
	if agentID == "" {
		query = "SELECT payload FROM activity ORDER BY ts DESC, cycle DESC LIMIT ?"
		args = []any{limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []domain.ActivityRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		var rec domain.ActivityRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	// Newest-first from SQL, flip to oldest-first for callers
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, nil
}

// CountByOutcome returns how many stored records ended with each outcome
// for one agent.
func (s *ActivityStore) CountByOutcome(ctx context.Context, agentID string) (map[domain.Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT outcome, COUNT(*) FROM activity WHERE agent_id = ? GROUP BY outcome",
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcome counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts[domain.Outcome(outcome)] = n
	}

	return counts, rows.Err()
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (s *ActivityStore) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table.
func (s *ActivityStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (s *ActivityStore) Close() error {
	return s.db.Close()
}
