package storage

import (
	"amm_go/internal/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PoolSnapshot is a point-in-time capture of pool state.
// Used to restore the pool across restarts instead of replaying activity.
type PoolSnapshot struct {
	Cycle  uint64           `json:"cycle"` // Highest completed decision cycle
	TsUnix int64            `json:"ts"`    // Snapshot creation timestamp (Unix seconds)
	Pool   domain.PoolState `json:"pool"`  // Pool state at snapshot time
}

// SnapshotManager handles saving and loading pool snapshots.
type SnapshotManager struct {
	dir string
}

// NewSnapshotManager creates a new snapshot manager.
// dir: directory to store snapshot files.
func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

// CreateSnapshot builds a snapshot from the current pool state.
func CreateSnapshot(cycle uint64, pool domain.PoolState) *PoolSnapshot {
	return &PoolSnapshot{
		Cycle:  cycle,
		TsUnix: time.Now().Unix(),
		Pool:   pool,
	}
}

// Save writes a snapshot to disk.
func (sm *SnapshotManager) Save(snap *PoolSnapshot) error {
	// Ensure directory exists
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	filename := fmt.Sprintf("pool_%d_%d.json", snap.Cycle, snap.TsUnix)
	path := filepath.Join(sm.dir, filename)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Info("Snapshot saved",
		slog.Uint64("cycle", snap.Cycle),
		slog.String("path", path))

	return nil
}

// LoadLatest loads the most recent snapshot from disk.
// Returns nil if no snapshot exists.
func (sm *SnapshotManager) LoadLatest() (*PoolSnapshot, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No snapshots yet
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	var latestPath string
	var latestCycle uint64
	var latestTs int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		var cycle uint64
		var ts int64
		_, err := fmt.Sscanf(entry.Name(), "pool_%d_%d.json", &cycle, &ts)
		if err != nil {
			continue // Not a snapshot file
		}

		if latestPath == "" || cycle > latestCycle || (cycle == latestCycle && ts > latestTs) {
			latestCycle = cycle
			latestTs = ts
			latestPath = filepath.Join(sm.dir, entry.Name())
		}
	}

	if latestPath == "" {
		return nil, nil // No snapshots found
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap PoolSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	slog.Info("Snapshot loaded",
		slog.Uint64("cycle", snap.Cycle),
		slog.String("path", latestPath))

	return &snap, nil
}

// Cleanup removes old snapshots, keeping only the latest N.
func (sm *SnapshotManager) Cleanup(keepCount int) error {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type snapFile struct {
		path  string
		cycle uint64
		ts    int64
	}
	var files []snapFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var cycle uint64
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "pool_%d_%d.json", &cycle, &ts); err == nil {
			files = append(files, snapFile{
				path:  filepath.Join(sm.dir, entry.Name()),
				cycle: cycle,
				ts:    ts,
			})
		}
	}

	if len(files) <= keepCount {
		return nil
	}

	// Sort by cycle then timestamp (descending); small N, selection is fine
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].cycle > files[i].cycle ||
				(files[j].cycle == files[i].cycle && files[j].ts > files[i].ts) {
				files[i], files[j] = files[j], files[i]
			}
		}
	}

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", files[i].path))
		} else {
			slog.Info("Removed old snapshot", slog.String("path", files[i].path))
		}
	}

	return nil
}
