package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/serverpulse/serverpulse/pkg/models"
)

const (
	insertMetricsSQL = `
INSERT INTO agent_metrics (
	timestamp,
	agent_id,
	cpu_usage,
	memory_usage
) VALUES ($1,$2,$3,$4)`

	latestMetricsSQL = `
SELECT m.timestamp, m.cpu_usage, m.memory_usage, a.platform, a.os, a.arch, a.release
FROM agent_metrics m
JOIN agents a ON a.id = m.agent_id
WHERE m.agent_id = $1
ORDER BY m.timestamp DESC
LIMIT 1`
)

// InsertMetrics appends one snapshot to the time series. The series retains
// history; only the cache is limited to the latest row.
func (db *DB) InsertMetrics(ctx context.Context, snapshot *models.MetricsSnapshot) error {
	if snapshot == nil {
		return nil
	}

	_, err := db.pool.Exec(ctx, insertMetricsSQL,
		snapshot.Timestamp,
		snapshot.AgentID,
		snapshot.CPUUsage,
		snapshot.MemoryUsage,
	)
	if err != nil {
		return fmt.Errorf("db: failed to insert metrics for agent %s: %w", snapshot.AgentID, err)
	}

	return nil
}

// LatestMetrics is the durable fallback behind the cache-first read path.
func (db *DB) LatestMetrics(ctx context.Context, agentID string) (*models.MetricsSnapshot, error) {
	snapshot := &models.MetricsSnapshot{AgentID: agentID}

	err := db.pool.QueryRow(ctx, latestMetricsSQL, agentID).Scan(
		&snapshot.Timestamp,
		&snapshot.CPUUsage,
		&snapshot.MemoryUsage,
		&snapshot.OS.Platform,
		&snapshot.OS.OS,
		&snapshot.OS.Arch,
		&snapshot.OS.Release,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
		}

		return nil, fmt.Errorf("db: failed to read latest metrics for agent %s: %w", agentID, err)
	}

	return snapshot, nil
}
