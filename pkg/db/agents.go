package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/serverpulse/serverpulse/pkg/models"
)

const (
	upsertAgentSQL = `
INSERT INTO agents (
	id,
	hostname,
	ip_address,
	platform,
	os,
	arch,
	release,
	status,
	first_seen,
	last_seen
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
ON CONFLICT (hostname, ip_address) DO UPDATE SET
	platform = EXCLUDED.platform,
	os = EXCLUDED.os,
	arch = EXCLUDED.arch,
	release = EXCLUDED.release,
	status = EXCLUDED.status,
	last_seen = EXCLUDED.last_seen
RETURNING id, first_seen`

	markOfflineSQL = `
UPDATE agents SET status = $2, last_seen = $3 WHERE id = $1`

	getAgentSQL = `
SELECT id, hostname, ip_address, platform, os, arch, release, status, first_seen, last_seen
FROM agents WHERE id = $1`

	listAgentsSQL = `
SELECT id, hostname, ip_address, platform, os, arch, release, status, first_seen, last_seen
FROM agents ORDER BY hostname, ip_address`
)

// UpsertAgent inserts or updates the durable record for the natural key. The
// generated id is only used on the insert path; on conflict the existing id
// is returned.
func (db *DB) UpsertAgent(
	ctx context.Context, key models.AgentKey, osInfo models.OSInfo, status models.AgentStatus) (*models.Agent, error) {
	now := nowUTC()

	agent := &models.Agent{
		Hostname:  key.Hostname,
		IPAddress: key.IPAddress,
		OS:        osInfo,
		Status:    status,
		LastSeen:  now,
	}

	err := db.pool.QueryRow(ctx, upsertAgentSQL,
		uuid.New().String(),
		key.Hostname,
		key.IPAddress,
		osInfo.Platform,
		osInfo.OS,
		osInfo.Arch,
		osInfo.Release,
		string(status),
		now,
		now,
	).Scan(&agent.ID, &agent.FirstSeen)
	if err != nil {
		return nil, fmt.Errorf("db: failed to upsert agent %s/%s: %w", key.Hostname, key.IPAddress, err)
	}

	return agent, nil
}

// MarkOffline flips the durable status and refreshes last_seen. Missing rows
// are reported as ErrAgentNotFound so callers can distinguish a stale id from
// a store outage.
func (db *DB) MarkOffline(ctx context.Context, agentID string) error {
	tag, err := db.pool.Exec(ctx, markOfflineSQL, agentID, string(models.AgentOffline), nowUTC())
	if err != nil {
		return fmt.Errorf("db: failed to mark agent %s offline: %w", agentID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}

	return nil
}

func (db *DB) GetAgent(ctx context.Context, agentID string) (*models.Agent, error) {
	agent, err := scanAgent(db.pool.QueryRow(ctx, getAgentSQL, agentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
		}

		return nil, fmt.Errorf("db: failed to get agent %s: %w", agentID, err)
	}

	return agent, nil
}

func (db *DB) ListAgents(ctx context.Context) ([]*models.Agent, error) {
	rows, err := db.pool.Query(ctx, listAgentsSQL)
	if err != nil {
		return nil, fmt.Errorf("db: failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []*models.Agent

	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("db: failed to scan agent row: %w", err)
		}

		agents = append(agents, agent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: agent row iteration failed: %w", err)
	}

	return agents, nil
}

func scanAgent(row pgx.Row) (*models.Agent, error) {
	var (
		agent  models.Agent
		status string
	)

	err := row.Scan(
		&agent.ID,
		&agent.Hostname,
		&agent.IPAddress,
		&agent.OS.Platform,
		&agent.OS.OS,
		&agent.OS.Arch,
		&agent.OS.Release,
		&status,
		&agent.FirstSeen,
		&agent.LastSeen,
	)
	if err != nil {
		return nil, err
	}

	agent.Status = models.AgentStatus(status)

	return &agent, nil
}
