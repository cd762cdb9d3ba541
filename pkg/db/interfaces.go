/*
 * Copyright 2025 the ServerPulse Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"context"
	"errors"

	"github.com/serverpulse/serverpulse/pkg/models"
)

// ErrAgentNotFound is returned by reads for an id with no durable record.
var ErrAgentNotFound = errors.New("agent not found")

// AgentStore is the durable-state contract consumed by the ingestion core.
// Upserts are keyed by the (hostname, ip_address) natural key.
type AgentStore interface {
	// UpsertAgent inserts or updates the row for key, returning the stored
	// record. Re-registration with an existing key updates in place; a second
	// row is never created.
	UpsertAgent(ctx context.Context, key models.AgentKey, osInfo models.OSInfo, status models.AgentStatus) (*models.Agent, error)

	// MarkOffline flips the agent's durable status and refreshes last_seen.
	MarkOffline(ctx context.Context, agentID string) error

	GetAgent(ctx context.Context, agentID string) (*models.Agent, error)
	ListAgents(ctx context.Context) ([]*models.Agent, error)

	// InsertMetrics appends a snapshot to the agent_metrics series.
	InsertMetrics(ctx context.Context, snapshot *models.MetricsSnapshot) error

	// LatestMetrics returns the most recent series row for the agent, or
	// ErrAgentNotFound when the series is empty.
	LatestMetrics(ctx context.Context, agentID string) (*models.MetricsSnapshot, error)
}
