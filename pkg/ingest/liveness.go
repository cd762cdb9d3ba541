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

package ingest

import (
	"context"
	"time"

	"github.com/serverpulse/serverpulse/pkg/cache"
	"github.com/serverpulse/serverpulse/pkg/db"
	"github.com/serverpulse/serverpulse/pkg/logger"
	"github.com/serverpulse/serverpulse/pkg/models"
)

// StatusEventPublisher relays liveness transitions to external consumers.
// A nil publisher disables relaying.
type StatusEventPublisher interface {
	PublishAgentStatusEvent(ctx context.Context, data models.AgentStatusEventData) error
}

// Reconciler keeps the durable status flag and the cache's liveness keys in
// agreement to the extent the push-based protocol allows. It is invoked on
// every frame and on disconnect; it does not poll for silent agents. An agent
// that vanishes without a transport close event stays online until the
// transport's own keep-alive times out.
type Reconciler struct {
	store  db.AgentStore
	kv     cache.KVStore
	events StatusEventPublisher
	logger logger.Logger
	now    func() time.Time
}

func NewReconciler(store db.AgentStore, kv cache.KVStore, events StatusEventPublisher, log logger.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		kv:     kv,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// MarkOnline records the agent as online in the cache. The durable flip to
// online already happened in the same upsert that carried the frame, so only
// the cache keys are written here. Failures are logged and absorbed.
func (r *Reconciler) MarkOnline(ctx context.Context, agent *models.Agent) {
	now := r.now().UTC()

	if err := r.kv.Put(ctx, cache.StatusKey(agent.ID), []byte(models.AgentOnline), 0); err != nil {
		r.logger.Warn().
			Err(err).
			Str("agent_id", agent.ID).
			Str("effect", "cache_status").
			Msg("failed to cache online status")
	}

	if err := r.kv.Put(ctx, cache.LastSeenKey(agent.ID), []byte(now.Format(time.RFC3339)), 0); err != nil {
		r.logger.Warn().
			Err(err).
			Str("agent_id", agent.ID).
			Str("effect", "cache_last_seen").
			Msg("failed to cache last-seen timestamp")
	}
}

// MarkOffline flips the durable status, updates the cache's liveness key, and
// publishes the transition. The three effects are independent; one failing
// never suppresses the others. The cached metrics snapshot is left alone so
// it ages out on its own TTL.
func (r *Reconciler) MarkOffline(ctx context.Context, agentID, hostname string) {
	now := r.now().UTC()

	if err := r.store.MarkOffline(ctx, agentID); err != nil {
		r.logger.Error().
			Err(err).
			Str("agent_id", agentID).
			Str("effect", "store_offline").
			Msg("failed to mark agent offline in durable store")
	}

	if err := r.kv.Put(ctx, cache.StatusKey(agentID), []byte(models.AgentOffline), 0); err != nil {
		r.logger.Warn().
			Err(err).
			Str("agent_id", agentID).
			Str("effect", "cache_status").
			Msg("failed to cache offline status")
	}

	if r.events != nil {
		data := models.AgentStatusEventData{
			AgentID:       agentID,
			Hostname:      hostname,
			PreviousState: models.AgentOnline,
			CurrentState:  models.AgentOffline,
			LastSeen:      now,
			Timestamp:     now,
		}

		if err := r.events.PublishAgentStatusEvent(ctx, data); err != nil {
			r.logger.Warn().
				Err(err).
				Str("agent_id", agentID).
				Str("effect", "status_event").
				Msg("failed to publish offline event")
		}
	}
}

// PublishOnline relays a came-online transition for a newly identified agent.
func (r *Reconciler) PublishOnline(ctx context.Context, agent *models.Agent) {
	if r.events == nil {
		return
	}

	now := r.now().UTC()

	data := models.AgentStatusEventData{
		AgentID:       agent.ID,
		Hostname:      agent.Hostname,
		PreviousState: models.AgentOffline,
		CurrentState:  models.AgentOnline,
		LastSeen:      agent.LastSeen,
		Timestamp:     now,
	}

	if err := r.events.PublishAgentStatusEvent(ctx, data); err != nil {
		r.logger.Warn().
			Err(err).
			Str("agent_id", agent.ID).
			Str("effect", "status_event").
			Msg("failed to publish online event")
	}
}
