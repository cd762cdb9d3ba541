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

// Package ingest terminates agent connections and turns their metric frames
// into durable, cache, and broadcast effects.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/serverpulse/serverpulse/pkg/cache"
	"github.com/serverpulse/serverpulse/pkg/db"
	"github.com/serverpulse/serverpulse/pkg/logger"
	"github.com/serverpulse/serverpulse/pkg/models"
	"github.com/serverpulse/serverpulse/pkg/registry"
)

// ErrUnknownConnection is returned for frames on a connection that was never
// registered or already closed.
var ErrUnknownConnection = errors.New("unknown connection")

// Service owns the lifecycle of inbound agent connections. One Service is
// shared by all transports; per-connection ordering comes from each transport
// adapter calling OnFrame sequentially for its own connection.
type Service struct {
	store      db.AgentStore
	kv         cache.KVStore
	hub        *registry.Hub
	reconciler *Reconciler
	logger     logger.Logger

	mu    sync.Mutex
	conns map[string]*connection

	snapshotTTL time.Duration
	now         func() time.Time
}

func NewService(store db.AgentStore, kv cache.KVStore, hub *registry.Hub, events StatusEventPublisher, log logger.Logger) *Service {
	return &Service{
		store:       store,
		kv:          kv,
		hub:         hub,
		reconciler:  NewReconciler(store, kv, events, log),
		logger:      log,
		conns:       make(map[string]*connection),
		snapshotTTL: cache.SnapshotTTL,
		now:         time.Now,
	}
}

// RegisterConnection creates the transient record for a newly accepted agent
// transport. The record carries no agent identity until the first valid
// frame arrives.
func (s *Service) RegisterConnection(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conns[connectionID] = &connection{
		id:          connectionID,
		connectedAt: s.now(),
		state:       StateConnecting,
	}
}

// ConnectionState reports the lifecycle state of a connection, mainly for
// observability and tests.
func (s *Service) ConnectionState(connectionID string) (ConnState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns[connectionID]
	if !ok {
		return StateClosed, false
	}

	return conn.state, true
}

// OnFrame processes one raw frame from an agent connection. A frame that
// fails to parse is dropped with no effect and the connection stays open.
// For a valid frame the three effects (durable upsert + series append, cache
// write, dashboard broadcast) are attempted independently; a failure in one
// is logged and never torn back through the connection, since the protocol
// has no per-frame acknowledgment.
func (s *Service) OnFrame(ctx context.Context, connectionID string, raw []byte) error {
	s.mu.Lock()
	conn, ok := s.conns[connectionID]
	s.mu.Unlock()

	if !ok {
		return ErrUnknownConnection
	}

	// A transport closing mid-processing must not cancel writes for a frame
	// that already arrived intact.
	ctx = context.WithoutCancel(ctx)

	frame, err := ParseFrame(raw, s.now().UTC())
	if err != nil {
		// Only the payload size is logged; frame content is agent-supplied.
		s.logger.Warn().
			Err(err).
			Str("connection_id", connectionID).
			Int("frame_bytes", len(raw)).
			Str("state", conn.state.String()).
			Msg("dropping unparseable frame")

		return nil
	}

	agent, err := s.store.UpsertAgent(ctx, frame.Key, frame.OS, models.AgentOnline)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("connection_id", connectionID).
			Str("hostname", frame.Key.Hostname).
			Str("effect", "store_upsert").
			Msg("failed to upsert agent identity")

		// Without an identity nothing downstream can be keyed; if the
		// connection was identified earlier, the remaining effects still run
		// against the known id.
		if !conn.identified() {
			return nil
		}
	}

	s.mu.Lock()
	if agent != nil && !conn.identified() {
		conn.agentID = agent.ID
		conn.hostname = agent.Hostname
		conn.state = StateIdentified
	} else if conn.identified() {
		conn.state = StateActive
	}
	agentID := conn.agentID
	s.mu.Unlock()

	snapshot := &models.MetricsSnapshot{
		AgentID:     agentID,
		CPUUsage:    frame.CPUUsage,
		MemoryUsage: frame.MemUsage,
		OS:          frame.OS,
		Timestamp:   frame.Timestamp,
	}

	if err := s.store.InsertMetrics(ctx, snapshot); err != nil {
		s.logger.Error().
			Err(err).
			Str("agent_id", agentID).
			Str("effect", "store_series").
			Msg("failed to append metrics series row")
	}

	s.cacheSnapshot(ctx, snapshot)

	if agent != nil {
		s.reconciler.MarkOnline(ctx, agent)

		if conn.state == StateIdentified {
			s.reconciler.PublishOnline(ctx, agent)
		}
	}

	s.hub.Publish(&models.AgentEvent{
		Type:      models.EventMetrics,
		AgentID:   agentID,
		Metrics:   snapshot,
		Timestamp: snapshot.Timestamp.UnixMilli(),
	})

	return nil
}

// OnDisconnect runs the close path for an agent transport. If the connection
// ever identified, the durable status flips to offline; the cached snapshot
// is deliberately left to age out on its own TTL. The writes run on a
// context detached from the transport so a close cannot cancel them
// mid-flight and strand the durable record online.
func (s *Service) OnDisconnect(ctx context.Context, connectionID string) {
	s.mu.Lock()
	conn, ok := s.conns[connectionID]
	if ok {
		delete(s.conns, connectionID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	identified := conn.identified()
	conn.state = StateClosed

	if !identified {
		s.logger.Debug().
			Str("connection_id", connectionID).
			Msg("unidentified connection closed")

		return
	}

	s.reconciler.MarkOffline(context.WithoutCancel(ctx), conn.agentID, conn.hostname)

	s.hub.Publish(&models.AgentEvent{
		Type:      models.EventStatusChanged,
		AgentID:   conn.agentID,
		Status:    models.AgentOffline,
		Timestamp: s.now().UnixMilli(),
	})

	s.logger.Info().
		Str("connection_id", connectionID).
		Str("agent_id", conn.agentID).
		Dur("connected", s.now().Sub(conn.connectedAt)).
		Msg("agent disconnected")
}

// GetLatestMetrics is the cache-first read surface for the UI/REST layer.
// A cache miss falls back to the durable series, and a fallback hit
// repopulates the cache best-effort.
func (s *Service) GetLatestMetrics(ctx context.Context, agentID string) (*models.MetricsSnapshot, error) {
	key := cache.MetricsKey(agentID)

	value, found, err := s.kv.Get(ctx, key)
	if err != nil {
		// Treated as a miss; the durable store still answers.
		s.logger.Warn().
			Err(err).
			Str("agent_id", agentID).
			Str("effect", "cache_read").
			Msg("cache read failed, falling back to durable store")
	} else if found {
		var snapshot models.MetricsSnapshot
		if err := json.Unmarshal(value, &snapshot); err == nil {
			return &snapshot, nil
		}

		s.logger.Warn().
			Str("agent_id", agentID).
			Int("value_bytes", len(value)).
			Msg("discarding undecodable cached snapshot")
	}

	snapshot, err := s.store.LatestMetrics(ctx, agentID)
	if err != nil {
		return nil, err
	}

	s.cacheSnapshot(ctx, snapshot)

	return snapshot, nil
}

// Subscribe registers an in-process listener for agent events and returns
// its cancel function.
func (s *Service) Subscribe(listener registry.Listener) func() {
	return s.hub.Subscribe(listener)
}

func (s *Service) cacheSnapshot(ctx context.Context, snapshot *models.MetricsSnapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("agent_id", snapshot.AgentID).
			Msg("failed to encode snapshot for cache")

		return
	}

	if err := s.kv.Put(ctx, cache.MetricsKey(snapshot.AgentID), payload, s.snapshotTTL); err != nil {
		s.logger.Warn().
			Err(err).
			Str("agent_id", snapshot.AgentID).
			Str("effect", "cache_snapshot").
			Msg("failed to cache metrics snapshot")
	}
}
