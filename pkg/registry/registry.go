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

// Package registry tracks dashboard viewer connections and fans events out to
// them. Agent connections are never broadcast targets; the two transports are
// kept on separate paths.
package registry

import (
	"sync"

	"github.com/serverpulse/serverpulse/pkg/logger"
	"github.com/serverpulse/serverpulse/pkg/models"
)

// Sender delivers one event to a single viewer transport. Implementations
// must be safe for concurrent calls.
type Sender interface {
	Send(event *models.AgentEvent) error
}

// ConnectionRegistry maps live viewer connections to their transports.
// register/unregister/broadcast race continuously under normal load, so the
// map is guarded internally.
type ConnectionRegistry struct {
	mu      sync.RWMutex
	viewers map[string]Sender
	logger  logger.Logger
}

func NewConnectionRegistry(log logger.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		viewers: make(map[string]Sender),
		logger:  log,
	}
}

func (r *ConnectionRegistry) Register(connectionID string, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.viewers[connectionID] = sender
}

func (r *ConnectionRegistry) Unregister(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.viewers, connectionID)
}

func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.viewers)
}

// Broadcast delivers the event to a snapshot of the currently registered
// viewers. A delivery failure to one viewer is logged and isolated; the
// remaining viewers still receive the event. Delivery order across viewers
// is unspecified.
func (r *ConnectionRegistry) Broadcast(event *models.AgentEvent) {
	r.mu.RLock()
	snapshot := make(map[string]Sender, len(r.viewers))

	for id, sender := range r.viewers {
		snapshot[id] = sender
	}
	r.mu.RUnlock()

	for id, sender := range snapshot {
		if err := sender.Send(event); err != nil {
			r.logger.Warn().
				Err(err).
				Str("connection_id", id).
				Str("event_type", string(event.Type)).
				Msg("failed to deliver event to viewer")
		}
	}
}
