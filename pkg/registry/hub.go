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

package registry

import (
	"sync"

	"github.com/serverpulse/serverpulse/pkg/logger"
	"github.com/serverpulse/serverpulse/pkg/models"
)

// Listener receives every published agent event. Listeners run synchronously
// on the publisher's goroutine and must not block.
type Listener func(event *models.AgentEvent)

// Hub is the fan-out owned by the core: an explicit observer list for
// in-process subscribers (the REST/UI layer) plus the viewer registry for
// connected dashboards. The core has no coupling to any transport library's
// global emitter.
type Hub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
	viewers   *ConnectionRegistry
	logger    logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		listeners: make(map[int]Listener),
		viewers:   NewConnectionRegistry(log),
		logger:    log,
	}
}

// Viewers exposes the dashboard connection registry so transport adapters can
// register and unregister viewer connections.
func (h *Hub) Viewers() *ConnectionRegistry {
	return h.viewers
}

// Subscribe adds an in-process listener and returns its cancel function.
func (h *Hub) Subscribe(listener Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners[id] = listener

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		delete(h.listeners, id)
	}
}

// Publish delivers the event to every subscriber and every registered viewer.
func (h *Hub) Publish(event *models.AgentEvent) {
	h.mu.Lock()
	listeners := make([]Listener, 0, len(h.listeners))

	for _, l := range h.listeners {
		listeners = append(listeners, l)
	}
	h.mu.Unlock()

	for _, l := range listeners {
		l(event)
	}

	h.viewers.Broadcast(event)
}
