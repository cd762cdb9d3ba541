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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serverpulse/serverpulse/pkg/logger"
	"github.com/serverpulse/serverpulse/pkg/models"
)

type recordingSender struct {
	mu     sync.Mutex
	events []*models.AgentEvent
	err    error
}

func (s *recordingSender) Send(event *models.AgentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.events = append(s.events, event)

	return nil
}

func (s *recordingSender) received() []*models.AgentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*models.AgentEvent(nil), s.events...)
}

func TestBroadcastReachesAllViewers(t *testing.T) {
	reg := NewConnectionRegistry(logger.NewTestLogger())

	a := &recordingSender{}
	b := &recordingSender{}

	reg.Register("viewer-a", a)
	reg.Register("viewer-b", b)
	assert.Equal(t, 2, reg.Count())

	event := &models.AgentEvent{Type: models.EventMetrics, AgentID: "agent-1"}
	reg.Broadcast(event)

	require.Len(t, a.received(), 1)
	require.Len(t, b.received(), 1)
	assert.Same(t, event, a.received()[0])
}

func TestBroadcastIsolatesFailingViewer(t *testing.T) {
	reg := NewConnectionRegistry(logger.NewTestLogger())

	broken := &recordingSender{err: errors.New("connection reset")}
	healthy := &recordingSender{}

	reg.Register("viewer-broken", broken)
	reg.Register("viewer-healthy", healthy)

	reg.Broadcast(&models.AgentEvent{Type: models.EventMetrics, AgentID: "agent-1"})
	reg.Broadcast(&models.AgentEvent{Type: models.EventMetrics, AgentID: "agent-1"})

	assert.Empty(t, broken.received())
	assert.Len(t, healthy.received(), 2)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	reg := NewConnectionRegistry(logger.NewTestLogger())

	viewer := &recordingSender{}
	reg.Register("viewer-a", viewer)

	reg.Broadcast(&models.AgentEvent{Type: models.EventMetrics})
	reg.Unregister("viewer-a")
	reg.Broadcast(&models.AgentEvent{Type: models.EventMetrics})

	assert.Len(t, viewer.received(), 1)
	assert.Equal(t, 0, reg.Count())
}

func TestHubDeliversToListenersAndViewers(t *testing.T) {
	hub := NewHub(logger.NewTestLogger())

	var (
		mu       sync.Mutex
		received []*models.AgentEvent
	)

	cancel := hub.Subscribe(func(event *models.AgentEvent) {
		mu.Lock()
		defer mu.Unlock()

		received = append(received, event)
	})

	viewer := &recordingSender{}
	hub.Viewers().Register("viewer-a", viewer)

	hub.Publish(&models.AgentEvent{Type: models.EventMetrics, AgentID: "agent-1"})

	mu.Lock()
	assert.Len(t, received, 1)
	mu.Unlock()

	assert.Len(t, viewer.received(), 1)

	cancel()
	hub.Publish(&models.AgentEvent{Type: models.EventMetrics, AgentID: "agent-1"})

	mu.Lock()
	assert.Len(t, received, 1, "cancelled listener must not receive")
	mu.Unlock()

	assert.Len(t, viewer.received(), 2)
}
