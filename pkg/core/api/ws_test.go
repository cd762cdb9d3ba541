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

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serverpulse/serverpulse/pkg/cache"
	"github.com/serverpulse/serverpulse/pkg/ingest"
	"github.com/serverpulse/serverpulse/pkg/logger"
	"github.com/serverpulse/serverpulse/pkg/models"
	"github.com/serverpulse/serverpulse/pkg/registry"
)

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestAgentFrameFansOutToDashboard(t *testing.T) {
	server, store, _, hub := newTestServer(t)

	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	viewer, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/dashboard"), nil)
	require.NoError(t, err)

	defer viewer.Close()

	require.Eventually(t, func() bool {
		return hub.Viewers().Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	agent, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/agent"), nil)
	require.NoError(t, err)

	frame := `{"hostname":"host-a","ipAddress":"10.0.0.5","cpuUsage":45,"memoryUsage":60,` +
		`"osInfo":{"platform":"linux","os":"ubuntu","arch":"x64"}}`
	require.NoError(t, agent.WriteMessage(websocket.TextMessage, []byte(frame)))

	require.NoError(t, viewer.SetReadDeadline(time.Now().Add(5*time.Second)))

	var event models.AgentEvent

	require.NoError(t, viewer.ReadJSON(&event))
	assert.Equal(t, models.EventMetrics, event.Type)
	require.NotNil(t, event.Metrics)
	assert.InDelta(t, 45.0, event.Metrics.CPUUsage, 0.0001)
	assert.InDelta(t, 60.0, event.Metrics.MemoryUsage, 0.0001)

	// Closing the agent socket flips the durable status and notifies viewers.
	require.NoError(t, agent.Close())

	require.NoError(t, viewer.ReadJSON(&event))
	assert.Equal(t, models.EventStatusChanged, event.Type)
	assert.Equal(t, models.AgentOffline, event.Status)

	require.Eventually(t, func() bool {
		stored, err := store.GetAgent(context.Background(), event.AgentID)

		return err == nil && stored.Status == models.AgentOffline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAgentSocketSurvivesMalformedFrame(t *testing.T) {
	server, store, _, _ := newTestServer(t)

	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	agent, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/agent"), nil)
	require.NoError(t, err)

	defer agent.Close()

	require.NoError(t, agent.WriteMessage(websocket.TextMessage, []byte(`{"hostname":`)))

	// The connection must still accept a valid frame afterwards.
	frame := `{"hostname":"host-a","cpuUsage":10,"memoryUsage":20,` +
		`"osInfo":{"platform":"linux","os":"ubuntu","arch":"x64"}}`
	require.NoError(t, agent.WriteMessage(websocket.TextMessage, []byte(frame)))

	require.Eventually(t, func() bool {
		agents, err := store.ListAgents(context.Background())

		return err == nil && len(agents) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketOriginRejected(t *testing.T) {
	log := logger.NewTestLogger()
	store := newStubStore()
	hub := registry.NewHub(log)
	svc := ingest.NewService(store, cache.NewMemoryStore(), hub, nil, log)

	server := NewAPIServer(models.CORSConfig{AllowedOrigins: []string{"https://dash.example.com"}},
		WithIngestService(svc),
		WithAgentStore(store),
		WithHub(hub),
		WithLogger(log),
	)

	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/dashboard"), header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)

	if conn != nil {
		conn.Close()
	}

	if resp != nil {
		resp.Body.Close()
	}
}
