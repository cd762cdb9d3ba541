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
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/serverpulse/serverpulse/pkg/models"
)

const (
	viewerPingInterval = 30 * time.Second
	viewerReadDeadline = 60 * time.Second
)

// viewerConn adapts one dashboard WebSocket to the registry's Sender. The
// write mutex serializes event writes against keepalive pings.
type viewerConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (v *viewerConn) Send(event *models.AgentEvent) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.conn.WriteJSON(event)
}

func (v *viewerConn) ping() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

// handleDashboardSocket registers a dashboard viewer for fan-out. Viewers
// only receive; inbound messages are read solely to detect disconnect.
func (s *APIServer) handleDashboardSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.checkWebSocketOrigin(r)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("failed to upgrade dashboard connection")

		return
	}

	connectionID := uuid.New().String()
	viewer := &viewerConn{conn: conn}

	s.hub.Viewers().Register(connectionID, viewer)

	s.logger.Info().
		Str("connection_id", connectionID).
		Str("remote_addr", r.RemoteAddr).
		Int("viewers", s.hub.Viewers().Count()).
		Msg("dashboard viewer connected")

	defer func() {
		s.hub.Viewers().Unregister(connectionID)
		conn.Close()

		s.logger.Info().
			Str("connection_id", connectionID).
			Msg("dashboard viewer disconnected")
	}()

	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(viewerPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := viewer.ping(); err != nil {
					s.logger.Debug().
						Err(err).
						Str("connection_id", connectionID).
						Msg("viewer keepalive failed")

					return
				}
			}
		}
	}()

	defer close(done)

	// Pong replies to the keepalive pings extend the read deadline; a viewer
	// that answers neither pings nor sends anything is dropped.
	if err := conn.SetReadDeadline(time.Now().Add(viewerReadDeadline)); err != nil {
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(viewerReadDeadline))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
