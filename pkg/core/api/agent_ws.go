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

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// handleAgentSocket terminates one agent's long-lived connection. The read
// loop is the only goroutine touching the socket, which keeps frames from a
// single agent strictly ordered.
func (s *APIServer) handleAgentSocket(w http.ResponseWriter, r *http.Request) {
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
			Msg("failed to upgrade agent connection")

		return
	}

	connectionID := uuid.New().String()
	ctx := r.Context()

	s.ingest.RegisterConnection(connectionID)

	s.logger.Info().
		Str("connection_id", connectionID).
		Str("remote_addr", r.RemoteAddr).
		Msg("agent connection established")

	defer func() {
		// Disconnect effects run on a detached context inside the service;
		// closing the socket here cannot cancel them.
		s.ingest.OnDisconnect(ctx, connectionID)
		conn.Close()
	}()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().
					Err(err).
					Str("connection_id", connectionID).
					Msg("agent connection closed unexpectedly")
			}

			return
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		if err := s.ingest.OnFrame(ctx, connectionID, message); err != nil {
			s.logger.Error().
				Err(err).
				Str("connection_id", connectionID).
				Msg("frame processing failed")

			return
		}
	}
}

// checkWebSocketOrigin validates WebSocket origin against CORS configuration
func (s *APIServer) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowedOrigin := range s.corsConfig.AllowedOrigins {
		if allowedOrigin == origin || allowedOrigin == "*" {
			return true
		}
	}

	s.logger.Warn().
		Str("origin", origin).
		Msg("WebSocket origin not allowed")

	return false
}
