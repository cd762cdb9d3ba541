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

// Package api provides the HTTP/WebSocket server for ServerPulse
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/serverpulse/serverpulse/pkg/db"
	sphttp "github.com/serverpulse/serverpulse/pkg/http"
	"github.com/serverpulse/serverpulse/pkg/ingest"
	"github.com/serverpulse/serverpulse/pkg/logger"
	"github.com/serverpulse/serverpulse/pkg/models"
	"github.com/serverpulse/serverpulse/pkg/registry"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// APIServer terminates the REST surface, the agent ingestion WebSocket, and
// the dashboard viewer WebSocket.
type APIServer struct {
	router     *mux.Router
	ingest     *ingest.Service
	store      db.AgentStore
	hub        *registry.Hub
	corsConfig models.CORSConfig
	logger     logger.Logger
	httpServer *http.Server
}

// NewAPIServer creates a new API server instance with the given configuration
func NewAPIServer(cors models.CORSConfig, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: cors,
		logger:     logger.NewTestLogger(),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithIngestService attaches the agent ingestion service.
func WithIngestService(svc *ingest.Service) func(*APIServer) {
	return func(server *APIServer) {
		server.ingest = svc
	}
}

// WithAgentStore attaches the durable store used by the read-only routes.
func WithAgentStore(store db.AgentStore) func(*APIServer) {
	return func(server *APIServer) {
		server.store = store
	}
}

// WithHub attaches the fan-out hub backing the dashboard socket.
func WithHub(hub *registry.Hub) func(*APIServer) {
	return func(server *APIServer) {
		server.hub = hub
	}
}

// WithLogger sets the server logger.
func WithLogger(log logger.Logger) func(*APIServer) {
	return func(server *APIServer) {
		server.logger = log
	}
}

// Router exposes the handler tree, mainly for tests.
func (s *APIServer) Router() http.Handler {
	return s.router
}

func (s *APIServer) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return sphttp.CommonMiddleware(next, s.corsConfig)
	})

	s.router.HandleFunc("/api/agents", s.handleListAgents).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/agents/{id}/metrics/latest", s.handleLatestMetrics).Methods(http.MethodGet, http.MethodOptions)

	s.router.HandleFunc("/ws/agent", s.handleAgentSocket)
	s.router.HandleFunc("/ws/dashboard", s.handleDashboardSocket)
}

// Start serves until the context is canceled, then drains with a bounded
// shutdown.
func (s *APIServer) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening")

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
