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

package models

import (
	"errors"

	"github.com/serverpulse/serverpulse/pkg/logger"
)

var (
	errNoListenAddr = errors.New("listen_addr is required")
	errNoDatabase   = errors.New("database configuration is required")
)

// CoreServiceConfig is the top-level configuration for the core server.
type CoreServiceConfig struct {
	ListenAddr string            `json:"listen_addr"`
	Database   *PostgresDatabase `json:"database"`
	Cache      CacheConfig       `json:"cache"`
	NATS       *NATSConfig       `json:"nats,omitempty"`
	CORS       CORSConfig        `json:"cors"`
	Logging    *logger.Config    `json:"logging,omitempty"`
}

func (c *CoreServiceConfig) Validate() error {
	if c.ListenAddr == "" {
		return errNoListenAddr
	}

	if c.Database == nil {
		return errNoDatabase
	}

	return nil
}

// PostgresDatabase configures the pgx pool backing the durable store.
type PostgresDatabase struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode,omitempty"`
	ApplicationName string        `json:"application_name,omitempty"`
	MaxConnections  int32         `json:"max_connections,omitempty"`
	MinConnections  int32         `json:"min_connections,omitempty"`
	MaxConnLifetime Duration      `json:"max_conn_lifetime,omitempty"`
}

// CacheConfig selects the fast-cache backend. Backend "nats" uses JetStream
// KV; "memory" keeps everything in-process (single-node deployments, tests).
type CacheConfig struct {
	Backend     string   `json:"backend"`
	URL         string   `json:"url,omitempty"`
	Bucket      string   `json:"bucket,omitempty"`
	SnapshotTTL Duration `json:"snapshot_ttl,omitempty"`
}

// NATSConfig configures the optional status-event publisher.
type NATSConfig struct {
	URL     string `json:"url"`
	Stream  string `json:"stream"`
	Subject string `json:"subject"`
}

// CORSConfig mirrors the browser-facing allowances for the REST and
// WebSocket surfaces.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
}
