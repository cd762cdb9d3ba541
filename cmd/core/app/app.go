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

// Package app wires the core service: config, logger, durable store, fast
// cache, fan-out hub, and the HTTP/WebSocket server.
package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/serverpulse/serverpulse/pkg/cache"
	"github.com/serverpulse/serverpulse/pkg/config"
	"github.com/serverpulse/serverpulse/pkg/core/api"
	"github.com/serverpulse/serverpulse/pkg/db"
	"github.com/serverpulse/serverpulse/pkg/ingest"
	"github.com/serverpulse/serverpulse/pkg/lifecycle"
	"github.com/serverpulse/serverpulse/pkg/models"
	"github.com/serverpulse/serverpulse/pkg/natsutil"
	"github.com/serverpulse/serverpulse/pkg/registry"
)

// Options configures a core service run.
type Options struct {
	ConfigPath string
}

// Run starts the core service and blocks until the process receives an
// interrupt or a fatal startup error occurs.
func Run(ctx context.Context, opts Options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg models.CoreServiceConfig

	cfgLoader := config.NewConfig(nil)
	if err := cfgLoader.LoadAndValidate(ctx, opts.ConfigPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := lifecycle.CreateComponentLogger("core", cfg.Logging)
	if err != nil {
		return err
	}

	pool, err := db.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return err
	}

	store := db.New(pool, log)
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	kv, err := buildCache(ctx, &cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	var events ingest.StatusEventPublisher

	if cfg.NATS != nil {
		publisher, nc, err := natsutil.ConnectWithEventPublisher(ctx, cfg.NATS)
		if err != nil {
			return err
		}
		defer nc.Close()

		events = publisher

		log.Info().Str("stream", cfg.NATS.Stream).Msg("agent status events enabled")
	}

	hub := registry.NewHub(log)
	svc := ingest.NewService(store, kv, hub, events, log)

	server := api.NewAPIServer(cfg.CORS,
		api.WithIngestService(svc),
		api.WithAgentStore(store),
		api.WithHub(hub),
		api.WithLogger(log),
	)

	return server.Start(ctx, cfg.ListenAddr)
}

func buildCache(ctx context.Context, cfg *models.CoreServiceConfig) (cache.KVStore, error) {
	ttl := time.Duration(cfg.Cache.SnapshotTTL)
	if ttl <= 0 {
		ttl = cache.SnapshotTTL
	}

	switch cfg.Cache.Backend {
	case "nats":
		bucket := cfg.Cache.Bucket
		if bucket == "" {
			bucket = "serverpulse-agents"
		}

		return cache.NewNatsStore(ctx, cfg.Cache.URL, bucket, ttl)
	case "memory", "":
		return cache.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
