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

package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsStore implements KVStore on JetStream KV. JetStream expires keys at
// bucket granularity, so the store carries two buckets: a state bucket with
// no TTL and a snapshot bucket whose TTL matches the expiring writes. Puts
// are routed by their requested TTL.
type NatsStore struct {
	nc       *nats.Conn
	state    jetstream.KeyValue
	expiring jetstream.KeyValue
	ttl      time.Duration
}

func NewNatsStore(ctx context.Context, natsURL, bucket string, ttl time.Duration) (*NatsStore, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	state, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
	})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create KV bucket %s: %w", bucket, err)
	}

	expiring, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket + "-expiring",
		TTL:    ttl,
	})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create KV bucket %s-expiring: %w", bucket, err)
	}

	return &NatsStore{
		nc:       nc,
		state:    state,
		expiring: expiring,
		ttl:      ttl,
	}, nil
}

// Get reads the key from both buckets; a key is expected to live in exactly
// one of them.
func (n *NatsStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	encoded := encodeKey(key)

	for _, kv := range []jetstream.KeyValue{n.state, n.expiring} {
		entry, err := kv.Get(ctx, encoded)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}

		if err != nil {
			return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
		}

		return entry.Value(), true, nil
	}

	return nil, false, nil
}

func (n *NatsStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	kv := n.state
	if ttl > 0 {
		kv = n.expiring
	}

	if _, err := kv.Put(ctx, encodeKey(key), value); err != nil {
		return fmt.Errorf("failed to put key %s: %w", key, err)
	}

	return nil
}

func (n *NatsStore) Delete(ctx context.Context, key string) error {
	encoded := encodeKey(key)

	for _, kv := range []jetstream.KeyValue{n.state, n.expiring} {
		if err := kv.Delete(ctx, encoded); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}
	}

	return nil
}

func (n *NatsStore) Close() error {
	n.nc.Close()

	return nil
}

// encodeKey maps the logical "agent:{id}:..." layout onto the character set
// JetStream KV accepts; colons are not valid in its key names.
func encodeKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}

var _ KVStore = (*NatsStore)(nil)
