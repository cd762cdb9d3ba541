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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "agent:1:status", []byte("online"), 0))

	value, found, err := store.Get(ctx, "agent:1:status")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "online", string(value))

	// Overwrite wins.
	require.NoError(t, store.Put(ctx, "agent:1:status", []byte("offline"), 0))

	value, found, err = store.Get(ctx, "agent:1:status")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "offline", string(value))
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	store.SetClock(func() time.Time { return current })

	require.NoError(t, store.Put(ctx, "agent:1:metrics:latest", []byte(`{}`), 300*time.Second))
	require.NoError(t, store.Put(ctx, "agent:1:status", []byte("online"), 0))

	current = base.Add(299 * time.Second)

	_, found, err := store.Get(ctx, "agent:1:metrics:latest")
	require.NoError(t, err)
	assert.True(t, found)

	current = base.Add(300 * time.Second)

	_, found, err = store.Get(ctx, "agent:1:metrics:latest")
	require.NoError(t, err)
	assert.False(t, found)

	// A fresh write after expiry restarts the clock.
	require.NoError(t, store.Put(ctx, "agent:1:metrics:latest", []byte(`{}`), 300*time.Second))

	_, found, err = store.Get(ctx, "agent:1:metrics:latest")
	require.NoError(t, err)
	assert.True(t, found)

	// Keys without TTL never expire.
	_, found, err = store.Get(ctx, "agent:1:status")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "k", []byte("v"), 0))
	require.NoError(t, store.Delete(ctx, "k"))

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting an absent key is a no-op.
	require.NoError(t, store.Delete(ctx, "k"))
}

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "agent:abc:status", StatusKey("abc"))
	assert.Equal(t, "agent:abc:metrics:latest", MetricsKey("abc"))
	assert.Equal(t, "agent:abc:lastSeen", LastSeenKey("abc"))
}

func TestEncodeKey(t *testing.T) {
	assert.Equal(t, "agent.abc.metrics.latest", encodeKey("agent:abc:metrics:latest"))
	assert.Equal(t, "plain", encodeKey("plain"))
}
