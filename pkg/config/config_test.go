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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serverpulse/serverpulse/pkg/models"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "core.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const validConfigJSON = `{
	"listen_addr": ":8080",
	"database": {
		"host": "localhost",
		"port": 5432,
		"database": "serverpulse",
		"username": "serverpulse",
		"max_conn_lifetime": "5m"
	},
	"cache": {
		"backend": "memory",
		"snapshot_ttl": "300s"
	},
	"cors": {
		"allowed_origins": ["https://dash.example.com"]
	}
}`

func TestLoadAndValidateFromFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeConfigFile(t, validConfigJSON)

	var cfg models.CoreServiceConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	require.NotNil(t, cfg.Database)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, models.Duration(5*time.Minute), cfg.Database.MaxConnLifetime)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, []string{"https://dash.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	var cfg models.CoreServiceConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "/nonexistent/core.json", &cfg)
	require.Error(t, err)
}

func TestLoadAndValidateRejectsInvalidConfig(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeConfigFile(t, `{"listen_addr": ":8080"}`)

	var cfg models.CoreServiceConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}

func TestLoadAndValidateFromEnv(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("SERVERPULSE_CONFIG_JSON", validConfigJSON)

	var cfg models.CoreServiceConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoadAndValidateEnvMissingPayload(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("SERVERPULSE_CONFIG_JSON", "")

	var cfg models.CoreServiceConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, ErrConfigJSONNotSet)
}

func TestLoadAndValidateUnknownSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg models.CoreServiceConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}
