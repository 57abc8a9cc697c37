/*
 * Copyright 2025 Carver Automation Corporation.
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

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "ranges": ["172.17.17.1-172.17.17.20"],
  "membership": {"pattern": "smartelia"},
  "concurrency": 50,
  "scan_deadline": "2m",
  "ssh": {"username": "admin", "password": "from-file"},
  "store": {"type": "file", "dir": "/tmp/snapshots", "max_snapshots": 3}
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fleet.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadAndValidate_FileThenEnv(t *testing.T) {
	t.Setenv("FLEETRADAR_SSH_PASSWORD", "from-env")
	t.Setenv("FLEETRADAR_FIELD_TIMEOUT", "3s")
	t.Setenv("FLEETRADAR_ADDRESSES", "10.0.0.5, 10.0.0.6")

	var cfg models.FleetConfig

	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), writeConfig(t, sampleConfig), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "smartelia", cfg.Membership.Pattern)
	assert.Equal(t, 50, cfg.Concurrency)
	assert.Equal(t, models.Duration(2*time.Minute), cfg.ScanDeadline)
	assert.Equal(t, "from-env", cfg.SSH.Password)
	assert.Equal(t, models.Duration(3*time.Second), cfg.FieldTimeout)
	assert.Equal(t, []string{"10.0.0.5", "10.0.0.6"}, cfg.Addresses)
	assert.Equal(t, 3, cfg.Store.MaxSnapshots)

	// defaults fill the rest
	assert.Equal(t, models.DefaultHostTimeout, cfg.HostTimeout)
	assert.Equal(t, models.DefaultSSHPort, cfg.SSH.Port)
	require.NotNil(t, cfg.Logging)
}

func TestLoadAndValidate_NoFile(t *testing.T) {
	t.Setenv("FLEETRADAR_STORE_TYPE", "nats")
	t.Setenv("FLEETRADAR_STORE_NATS_URL", "nats://127.0.0.1:4222")
	t.Setenv("FLEETRADAR_LOGGING_LEVEL", "debug")

	var cfg models.FleetConfig

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, models.StoreTypeNATS, cfg.Store.Type)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Store.NATSURL)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{models.DefaultFleetRange}, cfg.Ranges)
}

func TestLoadAndValidate_Errors(t *testing.T) {
	ctx := context.Background()
	loader := NewConfig(logger.NewTestLogger())

	var cfg models.FleetConfig

	require.Error(t, loader.LoadAndValidate(ctx, filepath.Join(t.TempDir(), "missing.json"), &cfg))
	require.Error(t, loader.LoadAndValidate(ctx, writeConfig(t, `{"concurency": 10}`), &cfg))
	require.Error(t, loader.LoadAndValidate(ctx, writeConfig(t, `{"store": {"type": "s3"}}`), &models.FleetConfig{}))
	require.ErrorIs(t, loader.LoadAndValidate(ctx, "", cfg), errInvalidConfigPtr)
}

func TestEnvConfigLoader_BadValue(t *testing.T) {
	t.Setenv("FLEETRADAR_CONCURRENCY", "lots")

	var cfg models.FleetConfig

	err := NewEnvConfigLoader(nil, EnvPrefix).Load(context.Background(), "", &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FLEETRADAR_CONCURRENCY")
}

func TestEnvConfigLoader_LeavesNilPointerWithoutOverrides(t *testing.T) {
	var cfg models.FleetConfig

	require.NoError(t, NewEnvConfigLoader(nil, "FLEETRADAR_TEST_UNUSED_").Load(context.Background(), "", &cfg))
	assert.Nil(t, cfg.Logging)
}

func TestLoadAndValidate_ExampleConfig(t *testing.T) {
	var cfg models.FleetConfig

	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), "../../cmd/scanner/fleet.json", &cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{models.DefaultFleetRange}, cfg.Ranges)
	assert.True(t, cfg.SSH.Configured())
	assert.Equal(t, models.StoreTypeFile, cfg.Store.Type)
	assert.Nil(t, cfg.Store.TLS)
	assert.Zero(t, cfg.ScanInterval)
}
