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

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Duration
		wantErr  bool
	}{
		{name: "string duration", input: `"5s"`, expected: Duration(5 * time.Second)},
		{name: "numeric nanoseconds", input: `5000000000`, expected: Duration(5 * time.Second)},
		{name: "composite", input: `"2m30s"`, expected: Duration(150 * time.Second)},
		{name: "invalid string", input: `"soon"`, wantErr: true},
		{name: "invalid type", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.JSONEq(t, `"1m30s"`, string(data))
}

func TestMembershipConfig_Accepts(t *testing.T) {
	m := MembershipConfig{Pattern: "smartelia"}

	assert.True(t, m.Accepts("SMARTELIA-MBP-04"))
	assert.True(t, m.Accepts("mac-smartelia"))
	assert.False(t, m.Accepts("printer-02"))
	assert.False(t, m.Accepts(""))

	anyHost := MembershipConfig{}
	assert.True(t, anyHost.Accepts("printer-02"))
	assert.False(t, anyHost.Accepts(""))
}

func TestFleetConfig_DefaultsAndValidate(t *testing.T) {
	var cfg FleetConfig

	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{DefaultFleetRange}, cfg.Ranges)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultScanDeadline, cfg.ScanDeadline)
	assert.Equal(t, StoreTypeFile, cfg.Store.Type)
	assert.Equal(t, DefaultMaxSnapshots, cfg.Store.MaxSnapshots)
	assert.NotNil(t, cfg.Logging)
	assert.False(t, cfg.SSH.Configured())

	cfg.Store.Type = StoreTypeNATS
	require.Error(t, cfg.Validate())

	cfg.Store.NATSURL = "nats://127.0.0.1:4222"
	require.NoError(t, cfg.Validate())

	cfg.Store.Type = "s3"
	require.Error(t, cfg.Validate())

	cfg.Store.Type = StoreTypeFile
	cfg.SSH.Password = "secret"
	require.Error(t, cfg.Validate())

	cfg.SSH.Username = "admin"
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.SSH.Configured())
}

func TestFleetConfig_Redacted(t *testing.T) {
	cfg := FleetConfig{
		SSH: SSHConfig{Username: "admin", Password: "hunter2"},
		API: APIConfig{APIKey: "k"},
	}

	red := cfg.Redacted()
	assert.Equal(t, "admin", red.SSH.Username)
	assert.NotEqual(t, "hunter2", red.SSH.Password)
	assert.NotEqual(t, "k", red.API.APIKey)
	assert.Equal(t, "hunter2", cfg.SSH.Password)
}
