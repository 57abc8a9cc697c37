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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store unavailable")

type staticSource struct {
	state *models.FleetState
	err   error
}

func (s staticSource) Aggregate(context.Context) (*models.FleetState, error) {
	return s.state, s.err
}

func fixtureState() *models.FleetState {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	state := models.NewFleetState(now)
	state.Snapshots = []string{"fleet_snapshot_20250314_110000", "fleet_snapshot_20250314_120000"}

	state.Hosts["SMARTELIA-01"] = models.HostState{
		Record: models.HostRecord{
			Identity:      "SMARTELIA-01",
			Address:       "172.17.17.10",
			HardwareModel: models.Ptr("MacBook Pro"),
			ModelSize:     models.Ptr("14-inch"),
			ModelYear:     models.Ptr(2021),
			OSVersion:     models.Ptr("14.4.1"),
			DiskFree:      &models.DiskFree{Raw: "120Gi", GiB: models.Ptr(120.0)},
			BatteryPower: &models.BatteryPower{
				Percent:         models.Ptr(100),
				OnExternalPower: models.Ptr(true),
			},
		},
		ChargerHold: &models.ChargerHold{
			DurationDisplay: "1h",
			SinceDisplay:    "2025-03-14 11:00:00",
		},
	}
	state.Hosts["SMARTELIA-02"] = models.HostState{
		Record: models.HostRecord{
			Identity: "SMARTELIA-02",
			Address:  "172.17.17.11",
			DiskFree: &models.DiskFree{Raw: "12Zi"},
			BatteryPower: &models.BatteryPower{
				Percent:         models.Ptr(15),
				OnExternalPower: models.Ptr(false),
			},
		},
	}

	return state
}

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer

	cfg, err := ParseFlags([]string{"-json", "-machine", "SMARTELIA-01", "-config", "fleet.json"}, &out)
	require.NoError(t, err)
	assert.True(t, cfg.JSON)
	assert.Equal(t, "SMARTELIA-01", cfg.Identity)
	assert.Equal(t, "fleet.json", cfg.ConfigFile)

	cfg, err = ParseFlags(nil, &out)
	require.NoError(t, err)
	assert.Equal(t, defaultConfigPath, cfg.ConfigFile)

	_, err = ParseFlags([]string{"extra"}, &out)
	require.ErrorIs(t, err, errUnexpectedArgs)

	_, err = ParseFlags([]string{"-bogus"}, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Usage: fleetradar-cli")
}

func TestRun_Table(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), &CmdConfig{}, staticSource{state: fixtureState()}, &out))

	text := out.String()
	assert.Contains(t, text, "Fleet state: 2 machines")
	assert.Contains(t, text, "MacBook Pro 14-inch (2021)")
	assert.Contains(t, text, "120.0 GiB")
	assert.Contains(t, text, "12Zi")
	assert.Contains(t, text, "100% AC")
	assert.Contains(t, text, "15% battery")
	assert.Contains(t, text, "1h since 2025-03-14 11:00:00")
	assert.Contains(t, text, "2 snapshots")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("SMARTELIA-01")), bytes.Index(out.Bytes(), []byte("SMARTELIA-02")))
}

func TestRun_JSON(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), &CmdConfig{JSON: true}, staticSource{state: fixtureState()}, &out))

	var state models.FleetState
	require.NoError(t, json.Unmarshal(out.Bytes(), &state))
	assert.Len(t, state.Hosts, 2)

	out.Reset()
	require.NoError(t, Run(context.Background(), &CmdConfig{JSON: true, Identity: "smartelia-02"}, staticSource{state: fixtureState()}, &out))

	var h models.HostState
	require.NoError(t, json.Unmarshal(out.Bytes(), &h))
	assert.Equal(t, "172.17.17.11", h.Record.Address)
}

func TestRun_HoldOnly(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), &CmdConfig{JSON: true, HoldOnly: true}, staticSource{state: fixtureState()}, &out))

	var hosts []models.HostState
	require.NoError(t, json.Unmarshal(out.Bytes(), &hosts))
	require.Len(t, hosts, 1)
	assert.Equal(t, "SMARTELIA-01", hosts[0].Record.Identity)

	out.Reset()
	require.NoError(t, Run(context.Background(), &CmdConfig{JSON: true, HoldOnly: true, Identity: "SMARTELIA-02"}, staticSource{state: fixtureState()}, &out))
	assert.JSONEq(t, "[]", out.String())
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer

	err := Run(context.Background(), &CmdConfig{Identity: "NOPE"}, staticSource{state: fixtureState()}, &out)
	require.ErrorIs(t, err, errMachineNotFound)

	err = Run(context.Background(), &CmdConfig{}, staticSource{err: errStoreDown}, &out)
	require.ErrorIs(t, err, errStoreDown)
}

func TestRun_EmptyFleet(t *testing.T) {
	var out bytes.Buffer

	state := models.NewFleetState(time.Now())

	require.NoError(t, Run(context.Background(), &CmdConfig{}, staticSource{state: state}, &out))
	assert.Contains(t, out.String(), "Fleet state: 0 machines")
}
