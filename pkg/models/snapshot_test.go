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

func TestChargerHoldMarker_Observe(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	at := func(i int) time.Time { return base.Add(time.Duration(i) * 30 * time.Minute) }

	var m ChargerHoldMarker

	assert.False(t, m.Holding)
	assert.Zero(t, m.Duration())

	m.Observe(at(0), true)
	m.Observe(at(1), true)
	require.True(t, m.Holding)
	assert.Equal(t, at(0), *m.Since)
	assert.Equal(t, at(1), *m.LastObservedHolding)
	assert.Equal(t, 30*time.Minute, m.Duration())

	m.Observe(at(2), false)
	assert.Equal(t, ChargerHoldMarker{}, m)

	m.Observe(at(3), true)
	m.Observe(at(4), true)
	assert.Equal(t, at(3), *m.Since)
	assert.Equal(t, at(4), *m.LastObservedHolding)
}

func TestHostRecord_UnknownIsNull(t *testing.T) {
	rec := HostRecord{
		Identity:     "SMARTELIA-01",
		Address:      "172.17.17.10",
		BatteryPower: &BatteryPower{Percent: Ptr(0), OnExternalPower: Ptr(false)},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Nil(t, raw["os_version"])
	assert.Contains(t, raw, "os_version")
	assert.Nil(t, raw["battery_health"])

	power, ok := raw["battery_power"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), power["percent"])
	assert.Equal(t, false, power["on_external_power"])
	assert.Nil(t, power["source"])
}

func TestFleetState_Sorted(t *testing.T) {
	state := NewFleetState(time.Now())
	state.Hosts["b"] = HostState{Record: HostRecord{Identity: "b"}}
	state.Hosts["a"] = HostState{Record: HostRecord{Identity: "a"}}
	state.Hosts["c"] = HostState{Record: HostRecord{Identity: "c"}}

	sorted := state.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, "a", sorted[0].Record.Identity)
	assert.Equal(t, "c", sorted[2].Record.Identity)
}
