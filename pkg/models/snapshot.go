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
	"sort"
	"time"
)

// Snapshot is the immutable set of records accepted by one fleet scan.
type Snapshot struct {
	ID         string       `json:"id"`
	ScanID     string       `json:"scan_id,omitempty"`
	CapturedAt time.Time    `json:"captured_at"`
	Hosts      []HostRecord `json:"hosts"`
}

// ChargerHoldMarker tracks an unbroken run of "full and on external power"
// observations for one identity. The zero value is NotHolding.
type ChargerHoldMarker struct {
	Holding             bool       `json:"holding"`
	Since               *time.Time `json:"since"`
	LastObservedHolding *time.Time `json:"last_observed_holding"`
}

// Observe advances the marker with the hold condition seen at ts.
func (m *ChargerHoldMarker) Observe(ts time.Time, hold bool) {
	if !hold {
		*m = ChargerHoldMarker{}
		return
	}

	if !m.Holding {
		m.Holding = true
		m.Since = Ptr(ts)
	}

	m.LastObservedHolding = Ptr(ts)
}

// Duration is the elapsed time of the current run, zero when not holding.
func (m *ChargerHoldMarker) Duration() time.Duration {
	if !m.Holding || m.Since == nil || m.LastObservedHolding == nil {
		return 0
	}

	return m.LastObservedHolding.Sub(*m.Since)
}

// FleetState is the aggregated current view of the fleet.
type FleetState struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Snapshots   []string             `json:"snapshots"`
	Skipped     []string             `json:"skipped,omitempty"`
	Hosts       map[string]HostState `json:"hosts"`
}

// HostState is the most recent record of one identity plus derived fields.
type HostState struct {
	Record      HostRecord   `json:"record"`
	SnapshotID  string       `json:"snapshot_id"`
	CapturedAt  time.Time    `json:"captured_at"`
	ChargerHold *ChargerHold `json:"charger_hold"`
}

// ChargerHold is attached to a HostState only while the host is holding.
type ChargerHold struct {
	Since               time.Time `json:"since"`
	LastObservedHolding time.Time `json:"last_observed_holding"`
	Duration            Duration  `json:"duration"`
	Seconds             int64     `json:"seconds"`
	SinceDisplay        string    `json:"since_display"`
	DurationDisplay     string    `json:"duration_display"`
}

// NewFleetState returns an empty state.
func NewFleetState(generatedAt time.Time) *FleetState {
	return &FleetState{
		GeneratedAt: generatedAt,
		Snapshots:   []string{},
		Hosts:       make(map[string]HostState),
	}
}

// Sorted returns the host states ordered by identity.
func (s *FleetState) Sorted() []HostState {
	out := make([]HostState, 0, len(s.Hosts))
	for _, h := range s.Hosts {
		out = append(out, h)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Record.Identity < out[j].Record.Identity
	})

	return out
}
