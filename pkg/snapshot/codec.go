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

package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/probe"
	"github.com/carverauto/fleetradar/pkg/scan"
)

var ErrCorruptSnapshot = errors.New("corrupt snapshot")

const legacyUnknown = "Unknown"

// Encode serializes a snapshot document.
func Encode(snap *models.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

// Decode parses a stored snapshot. Besides the current document it accepts
// the older bare array of host objects; those take their ID from id and
// their capture time from the ID timestamp.
func Decode(prefix, id string, data []byte) (*models.Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrCorruptSnapshot, id)
	}

	if trimmed[0] == '[' {
		return decodeLegacy(prefix, id, trimmed)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, id, err)
	}

	if snap.ID == "" {
		snap.ID = id
	}

	if snap.CapturedAt.IsZero() {
		at, err := ParseID(prefix, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s has no capture time", ErrCorruptSnapshot, id)
		}

		snap.CapturedAt = at
	}

	return &snap, nil
}

type legacyHost struct {
	IP              string          `json:"ip"`
	MAC             string          `json:"mac"`
	Hostname        string          `json:"hostname"`
	ModelInfo       string          `json:"model_info"`
	MacOSVersion    string          `json:"macos_version"`
	ModelIdentifier string          `json:"model_identifier"`
	DiskFree        string          `json:"disk_free"`
	RAMInfo         string          `json:"ram_info"`
	OpenApps        string          `json:"open_apps"`
	CurrentUser     string          `json:"current_user"`
	BatteryStatus   json.RawMessage `json:"battery_status"`
	BatteryDetails  json.RawMessage `json:"battery_details"`
}

type legacyBatteryStatus struct {
	Percent      *int            `json:"percent"`
	PowerPlugged json.RawMessage `json:"power_plugged"`
	TimeLeft     *string         `json:"time_left"`
	DrawingFrom  *string         `json:"drawing_from"`
}

type legacyBatteryDetails struct {
	CycleCount         *int    `json:"cycle_count"`
	FullChargeCapacity *int    `json:"full_charge_capacity"`
	MaxCapacity        *int    `json:"max_capacity"`
	Condition          *string `json:"condition"`
}

func decodeLegacy(prefix, id string, data []byte) (*models.Snapshot, error) {
	at, err := ParseID(prefix, id)
	if err != nil {
		return nil, fmt.Errorf("%w: legacy snapshot %s: %w", ErrCorruptSnapshot, id, err)
	}

	var hosts []legacyHost
	if err := json.Unmarshal(data, &hosts); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, id, err)
	}

	snap := &models.Snapshot{ID: id, CapturedAt: at, Hosts: make([]models.HostRecord, 0, len(hosts))}

	for _, h := range hosts {
		identity := known(h.Hostname)
		if identity == nil {
			continue
		}

		rec := models.HostRecord{
			Identity:       *identity,
			Address:        h.IP,
			OSVersion:      known(h.MacOSVersion),
			MemorySummary:  known(h.RAMInfo),
			ForegroundApps: known(h.OpenApps),
			CurrentUser:    known(h.CurrentUser),
			BatteryPower:   legacyPower(h.BatteryStatus),
			BatteryHealth:  legacyHealth(h.BatteryDetails),
			ObservedAt:     at,
		}

		if mac := known(h.MAC); mac != nil {
			if norm, ok := scan.NormalizeMAC(*mac); ok {
				rec.LinkAddress = &norm
			}
		}

		if raw := known(h.DiskFree); raw != nil {
			rec.DiskFree, _ = probe.ParseDiskFree(*raw)
		}

		applyLegacyModel(&rec, h)

		snap.Hosts = append(snap.Hosts, rec)
	}

	return snap, nil
}

func applyLegacyModel(rec *models.HostRecord, h legacyHost) {
	rec.ModelIdentifier = known(h.ModelIdentifier)

	if raw := known(h.ModelInfo); raw != nil {
		if info, err := probe.ParseHardwareModel(*raw); err == nil {
			rec.HardwareModel = &info.Name
			if rec.ModelIdentifier == nil {
				rec.ModelIdentifier = info.Identifier
			}
		}
	}

	if rec.ModelIdentifier != nil {
		if info, ok := probe.LookupModel(*rec.ModelIdentifier); ok {
			rec.ModelSize = models.Ptr(info.Size)
			rec.ModelYear = models.Ptr(info.Year)
		}
	}
}

func known(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || s == legacyUnknown {
		return nil
	}

	return &s
}

// legacyPower returns nil for the "Unknown" string or an empty object the
// old tool wrote when the battery probe failed.
func legacyPower(raw json.RawMessage) *models.BatteryPower {
	var st legacyBatteryStatus
	if len(raw) == 0 || raw[0] != '{' || json.Unmarshal(raw, &st) != nil {
		return nil
	}

	power := &models.BatteryPower{
		Percent:         st.Percent,
		Source:          st.DrawingFrom,
		OnExternalPower: PowerFlag(st.PowerPlugged),
	}

	if power.Percent == nil && power.Source == nil && power.OnExternalPower == nil {
		return nil
	}

	if st.TimeLeft != nil {
		if d, ok := parseClock(*st.TimeLeft); ok {
			power.TimeRemaining = &d
		}
	}

	return power
}

func legacyHealth(raw json.RawMessage) *models.BatteryHealth {
	var d legacyBatteryDetails
	if len(raw) == 0 || raw[0] != '{' || json.Unmarshal(raw, &d) != nil {
		return nil
	}

	if d.CycleCount == nil && d.FullChargeCapacity == nil && d.MaxCapacity == nil && d.Condition == nil {
		return nil
	}

	return &models.BatteryHealth{
		CycleCount:            d.CycleCount,
		MaxCapacityPercent:    d.MaxCapacity,
		FullChargeCapacityMAh: d.FullChargeCapacity,
		Condition:             d.Condition,
	}
}

// PowerFlag interprets a stored "plugged in" flag, either a JSON bool or
// one of a fixed set of strings. Anything else is unknown.
func PowerFlag(raw json.RawMessage) *bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "oui", "1", "ac", "charging", "charged":
		return models.Ptr(true)
	case "false", "no", "non", "0", "battery", "discharging":
		return models.Ptr(false)
	default:
		return nil
	}
}

func parseClock(s string) (models.Duration, bool) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, false
	}

	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, false
	}

	mins, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}

	return models.Duration(time.Duration(hours)*time.Hour + time.Duration(mins)*time.Minute), true
}
