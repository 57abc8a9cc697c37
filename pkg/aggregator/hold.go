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

package aggregator

import (
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/fleetradar/pkg/models"
)

const (
	fullChargePercent = 100
	sinceLayout       = "2006-01-02 15:04:05"
)

//nolint:gochecknoglobals // enumerated power-source policy
var externalSources = map[string]struct{}{
	"ac power":  {},
	"ups power": {},
	"ac":        {},
	"external":  {},
}

// HoldCondition reports whether rec shows a full battery on external power.
// A source naming the battery rules it out, a known external source
// confirms it, and without either the external-power flag decides.
func HoldCondition(rec *models.HostRecord) bool {
	power := rec.BatteryPower
	if power == nil || power.Percent == nil || *power.Percent != fullChargePercent {
		return false
	}

	if power.Source != nil {
		source := strings.ToLower(strings.TrimSpace(*power.Source))

		if strings.Contains(source, "battery") {
			return false
		}

		if _, ok := externalSources[source]; ok {
			return true
		}
	}

	return models.Deref(power.OnExternalPower, false)
}

// FormatDuration renders d as "2d 3h 15m". Seconds appear only when d is
// under a minute; zero renders as "0s".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	total := int64(d / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}

	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}

	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%ds", seconds)
	}

	return strings.Join(parts, " ")
}

func chargerHold(m *models.ChargerHoldMarker, loc *time.Location) *models.ChargerHold {
	if !m.Holding || m.Since == nil || m.LastObservedHolding == nil {
		return nil
	}

	d := m.Duration()

	return &models.ChargerHold{
		Since:               *m.Since,
		LastObservedHolding: *m.LastObservedHolding,
		Duration:            models.Duration(d),
		Seconds:             int64(d / time.Second),
		SinceDisplay:        m.Since.In(loc).Format(sinceLayout),
		DurationDisplay:     FormatDuration(d),
	}
}
