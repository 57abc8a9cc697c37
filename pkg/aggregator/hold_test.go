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
	"testing"
	"time"

	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/stretchr/testify/assert"
)

func power(percent *int, source *string, external *bool) *models.HostRecord {
	return &models.HostRecord{
		Identity: "SMARTELIA-MBP-01",
		BatteryPower: &models.BatteryPower{
			Percent:         percent,
			Source:          source,
			OnExternalPower: external,
		},
	}
}

func TestHoldCondition(t *testing.T) {
	full := models.Ptr(100)

	tests := []struct {
		name string
		rec  *models.HostRecord
		want bool
	}{
		{"full on AC", power(full, models.Ptr("AC Power"), nil), true},
		{"full on UPS", power(full, models.Ptr("UPS Power"), nil), true},
		{"source wins over flag", power(full, models.Ptr("Battery Power"), models.Ptr(true)), false},
		{"external source despite false flag", power(full, models.Ptr("AC Power"), models.Ptr(false)), true},
		{"no source falls back to flag", power(full, nil, models.Ptr(true)), true},
		{"no source and flag false", power(full, nil, models.Ptr(false)), false},
		{"no source and flag unknown", power(full, nil, nil), false},
		{"unrecognized source falls back to flag", power(full, models.Ptr("Solar"), models.Ptr(true)), true},
		{"not full", power(models.Ptr(99), models.Ptr("AC Power"), models.Ptr(true)), false},
		{"unknown percent", power(nil, models.Ptr("AC Power"), models.Ptr(true)), false},
		{"no battery power", &models.HostRecord{Identity: "SMARTELIA-MBP-01"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HoldCondition(tt.rec))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m"},
		{time.Hour, "1h"},
		{26*time.Hour + 5*time.Minute + 9*time.Second, "1d 2h 5m"},
		{72 * time.Hour, "3d"},
		{-time.Minute, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}
