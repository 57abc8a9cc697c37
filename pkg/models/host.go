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

// Package models provides the data models shared by the fleet prober, the
// snapshot store and the aggregator.
package models

import "time"

// HostRecord is one host's status as observed by a single probe.
//
// Every optional field is a pointer: nil means the value could not be
// obtained and serializes as JSON null. A zero value (0% battery, false
// external power) is always a real observation.
type HostRecord struct {
	Identity        string         `json:"identity"`
	Address         string         `json:"address"`
	LinkAddress     *string        `json:"link_address"`
	HardwareModel   *string        `json:"hardware_model"`
	ModelIdentifier *string        `json:"model_identifier"`
	ModelSize       *string        `json:"model_size"`
	ModelYear       *int           `json:"model_year"`
	OSVersion       *string        `json:"os_version"`
	DiskFree        *DiskFree      `json:"disk_free"`
	MemorySummary   *string        `json:"memory_summary"`
	ForegroundApps  *string        `json:"foreground_apps"`
	CurrentUser     *string        `json:"current_user"`
	BatteryPower    *BatteryPower  `json:"battery_power"`
	BatteryHealth   *BatteryHealth `json:"battery_health"`
	ObservedAt      time.Time      `json:"observed_at"`
}

// DiskFree keeps the raw `df` column next to its value in GiB. GiB is nil
// when the raw string could not be parsed.
type DiskFree struct {
	Raw string   `json:"raw"`
	GiB *float64 `json:"gib"`
}

// BatteryPower is the instantaneous power state reported by the host.
type BatteryPower struct {
	Percent         *int      `json:"percent"`
	OnExternalPower *bool     `json:"on_external_power"`
	TimeRemaining   *Duration `json:"time_remaining"`
	Source          *string   `json:"source"`
}

// BatteryHealth is the long-term battery condition reported by the host.
type BatteryHealth struct {
	CycleCount            *int    `json:"cycle_count"`
	MaxCapacityPercent    *int    `json:"max_capacity_percent"`
	FullChargeCapacityMAh *int    `json:"full_charge_capacity_mah"`
	Condition             *string `json:"condition"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the value pointed to by p, or fallback when p is nil.
func Deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}

	return *p
}
