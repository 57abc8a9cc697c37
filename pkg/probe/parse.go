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

package probe

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/fleetradar/pkg/models"
)

var (
	ErrEmptyOutput    = errors.New("empty command output")
	ErrUnparsable     = errors.New("unparsable command output")
	ErrNoModelDetails = errors.New("no model name or identifier in output")
)

var (
	modelNamePattern       = regexp.MustCompile(`(?m)Model Name:\s*(.+?)\s*(?:Model Identifier:|$)`)
	modelIdentifierPattern = regexp.MustCompile(`Model Identifier:\s*(\S+)`)
	bareIdentifierPattern  = regexp.MustCompile(`\b(Mac(?:BookPro|BookAir|mini|Pro)?\d+,\d+)\b`)
	osVersionPattern       = regexp.MustCompile(`^\d+(\.\d+)*$`)
	diskSizePattern        = regexp.MustCompile(`^([\d.]+)\s*([BKMGTP])?i?$`)
	memoryPattern          = regexp.MustCompile(`^(\S+) used, (\S+) free$`)
	percentPattern         = regexp.MustCompile(`(\d+)%`)
	sourcePattern          = regexp.MustCompile(`Now drawing from '([^']+)'`)
	remainingPattern       = regexp.MustCompile(`(\d+):(\d+) remaining`)
	chargeStatePattern     = regexp.MustCompile(`\d+%;\s*([^;]+);`)
	leadingIntPattern      = regexp.MustCompile(`^\d+`)
)

// power sources reported by pmset after "Now drawing from"
const (
	sourceAC      = "AC Power"
	sourceUPS     = "UPS Power"
	sourceBattery = "Battery Power"
)

// HardwareInfo is what system_profiler reports about the machine.
type HardwareInfo struct {
	Name       string
	Identifier *string
}

func nonEmpty(out string) (string, error) {
	s := strings.TrimSpace(out)
	if s == "" {
		return "", ErrEmptyOutput
	}

	return s, nil
}

// ParseHostname returns the host name as the host reports it.
func ParseHostname(out string) (string, error) {
	s, err := nonEmpty(out)
	if err != nil {
		return "", err
	}

	if strings.ContainsAny(s, " \t\n") {
		return "", fmt.Errorf("%w: hostname %q", ErrUnparsable, s)
	}

	return s, nil
}

// ParseHardwareModel reads the "Model Name" and "Model Identifier" lines of
// `system_profiler SPHardwareDataType`. Name falls back to the identifier
// when only the latter is present.
func ParseHardwareModel(out string) (HardwareInfo, error) {
	var info HardwareInfo

	if m := modelIdentifierPattern.FindStringSubmatch(out); m != nil {
		info.Identifier = models.Ptr(m[1])
	} else if m := bareIdentifierPattern.FindStringSubmatch(out); m != nil {
		info.Identifier = models.Ptr(m[1])
	}

	if m := modelNamePattern.FindStringSubmatch(out); m != nil {
		info.Name = strings.TrimSpace(m[1])
	}

	if info.Name == "" && info.Identifier != nil {
		info.Name = *info.Identifier
	}

	if info.Name == "" {
		return HardwareInfo{}, ErrNoModelDetails
	}

	return info, nil
}

func ParseOSVersion(out string) (string, error) {
	s, err := nonEmpty(out)
	if err != nil {
		return "", err
	}

	if !osVersionPattern.MatchString(s) {
		return "", fmt.Errorf("%w: os version %q", ErrUnparsable, s)
	}

	return s, nil
}

// ParseDiskFree keeps the raw `df -h` column and converts it to GiB when
// it carries a known unit. An unknown unit leaves GiB nil.
func ParseDiskFree(out string) (*models.DiskFree, error) {
	s, err := nonEmpty(out)
	if err != nil {
		return nil, err
	}

	disk := &models.DiskFree{Raw: s}

	m := diskSizePattern.FindStringSubmatch(s)
	if m == nil {
		return disk, nil
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return disk, nil
	}

	const kib = 1024.0

	switch m[2] {
	case "B":
		v /= kib * kib * kib
	case "K":
		v /= kib * kib
	case "M":
		v /= kib
	case "", "G":
	case "T":
		v *= kib
	case "P":
		v *= kib * kib
	}

	disk.GiB = &v

	return disk, nil
}

// ParseMemorySummary validates the "<used> used, <free> free" line built
// from top's PhysMem row. An empty grep yields " used,  free", which is
// rejected.
func ParseMemorySummary(out string) (string, error) {
	s, err := nonEmpty(out)
	if err != nil {
		return "", err
	}

	if !memoryPattern.MatchString(s) {
		return "", fmt.Errorf("%w: memory summary %q", ErrUnparsable, s)
	}

	return s, nil
}

func ParseForegroundApps(out string) (string, error) {
	return nonEmpty(out)
}

func ParseCurrentUser(out string) (string, error) {
	return nonEmpty(out)
}

// ParseBatteryPower reads `pmset -g batt`:
//
//	Now drawing from 'AC Power'
//	 -InternalBattery-0 (id=4653155)	100%; charged; 0:00 remaining present: true
//
// Machines without a battery report only the source line, which yields a
// BatteryPower with a nil Percent.
func ParseBatteryPower(out string) (*models.BatteryPower, error) {
	s, err := nonEmpty(out)
	if err != nil {
		return nil, err
	}

	power := &models.BatteryPower{}

	if m := percentPattern.FindStringSubmatch(s); m != nil {
		if pct, err := strconv.Atoi(m[1]); err == nil {
			power.Percent = &pct
		}
	}

	if m := sourcePattern.FindStringSubmatch(s); m != nil {
		power.Source = models.Ptr(m[1])
	}

	if m := remainingPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		d := models.Duration(time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute)
		power.TimeRemaining = &d
	}

	var state string
	if m := chargeStatePattern.FindStringSubmatch(s); m != nil {
		state = strings.TrimSpace(m[1])
	}

	power.OnExternalPower = externalPower(power.Source, state)

	if power.Percent == nil && power.Source == nil {
		return nil, fmt.Errorf("%w: pmset output %q", ErrUnparsable, s)
	}

	return power, nil
}

// externalPower applies the enumerated source and charge-state tables.
// Anything outside them is unknown.
func externalPower(source *string, state string) *bool {
	if source != nil {
		switch *source {
		case sourceAC, sourceUPS:
			return models.Ptr(true)
		case sourceBattery:
			return models.Ptr(false)
		}
	}

	switch strings.ToLower(state) {
	case "charging", "charged", "finishing charge", "ac attached":
		return models.Ptr(true)
	case "discharging":
		return models.Ptr(false)
	}

	return nil
}

// ParseBatteryHealth reads the battery section of
// `system_profiler SPPowerDataType`. A machine without a battery yields an
// empty, non-nil BatteryHealth.
func ParseBatteryHealth(out string) (*models.BatteryHealth, error) {
	if _, err := nonEmpty(out); err != nil {
		return nil, err
	}

	health := &models.BatteryHealth{}

	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "Cycle Count":
			health.CycleCount = leadingInt(value)
		case "Maximum Capacity":
			health.MaxCapacityPercent = leadingInt(value)
		case "Full Charge Capacity (mAh)", "Full Charge Capacity":
			health.FullChargeCapacityMAh = leadingInt(value)
		case "Condition":
			if value != "" {
				health.Condition = models.Ptr(value)
			}
		}
	}

	return health, nil
}

func leadingInt(s string) *int {
	digits := leadingIntPattern.FindString(s)
	if digits == "" {
		return nil
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}

	return &n
}
