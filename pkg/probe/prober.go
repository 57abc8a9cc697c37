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

//go:generate mockgen -destination=mock_probe.go -package=probe github.com/carverauto/fleetradar/pkg/probe Prober

// Package probe queries a reachable host for its status over the remote
// channel, one command per field.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/remote"
	"golang.org/x/sync/errgroup"
)

var ErrDialFailed = errors.New("failed to open remote session")

// Field names, also used as the "field" metric attribute.
const (
	FieldHostname       = "hostname"
	FieldHardwareModel  = "hardware_model"
	FieldOSVersion      = "os_version"
	FieldDiskFree       = "disk_free"
	FieldMemorySummary  = "memory_summary"
	FieldForegroundApps = "foreground_apps"
	FieldBatteryPower   = "battery_power"
	FieldBatteryHealth  = "battery_health"
	FieldCurrentUser    = "current_user"
)

const (
	cmdHostname       = "hostname"
	cmdHardwareModel  = `system_profiler SPHardwareDataType | grep "Model Name\|Model Identifier"`
	cmdOSVersion      = "sw_vers -productVersion"
	cmdDiskFree       = `df -h / | awk 'NR==2 {print $4}'`
	cmdMemorySummary  = `top -l 1 | grep PhysMem | awk '{print $2" used, "$6" free"}'`
	cmdForegroundApps = `osascript -e 'tell application "System Events" to get name of every process where background only is false'`
	cmdBatteryPower   = "pmset -g batt"
	cmdBatteryHealth  = "system_profiler SPPowerDataType"
	cmdCurrentUser    = "stat -f%Su /dev/console"
)

// Status holds the remote fields of one host. A nil field could not be
// obtained; Failed names those fields.
type Status struct {
	Hostname        *string
	HardwareModel   *string
	ModelIdentifier *string
	OSVersion       *string
	DiskFree        *models.DiskFree
	MemorySummary   *string
	ForegroundApps  *string
	CurrentUser     *string
	BatteryPower    *models.BatteryPower
	BatteryHealth   *models.BatteryHealth
	Failed          []string
}

// Apply copies the status into rec and fills the model size and year from
// the catalog.
func (s *Status) Apply(rec *models.HostRecord) {
	if s.Hostname != nil {
		rec.Identity = *s.Hostname
	}

	rec.HardwareModel = s.HardwareModel
	rec.ModelIdentifier = s.ModelIdentifier
	rec.OSVersion = s.OSVersion
	rec.DiskFree = s.DiskFree
	rec.MemorySummary = s.MemorySummary
	rec.ForegroundApps = s.ForegroundApps
	rec.CurrentUser = s.CurrentUser
	rec.BatteryPower = s.BatteryPower
	rec.BatteryHealth = s.BatteryHealth

	if s.ModelIdentifier != nil {
		if info, ok := LookupModel(*s.ModelIdentifier); ok {
			rec.ModelSize = models.Ptr(info.Size)
			rec.ModelYear = models.Ptr(info.Year)
		}
	}
}

// Prober fetches the remote status of one reachable host.
type Prober interface {
	Probe(ctx context.Context, addr string) (*Status, error)
}

// setter stores one parsed field.
type setter func(*Status)

type field struct {
	name    string
	command string
	parse   func(out string) (setter, error)
}

func stringField(parse func(string) (string, error), target func(*Status) **string) func(string) (setter, error) {
	return func(out string) (setter, error) {
		v, err := parse(out)
		if err != nil {
			return nil, err
		}

		return func(s *Status) { *target(s) = &v }, nil
	}
}

//nolint:gochecknoglobals // fixed command table
var statusFields = []field{
	{FieldHostname, cmdHostname, stringField(ParseHostname, func(s *Status) **string { return &s.Hostname })},
	{FieldHardwareModel, cmdHardwareModel, func(out string) (setter, error) {
		info, err := ParseHardwareModel(out)
		if err != nil {
			return nil, err
		}

		return func(s *Status) {
			s.HardwareModel = &info.Name
			s.ModelIdentifier = info.Identifier
		}, nil
	}},
	{FieldOSVersion, cmdOSVersion, stringField(ParseOSVersion, func(s *Status) **string { return &s.OSVersion })},
	{FieldDiskFree, cmdDiskFree, func(out string) (setter, error) {
		disk, err := ParseDiskFree(out)
		if err != nil {
			return nil, err
		}

		return func(s *Status) { s.DiskFree = disk }, nil
	}},
	{FieldMemorySummary, cmdMemorySummary, stringField(ParseMemorySummary, func(s *Status) **string { return &s.MemorySummary })},
	{FieldForegroundApps, cmdForegroundApps, stringField(ParseForegroundApps, func(s *Status) **string { return &s.ForegroundApps })},
	{FieldBatteryPower, cmdBatteryPower, func(out string) (setter, error) {
		power, err := ParseBatteryPower(out)
		if err != nil {
			return nil, err
		}

		return func(s *Status) { s.BatteryPower = power }, nil
	}},
	{FieldBatteryHealth, cmdBatteryHealth, func(out string) (setter, error) {
		health, err := ParseBatteryHealth(out)
		if err != nil {
			return nil, err
		}

		return func(s *Status) { s.BatteryHealth = health }, nil
	}},
	{FieldCurrentUser, cmdCurrentUser, stringField(ParseCurrentUser, func(s *Status) **string { return &s.CurrentUser })},
}

// StatusProber runs every field command over one shared session.
type StatusProber struct {
	dialer       remote.Dialer
	fields       []field
	fieldTimeout time.Duration
	hostTimeout  time.Duration
	maxSessions  int
	logger       logger.Logger
}

var _ Prober = (*StatusProber)(nil)

func NewStatusProber(dialer remote.Dialer, cfg *models.FleetConfig, log logger.Logger) *StatusProber {
	maxSessions := cfg.SSH.MaxSessions
	if maxSessions <= 0 {
		maxSessions = models.DefaultMaxSessions
	}

	return &StatusProber{
		dialer:       dialer,
		fields:       statusFields,
		fieldTimeout: time.Duration(cfg.FieldTimeout),
		hostTimeout:  time.Duration(cfg.HostTimeout),
		maxSessions:  maxSessions,
		logger:       log,
	}
}

// Probe dials addr once and fetches all fields, each bounded by the field
// timeout and all of them by the host timeout. Only a dial failure is an
// error; a failed field is left nil and listed in Status.Failed.
func (p *StatusProber) Probe(ctx context.Context, addr string) (*Status, error) {
	if p.hostTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.hostTimeout)
		defer cancel()
	}

	sess, err := p.dialer.Dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDialFailed, addr, err)
	}
	defer func() { _ = sess.Close() }()

	setters := make([]setter, len(p.fields))

	var g errgroup.Group

	g.SetLimit(p.maxSessions)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for i, f := range p.fields {
			if ctx.Err() != nil {
				break
			}

			g.Go(func() error {
				setters[i] = p.fetch(ctx, sess, addr, f)
				return nil
			})
		}

		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// unblocks commands stuck opening a channel on a hung host
		_ = sess.Close()

		<-done
	}

	status := &Status{}

	for i, set := range setters {
		if set == nil {
			status.Failed = append(status.Failed, p.fields[i].name)
			continue
		}

		set(status)
	}

	for _, name := range status.Failed {
		RecordFieldFailure(ctx, name, failureReason(ctx))
	}

	return status, nil
}

func (p *StatusProber) fetch(ctx context.Context, sess remote.Session, addr string, f field) setter {
	if p.fieldTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.fieldTimeout)
		defer cancel()
	}

	out, err := sess.Run(ctx, f.command)
	if err != nil {
		p.logger.Debug().Err(err).Str("address", addr).Str("field", f.name).Msg("Field command failed")
		return nil
	}

	set, err := f.parse(out.Stdout)
	if err != nil {
		p.logger.Debug().Err(err).Str("address", addr).Str("field", f.name).Msg("Field output unusable")
		return nil
	}

	return set
}

func failureReason(ctx context.Context) string {
	if ctx.Err() != nil {
		return "deadline"
	}

	return "field_error"
}
