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

// Package cli prints the aggregated fleet state for operators.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/carverauto/fleetradar/pkg/models"
)

const defaultConfigPath = "/etc/fleetradar/fleet.json"

// StateSource produces the current fleet state.
type StateSource interface {
	Aggregate(ctx context.Context) (*models.FleetState, error)
}

// ParseFlags parses args (without the program name).
func ParseFlags(args []string, output io.Writer) (*CmdConfig, error) {
	fs := flag.NewFlagSet("fleetradar-cli", flag.ContinueOnError)
	fs.SetOutput(output)

	cfg := &CmdConfig{}

	fs.StringVar(&cfg.ConfigFile, "config", defaultConfigPath, "path to fleet config file")
	fs.BoolVar(&cfg.JSON, "json", false, "print JSON instead of a table")
	fs.StringVar(&cfg.Identity, "machine", "", "show a single machine by identity")
	fs.BoolVar(&cfg.HoldOnly, "holding", false, "only show machines on a charger hold")
	fs.BoolVar(&cfg.Help, "help", false, "show help message")
	fs.BoolVar(&cfg.Version, "version", false, "print the version and exit")

	fs.Usage = func() { PrintUsage(output) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: %s", errUnexpectedArgs, strings.Join(fs.Args(), " "))
	}

	return cfg, nil
}

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `Usage: fleetradar-cli [options]

Prints the current fleet state aggregated from the retained snapshots.

Options:
  -config string   path to fleet config file (default "/etc/fleetradar/fleet.json")
  -json            print JSON instead of a table
  -machine string  show a single machine by identity
  -holding         only show machines on a charger hold
  -help            show this help message
  -version         print the version and exit

Examples:
  # Whole fleet
  fleetradar-cli

  # Machines that have sat full on the charger, as JSON
  fleetradar-cli -holding -json

  # One machine
  fleetradar-cli -machine SMARTELIA-01
`)
}

// Run aggregates the state and prints what cfg selects.
func Run(ctx context.Context, cfg *CmdConfig, source StateSource, out io.Writer) error {
	state, err := source.Aggregate(ctx)
	if err != nil {
		return err
	}

	hosts := state.Sorted()

	if cfg.Identity != "" {
		h, ok := findHost(hosts, cfg.Identity)
		if !ok {
			return fmt.Errorf("%w: %s", errMachineNotFound, cfg.Identity)
		}

		hosts = []models.HostState{h}
	}

	if cfg.HoldOnly {
		hosts = holding(hosts)
	}

	if cfg.JSON {
		if cfg.Identity != "" && len(hosts) == 1 {
			return RenderJSON(out, hosts[0])
		}

		if cfg.Identity != "" || cfg.HoldOnly {
			return RenderJSON(out, hosts)
		}

		return RenderJSON(out, state)
	}

	return RenderTable(out, hosts, state)
}

func findHost(hosts []models.HostState, identity string) (models.HostState, bool) {
	for _, h := range hosts {
		if strings.EqualFold(h.Record.Identity, identity) {
			return h, true
		}
	}

	return models.HostState{}, false
}

func holding(hosts []models.HostState) []models.HostState {
	out := make([]models.HostState, 0, len(hosts))

	for _, h := range hosts {
		if h.ChargerHold != nil {
			out = append(out, h)
		}
	}

	return out
}
