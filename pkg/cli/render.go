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
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaComment    = "#6272A4"
)

const (
	unknownValue   = "-"
	lowBatteryMark = 20
	cellPadding    = 1
)

var tableHeaders = []string{"IDENTITY", "ADDRESS", "MODEL", "OS", "DISK FREE", "BATTERY", "USER", "CHARGER HOLD"}

const (
	colBattery = 5
	colHold    = 7
)

type palette struct {
	title, header, cell, muted, hold, warn, border lipgloss.Style
}

func newPalette() palette {
	return palette{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)).
			Bold(true),
		header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPurple)).
			Bold(true).
			Padding(0, cellPadding),
		cell: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)).
			Padding(0, cellPadding),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		hold: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)).
			Padding(0, cellPadding),
		warn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Padding(0, cellPadding),
		border: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
	}
}

// RenderJSON writes v as indented JSON.
func RenderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// RenderTable writes one row per host, ordered by identity.
func RenderTable(w io.Writer, hosts []models.HostState, state *models.FleetState) error {
	p := newPalette()

	rows := make([][]string, 0, len(hosts))
	for i := range hosts {
		rows = append(rows, hostRow(&hosts[i]))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.border).
		Headers(tableHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}

			switch {
			case col == colHold && rows[row][col] != unknownValue:
				return p.hold
			case col == colBattery && lowBattery(&hosts[row]):
				return p.warn
			default:
				return p.cell
			}
		})

	title := p.title.Render(fmt.Sprintf("Fleet state: %d machines", len(hosts)))
	footer := p.muted.Render(summaryLine(state))

	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n", title, t.Render(), footer)

	return err
}

func summaryLine(state *models.FleetState) string {
	parts := []string{fmt.Sprintf("generated %s", state.GeneratedAt.Format("2006-01-02 15:04:05"))}

	parts = append(parts, fmt.Sprintf("%d snapshots", len(state.Snapshots)))

	if len(state.Skipped) > 0 {
		parts = append(parts, fmt.Sprintf("%d unreadable", len(state.Skipped)))
	}

	return strings.Join(parts, ", ")
}

func hostRow(h *models.HostState) []string {
	rec := &h.Record

	return []string{
		rec.Identity,
		rec.Address,
		modelCell(rec),
		orUnknown(rec.OSVersion),
		diskCell(rec.DiskFree),
		batteryCell(rec.BatteryPower),
		orUnknown(rec.CurrentUser),
		holdCell(h.ChargerHold),
	}
}

func modelCell(rec *models.HostRecord) string {
	if rec.HardwareModel == nil {
		return unknownValue
	}

	s := *rec.HardwareModel

	if rec.ModelSize != nil {
		s += " " + *rec.ModelSize
	}

	if rec.ModelYear != nil {
		s += " (" + strconv.Itoa(*rec.ModelYear) + ")"
	}

	return s
}

func diskCell(d *models.DiskFree) string {
	switch {
	case d == nil:
		return unknownValue
	case d.GiB != nil:
		return fmt.Sprintf("%.1f GiB", *d.GiB)
	default:
		return d.Raw
	}
}

func batteryCell(b *models.BatteryPower) string {
	if b == nil || b.Percent == nil {
		return unknownValue
	}

	s := strconv.Itoa(*b.Percent) + "%"

	if b.OnExternalPower != nil {
		if *b.OnExternalPower {
			s += " AC"
		} else {
			s += " battery"
		}
	}

	return s
}

func lowBattery(h *models.HostState) bool {
	b := h.Record.BatteryPower
	if b == nil || b.Percent == nil {
		return false
	}

	return *b.Percent <= lowBatteryMark && !models.Deref(b.OnExternalPower, false)
}

func holdCell(hold *models.ChargerHold) string {
	if hold == nil {
		return unknownValue
	}

	return hold.DurationDisplay + " since " + hold.SinceDisplay
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return unknownValue
	}

	return *s
}
