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

package scan

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

const (
	defaultProcARP = "/proc/net/arp"
	arpFlagsEmpty  = "0x0"
	zeroMAC        = "00:00:00:00:00:00"
)

var macPattern = regexp.MustCompile(`(?i)\b([0-9a-f]{1,2}[:-]){5}[0-9a-f]{1,2}\b`)

// CommandRunner runs a local command and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// NeighborTable resolves link-layer addresses from the kernel neighbor
// cache, which a successful echo has just populated. Linux exposes it in
// /proc/net/arp; elsewhere `arp -n` is parsed.
type NeighborTable struct {
	procPath string
	run      CommandRunner
}

var _ LinkResolver = (*NeighborTable)(nil)

func NewNeighborTable() *NeighborTable {
	return &NeighborTable{procPath: defaultProcARP, run: execRunner}
}

// Resolve returns the normalized MAC for addr or ErrNoNeighborEntry.
func (n *NeighborTable) Resolve(ctx context.Context, addr string) (string, error) {
	if data, err := os.ReadFile(n.procPath); err == nil {
		if mac, ok := parseProcARP(data, addr); ok {
			return mac, nil
		}
	}

	if n.run == nil {
		return "", ErrNoNeighborEntry
	}

	out, err := n.run(ctx, "arp", "-n", addr)
	if err != nil {
		return "", fmt.Errorf("arp -n %s: %w", addr, err)
	}

	if mac, ok := parseARPOutput(out); ok {
		return mac, nil
	}

	return "", ErrNoNeighborEntry
}

// parseProcARP reads the Linux table:
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	172.17.17.10     0x1         0x2         a4:83:e7:12:34:56     *        eth0
func parseProcARP(data []byte, addr string) (string, bool) {
	sc := bufio.NewScanner(bytes.NewReader(data))

	for first := true; sc.Scan(); first = false {
		if first {
			continue
		}

		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] != addr {
			continue
		}

		if fields[2] == arpFlagsEmpty {
			return "", false
		}

		mac, ok := NormalizeMAC(fields[3])
		if !ok || mac == zeroMAC {
			return "", false
		}

		return mac, true
	}

	return "", false
}

func parseARPOutput(out []byte) (string, bool) {
	raw := macPattern.Find(out)
	if raw == nil {
		return "", false
	}

	mac, ok := NormalizeMAC(string(raw))
	if !ok || mac == zeroMAC {
		return "", false
	}

	return mac, true
}

// NormalizeMAC lowercases, uses ':' separators and zero-pads single digit
// octets, which macOS prints as "a4:83:e7:2:34:5".
func NormalizeMAC(raw string) (string, bool) {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ':' || r == '-' })
	if len(parts) != 6 {
		return "", false
	}

	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}

	hw, err := net.ParseMAC(strings.Join(parts, ":"))
	if err != nil {
		return "", false
	}

	return hw.String(), true
}
