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

// Package scan enumerates candidate addresses and checks whether they are alive.
package scan

import (
	"bytes"
	"fmt"
	"net"
	"strings"
)

// Addresses builds the deduplicated candidate list from CIDR networks,
// "a.b.c.d-e.f.g.h" ranges and explicit IPv4 addresses, in first-seen order.
func Addresses(networks, ranges, explicit []string) ([]string, error) {
	seen := make(map[string]struct{})
	out := make([]string, 0)

	add := func(ips []string) {
		for _, ip := range ips {
			if _, ok := seen[ip]; ok {
				continue
			}

			seen[ip] = struct{}{}
			out = append(out, ip)
		}
	}

	for _, cidr := range networks {
		ips, err := ExpandCIDR(cidr)
		if err != nil {
			return nil, err
		}

		add(ips)
	}

	for _, r := range ranges {
		ips, err := ExpandRange(r)
		if err != nil {
			return nil, err
		}

		add(ips)
	}

	for _, a := range explicit {
		ip := net.ParseIP(strings.TrimSpace(a)).To4()
		if ip == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, a)
		}

		add([]string{ip.String()})
	}

	return out, nil
}

// ExpandCIDR expands an IPv4 CIDR into host addresses.
// Skips network and broadcast addresses for prefixes shorter than /31.
func ExpandCIDR(cidr string) ([]string, error) {
	baseIP, ipnet, err := net.ParseCIDR(strings.TrimSpace(cidr))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidNetwork, err)
	}

	if baseIP.To4() == nil {
		return nil, fmt.Errorf("%w: %q is not IPv4", ErrInvalidNetwork, cidr)
	}

	ones, _ := ipnet.Mask.Size()
	network := baseIP.Mask(ipnet.Mask).To4()

	var ips []string

	for current := cloneIP(network); ipnet.Contains(current); incIP(current) {
		if ones < 31 && (current.Equal(network) || isBroadcast(current, ipnet)) {
			continue
		}

		ips = append(ips, current.String())

		if current.Equal(net.IPv4bcast) {
			break
		}
	}

	return ips, nil
}

// ExpandRange expands an inclusive "start-end" IPv4 range.
func ExpandRange(r string) ([]string, error) {
	parts := strings.SplitN(r, "-", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, r)
	}

	start := net.ParseIP(strings.TrimSpace(parts[0])).To4()
	end := net.ParseIP(strings.TrimSpace(parts[1])).To4()

	if start == nil || end == nil || bytes.Compare(start, end) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, r)
	}

	var ips []string

	for current := cloneIP(start); bytes.Compare(current, end) <= 0; incIP(current) {
		ips = append(ips, current.String())

		if current.Equal(end) {
			break
		}
	}

	return ips, nil
}

func cloneIP(ip net.IP) net.IP {
	out := make(net.IP, len(ip))
	copy(out, ip)

	return out
}

// incIP increments an IP address in place.
func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

func isBroadcast(ip net.IP, ipnet *net.IPNet) bool {
	network := ipnet.IP.To4()
	mask := ipnet.Mask

	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}

	broadcast := make(net.IP, net.IPv4len)
	for i := range broadcast {
		broadcast[i] = network[i] | ^mask[i]
	}

	return ip.Equal(broadcast)
}
