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

import "errors"

var (
	// Address space errors
	ErrInvalidNetwork = errors.New("invalid network")
	ErrInvalidRange   = errors.New("invalid address range")
	ErrInvalidAddress = errors.New("invalid IPv4 address")

	// Reachability errors
	ErrNoReply          = errors.New("no echo reply")
	ErrNotIPv4          = errors.New("not IPv4")
	ErrNoNeighborEntry  = errors.New("no neighbor table entry")
	errUnexpectedPacket = errors.New("unexpected ICMP packet")
)
