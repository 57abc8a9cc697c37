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

package sweeper

import (
	"errors"
	"time"

	"github.com/carverauto/fleetradar/pkg/models"
)

var (
	ErrSnapshotWrite = errors.New("failed to write snapshot")
	ErrNoAddresses   = errors.New("address space is empty")
)

// drop reasons reported in ScanSummary and logs
const (
	reasonUnreachable = "unreachable"
	reasonProbeError  = "probe_error"
	reasonNoIdentity  = "no_identity"
	reasonMembership  = "membership"
	reasonPanic       = "panic"
)

// ScanSummary counts what happened to the addresses of one scan.
type ScanSummary struct {
	ScanID      string
	Addresses   int
	Completed   int
	Alive       int
	Accepted    int
	Dropped     map[string]int
	DeadlineHit bool
	Duration    time.Duration
}

// hostOutcome is what a worker reports for one address. record is nil
// when the address produced nothing for the snapshot.
type hostOutcome struct {
	addr   string
	alive  bool
	record *models.HostRecord
	reason string
}
