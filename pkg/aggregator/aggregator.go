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

// Package aggregator folds the retained snapshots into the current fleet
// state, replaying them in capture order.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/snapshot"
	"golang.org/x/sync/errgroup"
)

const defaultReadConcurrency = 4

// Aggregator reads snapshots from a store and replays them.
type Aggregator struct {
	store           snapshot.Store
	logger          logger.Logger
	now             func() time.Time
	readConcurrency int
}

func NewAggregator(store snapshot.Store, log logger.Logger) *Aggregator {
	return &Aggregator{
		store:           store,
		logger:          log,
		now:             time.Now,
		readConcurrency: defaultReadConcurrency,
	}
}

// Aggregate reads every retained snapshot and returns the replayed state.
// Unreadable snapshots are skipped and listed in FleetState.Skipped; only
// a failure to list the store is returned.
func (a *Aggregator) Aggregate(ctx context.Context) (*models.FleetState, error) {
	ids, err := a.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	snaps := make([]*models.Snapshot, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.readConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			snap, err := a.store.Read(gctx, id)
			if err != nil {
				a.logger.Warn().Err(err).Str("snapshot_id", id).Msg("Skipping unreadable snapshot")
				return nil
			}

			snaps[i] = snap

			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readable := make([]*models.Snapshot, 0, len(snaps))

	var skipped []string

	for i, snap := range snaps {
		if snap == nil {
			skipped = append(skipped, ids[i])
			continue
		}

		readable = append(readable, snap)
	}

	state := Replay(readable, a.now())
	state.Skipped = skipped

	a.logger.Debug().
		Int("snapshots", len(state.Snapshots)).
		Int("skipped", len(skipped)).
		Int("hosts", len(state.Hosts)).
		Msg("Fleet state aggregated")

	return state, nil
}

// Replay orders snaps by capture time (then ID) and folds them: each
// identity keeps its record from the latest snapshot it appears in, and its
// charger-hold marker is advanced once per snapshot containing it. Display
// strings use now's location. The input slice is not modified.
func Replay(snaps []*models.Snapshot, now time.Time) *models.FleetState {
	ordered := make([]*models.Snapshot, 0, len(snaps))

	for _, s := range snaps {
		if s != nil {
			ordered = append(ordered, s)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CapturedAt.Equal(ordered[j].CapturedAt) {
			return ordered[i].CapturedAt.Before(ordered[j].CapturedAt)
		}

		return ordered[i].ID < ordered[j].ID
	})

	state := models.NewFleetState(now)
	markers := make(map[string]*models.ChargerHoldMarker)

	for _, snap := range ordered {
		state.Snapshots = append(state.Snapshots, snap.ID)

		for i := range snap.Hosts {
			rec := &snap.Hosts[i]
			if rec.Identity == "" {
				continue
			}

			state.Hosts[rec.Identity] = models.HostState{
				Record:     *rec,
				SnapshotID: snap.ID,
				CapturedAt: snap.CapturedAt,
			}

			m, ok := markers[rec.Identity]
			if !ok {
				m = &models.ChargerHoldMarker{}
				markers[rec.Identity] = m
			}

			m.Observe(snap.CapturedAt, HoldCondition(rec))
		}
	}

	for identity, host := range state.Hosts {
		host.ChargerHold = chargerHold(markers[identity], now.Location())
		state.Hosts[identity] = host
	}

	return state
}
