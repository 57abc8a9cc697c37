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

package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	errUnreadable = errors.New("unexpected end of JSON input")
	errStoreDown  = errors.New("connection refused")
)

//nolint:gochecknoglobals // test fixture
var t0 = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func host(identity string, percent int, source string) models.HostRecord {
	return models.HostRecord{
		Identity: identity,
		Address:  "172.17.17.10",
		BatteryPower: &models.BatteryPower{
			Percent: models.Ptr(percent),
			Source:  models.Ptr(source),
		},
	}
}

func holding(identity string) models.HostRecord {
	return host(identity, 100, "AC Power")
}

func notHolding(identity string) models.HostRecord {
	return host(identity, 87, "Battery Power")
}

func snap(ts time.Time, hosts ...models.HostRecord) *models.Snapshot {
	return &models.Snapshot{
		ID:         snapshot.NewID(models.DefaultSnapshotPrefix, ts),
		CapturedAt: ts,
		Hosts:      hosts,
	}
}

func TestReplay_EndToEnd(t *testing.T) {
	a := snap(at(0), holding("H1"))
	b := snap(at(30), holding("H1"))
	c := snap(at(60), notHolding("H1"))

	state := Replay([]*models.Snapshot{c, a, b}, at(90))

	require.Contains(t, state.Hosts, "H1")
	h1 := state.Hosts["H1"]
	assert.Equal(t, c.ID, h1.SnapshotID)
	assert.Equal(t, models.Ptr(87), h1.Record.BatteryPower.Percent)
	assert.Nil(t, h1.ChargerHold)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, state.Snapshots)
}

func TestReplay_RunResetsOnFalse(t *testing.T) {
	snaps := []*models.Snapshot{
		snap(at(0), holding("H")),
		snap(at(10), holding("H")),
		snap(at(20), notHolding("H")),
		snap(at(30), holding("H")),
		snap(at(40), holding("H")),
	}

	state := Replay(snaps, at(50))

	hold := state.Hosts["H"].ChargerHold
	require.NotNil(t, hold)
	assert.True(t, at(30).Equal(hold.Since))
	assert.True(t, at(40).Equal(hold.LastObservedHolding))
	assert.Equal(t, models.Duration(10*time.Minute), hold.Duration)
	assert.Equal(t, int64(600), hold.Seconds)
	assert.Equal(t, "10m", hold.DurationDisplay)
	assert.Equal(t, "2025-03-14 10:30:00", hold.SinceDisplay)
}

func TestReplay_GapTolerant(t *testing.T) {
	snaps := []*models.Snapshot{
		snap(at(0), holding("H"), holding("other")),
		snap(at(60), holding("H")),
		snap(at(120), notHolding("other")),
		snap(at(180), holding("H")),
	}

	state := Replay(snaps, at(200))

	hold := state.Hosts["H"].ChargerHold
	require.NotNil(t, hold)
	assert.True(t, at(0).Equal(hold.Since))
	assert.True(t, at(180).Equal(hold.LastObservedHolding))
	assert.Equal(t, "3h", hold.DurationDisplay)

	assert.Nil(t, state.Hosts["other"].ChargerHold)
}

func TestReplay_LatestSnapshotWins(t *testing.T) {
	old := host("H", 50, "Battery Power")
	old.OSVersion = models.Ptr("13.6")

	latest := host("H", 60, "Battery Power")

	snaps := []*models.Snapshot{
		snap(at(0), old, holding("gone")),
		snap(at(10), latest),
	}

	state := Replay(snaps, at(20))

	h := state.Hosts["H"]
	assert.Equal(t, models.Ptr(60), h.Record.BatteryPower.Percent)
	assert.Nil(t, h.Record.OSVersion, "fields are never merged from older snapshots")
	assert.True(t, at(10).Equal(h.CapturedAt))

	require.Contains(t, state.Hosts, "gone")
	assert.Equal(t, snaps[0].ID, state.Hosts["gone"].SnapshotID)
}

func TestReplay_SingleObservationHasZeroDuration(t *testing.T) {
	state := Replay([]*models.Snapshot{snap(at(0), holding("H"))}, at(5))

	hold := state.Hosts["H"].ChargerHold
	require.NotNil(t, hold)
	assert.Equal(t, "0s", hold.DurationDisplay)
	assert.Zero(t, hold.Seconds)
}

func TestReplay_Idempotent(t *testing.T) {
	snaps := []*models.Snapshot{
		snap(at(20), holding("A"), notHolding("B")),
		snap(at(0), holding("A"), holding("B")),
		snap(at(10), holding("A")),
	}

	first := Replay(snaps, at(30))
	second := Replay(snaps, at(30))

	assert.Equal(t, first, second)
	assert.True(t, at(20).Equal(snaps[0].CapturedAt), "input order is left untouched")
}

func TestReplay_Empty(t *testing.T) {
	state := Replay(nil, at(0))

	assert.Empty(t, state.Hosts)
	assert.Empty(t, state.Snapshots)
}

func TestAggregator_SkipsUnreadable(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := snapshot.NewMockStore(ctrl)

	a := snap(at(0), holding("H"))
	c := snap(at(60), holding("H"))
	brokenID := snapshot.NewID(models.DefaultSnapshotPrefix, at(30))

	store.EXPECT().List(gomock.Any()).Return([]string{a.ID, brokenID, c.ID}, nil)
	store.EXPECT().Read(gomock.Any(), a.ID).Return(a, nil)
	store.EXPECT().Read(gomock.Any(), brokenID).Return(nil, errUnreadable)
	store.EXPECT().Read(gomock.Any(), c.ID).Return(c, nil)

	agg := NewAggregator(store, logger.NewTestLogger())
	agg.now = func() time.Time { return at(90) }

	state, err := agg.Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{a.ID, c.ID}, state.Snapshots)
	assert.Equal(t, []string{brokenID}, state.Skipped)

	hold := state.Hosts["H"].ChargerHold
	require.NotNil(t, hold)
	assert.True(t, at(0).Equal(hold.Since))
	assert.True(t, at(90).Equal(state.GeneratedAt))
}

func TestAggregator_NoSnapshots(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := snapshot.NewMockStore(ctrl)

	store.EXPECT().List(gomock.Any()).Return(nil, nil)

	state, err := NewAggregator(store, logger.NewTestLogger()).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.Hosts)
	assert.Empty(t, state.Skipped)
}

func TestAggregator_ListFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := snapshot.NewMockStore(ctrl)

	store.EXPECT().List(gomock.Any()).Return(nil, errStoreDown)

	_, err := NewAggregator(store, logger.NewTestLogger()).Aggregate(context.Background())
	require.ErrorIs(t, err, errStoreDown)
}

func TestAggregator_FileStoreRoundTrip(t *testing.T) {
	store, err := snapshot.NewFileStore(t.TempDir(), models.DefaultSnapshotPrefix, logger.NewTestLogger())
	require.NoError(t, err)

	ctx := context.Background()

	for _, s := range []*models.Snapshot{
		snap(at(0), holding("H1")),
		snap(at(30), holding("H1")),
		snap(at(60), notHolding("H1")),
	} {
		require.NoError(t, store.Write(ctx, s))
	}

	first, err := NewAggregator(store, logger.NewTestLogger()).Aggregate(ctx)
	require.NoError(t, err)

	second, err := NewAggregator(store, logger.NewTestLogger()).Aggregate(ctx)
	require.NoError(t, err)

	first.GeneratedAt = second.GeneratedAt
	assert.Equal(t, first, second)
	assert.Nil(t, first.Hosts["H1"].ChargerHold)
	assert.Equal(t, models.Ptr(87), first.Hosts["H1"].Record.BatteryPower.Percent)
}
