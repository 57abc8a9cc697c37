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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carverauto/fleetradar/pkg/aggregator"
	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errListFailed = errors.New("bucket unavailable")

func seededServer(t *testing.T, options ...func(*APIServer)) *APIServer {
	t.Helper()

	log := logger.NewTestLogger()

	store, err := snapshot.NewFileStore(t.TempDir(), models.DefaultSnapshotPrefix, log)
	require.NoError(t, err)

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	for i, percent := range []int{100, 100} {
		ts := base.Add(time.Duration(i) * time.Hour)
		snap := &models.Snapshot{
			ID:         snapshot.NewID(models.DefaultSnapshotPrefix, ts),
			CapturedAt: ts,
			Hosts: []models.HostRecord{
				{
					Identity: "SMARTELIA-01",
					Address:  "172.17.17.10",
					BatteryPower: &models.BatteryPower{
						Percent: models.Ptr(percent),
						Source:  models.Ptr("AC Power"),
					},
				},
				{Identity: "SMARTELIA-02", Address: "172.17.17.11"},
			},
		}
		require.NoError(t, store.Write(context.Background(), snap))
	}

	options = append([]func(*APIServer){WithSnapshotLister(store)}, options...)

	return NewAPIServer(aggregator.NewAggregator(store, log), log, options...)
}

func get(t *testing.T, s http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, http.NoBody))

	return rr
}

func TestGetMachines(t *testing.T) {
	rr := get(t, seededServer(t), "/api/machines")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var hosts []models.HostState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hosts))
	require.Len(t, hosts, 2)

	assert.Equal(t, "SMARTELIA-01", hosts[0].Record.Identity)
	require.NotNil(t, hosts[0].ChargerHold)
	assert.Equal(t, int64(3600), hosts[0].ChargerHold.Seconds)
	assert.Equal(t, "1h", hosts[0].ChargerHold.DurationDisplay)
	assert.Nil(t, hosts[1].ChargerHold)
}

func TestGetMachine(t *testing.T) {
	s := seededServer(t)

	rr := get(t, s, "/api/machines/SMARTELIA-02")
	require.Equal(t, http.StatusOK, rr.Code)

	var h models.HostState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &h))
	assert.Equal(t, "172.17.17.11", h.Record.Address)

	rr = get(t, s, "/api/machines/smartelia-01")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = get(t, s, "/api/machines/UNKNOWN")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "machine not found")
}

func TestGetSnapshotsAndState(t *testing.T) {
	s := seededServer(t)

	rr := get(t, s, "/api/snapshots")
	require.Equal(t, http.StatusOK, rr.Code)

	var ids []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ids))
	assert.Equal(t, []string{
		"fleet_snapshot_20250314_090000",
		"fleet_snapshot_20250314_100000",
	}, ids)

	rr = get(t, s, "/api/state")
	require.Equal(t, http.StatusOK, rr.Code)

	var state models.FleetState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, ids, state.Snapshots)
	assert.Len(t, state.Hosts, 2)
}

func TestHealthBypassesAPIKey(t *testing.T) {
	s := seededServer(t, WithAPIKey("secret"))

	rr := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	assert.Equal(t, http.StatusUnauthorized, get(t, s, "/api/machines").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/api/machines?api_key=secret").Code)
}

func TestStoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := snapshot.NewMockStore(ctrl)
	store.EXPECT().List(gomock.Any()).Return(nil, errListFailed).Times(2)

	log := logger.NewTestLogger()
	s := NewAPIServer(aggregator.NewAggregator(store, log), log, WithSnapshotLister(store))

	assert.Equal(t, http.StatusInternalServerError, get(t, s, "/api/machines").Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, s, "/api/snapshots").Code)
}

func TestSnapshotsNotConfigured(t *testing.T) {
	log := logger.NewTestLogger()
	s := NewAPIServer(aggregator.NewAggregator(nil, log), log)

	assert.Equal(t, http.StatusNotImplemented, get(t, s, "/api/snapshots").Code)
}

func TestStartStopsOnCancel(t *testing.T) {
	s := seededServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() { errCh <- s.Start(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
