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

package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	srv, err := server.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	require.Eventually(t, func() bool {
		return srv.JetStreamEnabled()
	}, 5*time.Second, 50*time.Millisecond, "embedded NATS server not ready for JetStream")

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestNATSStore(t *testing.T) {
	srv := runJetStreamServer(t)

	store, err := NewNATSStore(context.Background(), srv.ClientURL(), "fleet-snapshots-test", testPrefix, logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

func TestNATSStore_ReopensExistingBucket(t *testing.T) {
	srv := runJetStreamServer(t)
	ctx := context.Background()

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)

	t.Cleanup(nc.Close)

	first, err := newNATSStoreFromConn(ctx, nc, "fleet-snapshots-test", testPrefix, logger.NewTestLogger())
	require.NoError(t, err)

	snap := testSnapshot(time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), "SMARTELIA-MBP-01")
	require.NoError(t, first.Write(ctx, snap))

	second, err := newNATSStoreFromConn(ctx, nc, "fleet-snapshots-test", testPrefix, logger.NewTestLogger())
	require.NoError(t, err)

	ids, err := second.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{snap.ID}, ids)
}
