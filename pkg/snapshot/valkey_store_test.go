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
	"os"
	"testing"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/stretchr/testify/require"
)

// Runs against a scratch server, whose snapshot keys it removes first:
// VALKEY_ADDR=127.0.0.1:6379 go test ./pkg/snapshot/...
func TestValkeyStore(t *testing.T) {
	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		t.Skip("VALKEY_ADDR not set")
	}

	store, err := NewValkeyStore(addr, 0, testPrefix, logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	ids, err := store.List(context.Background())
	require.NoError(t, err)

	for _, id := range ids {
		require.NoError(t, store.Delete(context.Background(), id))
	}

	exerciseStore(t, store)
}
