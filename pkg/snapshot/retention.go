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
	"fmt"

	"github.com/carverauto/fleetradar/pkg/logger"
)

// ApplyRetention deletes the oldest snapshots until at most maxSnapshots
// remain. A failed delete is logged and skipped. maxSnapshots <= 0 keeps
// everything. It returns the IDs it removed.
func ApplyRetention(ctx context.Context, store Store, maxSnapshots int, log logger.Logger) ([]string, error) {
	if maxSnapshots <= 0 {
		return nil, nil
	}

	ids, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots for retention: %w", err)
	}

	if len(ids) <= maxSnapshots {
		return nil, nil
	}

	excess := ids[:len(ids)-maxSnapshots]
	removed := make([]string, 0, len(excess))

	for _, id := range excess {
		if err := store.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("snapshot_id", id).Msg("Failed to delete expired snapshot")
			continue
		}

		removed = append(removed, id)
	}

	log.Info().Int("removed", len(removed)).Int("kept", len(ids)-len(removed)).Msg("Snapshot retention applied")

	return removed, nil
}
