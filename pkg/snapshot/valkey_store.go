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
	"strings"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	valkey "github.com/valkey-io/valkey-go"
)

const valkeyKeySeparator = ":"

// ValkeyStore keeps each snapshot in a string key "<prefix>:<id>".
type ValkeyStore struct {
	client valkey.Client
	prefix string
	logger logger.Logger
}

var _ Store = (*ValkeyStore)(nil)

func NewValkeyStore(address string, db int, prefix string, log logger.Logger) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{address},
		SelectDB:    db,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", address, err)
	}

	return newValkeyStoreFromClient(client, prefix, log), nil
}

func newValkeyStoreFromClient(client valkey.Client, prefix string, log logger.Logger) *ValkeyStore {
	if prefix == "" {
		prefix = models.DefaultSnapshotPrefix
	}

	return &ValkeyStore{client: client, prefix: prefix, logger: log}
}

func (s *ValkeyStore) key(id string) string {
	return s.prefix + valkeyKeySeparator + id
}

// Write uses SET NX so an existing snapshot is never replaced.
func (s *ValkeyStore) Write(ctx context.Context, snap *models.Snapshot) error {
	if err := checkWritable(s.prefix, snap); err != nil {
		return err
	}

	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", snap.ID, err)
	}

	cmd := s.client.B().Set().Key(s.key(snap.ID)).Value(valkey.BinaryString(data)).Nx().Build()

	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return fmt.Errorf("%w: %s", ErrSnapshotExists, snap.ID)
		}

		return fmt.Errorf("valkey SET for snapshot %s failed: %w", snap.ID, err)
	}

	s.logger.Debug().Str("snapshot_id", snap.ID).Int("hosts", len(snap.Hosts)).Msg("Snapshot written to valkey")

	return nil
}

func (s *ValkeyStore) List(ctx context.Context) ([]string, error) {
	pattern := s.key("*")

	keys, err := s.client.Do(ctx, s.client.B().Keys().Pattern(pattern).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey KEYS with pattern '%s' failed: %w", pattern, err)
	}

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, s.prefix+valkeyKeySeparator))
	}

	return sortIDs(s.prefix, names), nil
}

func (s *ValkeyStore) Read(ctx context.Context, id string) (*models.Snapshot, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(id)).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("valkey GET for snapshot %s failed: %w", id, err)
	}

	return Decode(s.prefix, id, data)
}

func (s *ValkeyStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Do(ctx, s.client.B().Del().Key(s.key(id)).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}

	return nil
}

func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
