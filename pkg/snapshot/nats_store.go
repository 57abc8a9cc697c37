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
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const natsConnectTimeout = 5 * time.Second

// NATSStore keeps snapshots in a JetStream key-value bucket, one key per ID.
type NATSStore struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	prefix string
	logger logger.Logger
}

var _ Store = (*NATSStore)(nil)

// NewNATSStore connects to url and creates the bucket if it is missing.
// extra is appended to the default connection options.
func NewNATSStore(ctx context.Context, url, bucket, prefix string, log logger.Logger, extra ...nats.Option) (*NATSStore, error) {
	opts := []nats.Option{
		nats.Name("fleetradar-snapshots"),
		nats.Timeout(natsConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	store, err := newNATSStoreFromConn(ctx, nc, bucket, prefix, log)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return store, nil
}

func newNATSStoreFromConn(ctx context.Context, nc *nats.Conn, bucket, prefix string, log logger.Logger) (*NATSStore, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}

	if bucket == "" {
		bucket = models.DefaultNATSBucket
	}

	if prefix == "" {
		prefix = models.DefaultSnapshotPrefix
	}

	ctx, cancel := context.WithTimeout(ctx, natsConnectTimeout)
	defer cancel()

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "fleet snapshots",
		History:     1,
	})
	if errors.Is(err, jetstream.ErrBucketExists) {
		kv, err = js.KeyValue(ctx, bucket)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", bucket, err)
	}

	return &NATSStore{nc: nc, kv: kv, prefix: prefix, logger: log}, nil
}

func (s *NATSStore) Write(ctx context.Context, snap *models.Snapshot) error {
	if err := checkWritable(s.prefix, snap); err != nil {
		return err
	}

	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", snap.ID, err)
	}

	if _, err := s.kv.Create(ctx, snap.ID, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("%w: %s", ErrSnapshotExists, snap.ID)
		}

		return fmt.Errorf("failed to write snapshot %s: %w", snap.ID, err)
	}

	s.logger.Debug().Str("snapshot_id", snap.ID).Int("hosts", len(snap.Hosts)).Msg("Snapshot written to KV")

	return nil
}

func (s *NATSStore) List(ctx context.Context) ([]string, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var names []string

	for key := range lister.Keys() {
		names = append(names, key)
	}

	return sortIDs(s.prefix, names), nil
}

func (s *NATSStore) Read(ctx context.Context, id string) (*models.Snapshot, error) {
	entry, err := s.kv.Get(ctx, id)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", id, err)
	}

	return Decode(s.prefix, id, entry.Value())
}

// Delete purges the key so retention does not leave delete markers behind.
func (s *NATSStore) Delete(ctx context.Context, id string) error {
	if _, err := s.kv.Get(ctx, id); errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}

	return s.kv.Purge(ctx, id)
}

func (s *NATSStore) Close() error {
	s.nc.Close()
	return nil
}
