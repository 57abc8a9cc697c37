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

//go:generate mockgen -destination=mock_snapshot.go -package=snapshot github.com/carverauto/fleetradar/pkg/snapshot Store

// Package snapshot persists fleet snapshots and enforces their retention.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/natsutil"
)

var (
	ErrSnapshotExists   = errors.New("snapshot already exists")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrInvalidID        = errors.New("invalid snapshot id")
	ErrUnknownStoreType = errors.New("unknown snapshot store type")
)

// IDTimeLayout is the timestamp part of a snapshot ID.
const IDTimeLayout = "20060102_150405"

// Store keeps immutable snapshots addressed by ID. List returns IDs in
// ascending capture order and ignores names it cannot parse.
type Store interface {
	Write(ctx context.Context, snap *models.Snapshot) error
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, id string) (*models.Snapshot, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewID names a snapshot captured at t.
func NewID(prefix string, t time.Time) string {
	return prefix + t.UTC().Format(IDTimeLayout)
}

// ParseID returns the capture time encoded in id.
func ParseID(prefix, id string) (time.Time, error) {
	stamp, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q lacks prefix %q", ErrInvalidID, id, prefix)
	}

	t, err := time.Parse(IDTimeLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrInvalidID, id, err)
	}

	return t, nil
}

// sortIDs keeps the parsable IDs and orders them by timestamp, then name.
func sortIDs(prefix string, names []string) []string {
	type entry struct {
		id string
		at time.Time
	}

	entries := make([]entry, 0, len(names))

	for _, name := range names {
		at, err := ParseID(prefix, name)
		if err != nil {
			continue
		}

		entries = append(entries, entry{id: name, at: at})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].at.Equal(entries[j].at) {
			return entries[i].at.Before(entries[j].at)
		}

		return entries[i].id < entries[j].id
	})

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}

	return ids
}

func checkWritable(prefix string, snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidID)
	}

	_, err := ParseID(prefix, snap.ID)

	return err
}

// NewStore opens the backend selected by cfg.Type.
func NewStore(ctx context.Context, cfg *models.StoreConfig, log logger.Logger) (Store, error) {
	switch cfg.Type {
	case "", models.StoreTypeFile:
		return NewFileStore(cfg.Dir, cfg.Prefix, log)
	case models.StoreTypeNATS:
		opts, err := natsutil.SecurityOptions(cfg)
		if err != nil {
			return nil, err
		}

		return NewNATSStore(ctx, cfg.NATSURL, cfg.Bucket, cfg.Prefix, log, opts...)
	case models.StoreTypeValkey:
		return NewValkeyStore(cfg.ValkeyAddress, cfg.ValkeyDB, cfg.Prefix, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreType, cfg.Type)
	}
}
