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
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

const (
	fileExt      = ".json"
	dirPerm      = 0o755
	filePerm     = 0o644
	tempFileGlob = ".tmp-*"
)

// FileStore keeps one JSON file per snapshot in a directory.
type FileStore struct {
	dir    string
	prefix string
	logger logger.Logger
}

var _ Store = (*FileStore)(nil)

func NewFileStore(dir, prefix string, log logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if prefix == "" {
		prefix = models.DefaultSnapshotPrefix
	}

	return &FileStore{dir: dir, prefix: prefix, logger: log}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// Write stores snap under its ID. The document is written to a temporary
// file and renamed into place, so readers never see a partial snapshot.
func (s *FileStore) Write(_ context.Context, snap *models.Snapshot) error {
	if err := checkWritable(s.prefix, snap); err != nil {
		return err
	}

	target := s.path(snap.ID)

	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%w: %s", ErrSnapshotExists, snap.ID)
	}

	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", snap.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, snap.ID+tempFileGlob)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("failed to write snapshot %s: %w", snap.ID, err))
	}

	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to sync snapshot %s: %w", snap.ID, err))
	}

	if err := tmp.Chmod(filePerm); err != nil {
		return cleanup(fmt.Errorf("failed to chmod snapshot %s: %w", snap.ID, err))
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot %s: %w", snap.ID, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to publish snapshot %s: %w", snap.ID, err)
	}

	s.logger.Debug().Str("snapshot_id", snap.ID).Str("path", target).Int("hosts", len(snap.Hosts)).Msg("Snapshot written")

	return nil
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots in %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}

		names = append(names, strings.TrimSuffix(e.Name(), fileExt))
	}

	return sortIDs(s.prefix, names), nil
}

func (s *FileStore) Read(_ context.Context, id string) (*models.Snapshot, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", id, err)
	}

	return Decode(s.prefix, id, data)
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}

	return err
}

func (*FileStore) Close() error {
	return nil
}
