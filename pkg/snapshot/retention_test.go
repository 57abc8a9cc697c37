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
	"testing"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errDiskBusy = errors.New("device or resource busy")

func idsFrom(start time.Time, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = NewID(testPrefix, start.Add(time.Duration(i)*time.Hour))
	}

	return ids
}

func TestApplyRetention_DeletesOldest(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		require.NoError(t, store.Write(ctx, testSnapshot(base.Add(time.Duration(i)*time.Hour), "SMARTELIA-MBP-01")))
	}

	removed, err := ApplyRetention(ctx, store, 5, logger.NewTestLogger())
	require.NoError(t, err)

	all := idsFrom(base, 7)
	assert.Equal(t, all[:2], removed)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, all[2:], ids)
}

func TestApplyRetention_UnderLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)

	store.EXPECT().List(gomock.Any()).Return(idsFrom(time.Now(), 3), nil)

	removed, err := ApplyRetention(context.Background(), store, 5, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestApplyRetention_Disabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)

	removed, err := ApplyRetention(context.Background(), store, 0, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func TestApplyRetention_ContinuesPastFailedDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	ids := idsFrom(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), 8)

	store.EXPECT().List(gomock.Any()).Return(ids, nil)
	store.EXPECT().Delete(gomock.Any(), ids[0]).Return(nil)
	store.EXPECT().Delete(gomock.Any(), ids[1]).Return(errDiskBusy)
	store.EXPECT().Delete(gomock.Any(), ids[2]).Return(nil)

	removed, err := ApplyRetention(context.Background(), store, 5, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0], ids[2]}, removed)
}

func TestApplyRetention_ListFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)

	store.EXPECT().List(gomock.Any()).Return(nil, errDiskBusy)

	_, err := ApplyRetention(context.Background(), store, 5, logger.NewTestLogger())
	require.ErrorIs(t, err, errDiskBusy)
}
