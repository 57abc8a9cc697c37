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

package scan

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

func TestReachabilityProber_Alive(t *testing.T) {
	ctrl := gomock.NewController(t)
	pinger := NewMockPinger(ctrl)
	links := NewMockLinkResolver(ctrl)

	pinger.EXPECT().Ping(gomock.Any(), "172.17.17.10").Return(3*time.Millisecond, nil)
	links.EXPECT().Resolve(gomock.Any(), "172.17.17.10").Return("a4:83:e7:12:34:56", nil)

	res, err := NewReachabilityProber(pinger, links, logger.NewTestLogger()).Probe(context.Background(), "172.17.17.10")
	require.NoError(t, err)
	assert.True(t, res.Alive)
	assert.Equal(t, 3*time.Millisecond, res.RTT)
	require.NotNil(t, res.LinkAddress)
	assert.Equal(t, "a4:83:e7:12:34:56", *res.LinkAddress)
}

func TestReachabilityProber_AliveWithoutLinkAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	pinger := NewMockPinger(ctrl)
	links := NewMockLinkResolver(ctrl)

	pinger.EXPECT().Ping(gomock.Any(), gomock.Any()).Return(time.Millisecond, nil)
	links.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return("", ErrNoNeighborEntry)

	res, err := NewReachabilityProber(pinger, links, logger.NewTestLogger()).Probe(context.Background(), "172.17.17.11")
	require.NoError(t, err)
	assert.True(t, res.Alive)
	assert.Nil(t, res.LinkAddress)
}

func TestReachabilityProber_Unreachable(t *testing.T) {
	ctrl := gomock.NewController(t)
	pinger := NewMockPinger(ctrl)
	links := NewMockLinkResolver(ctrl)

	pinger.EXPECT().Ping(gomock.Any(), gomock.Any()).Return(time.Duration(0), ErrNoReply)

	res, err := NewReachabilityProber(pinger, links, logger.NewTestLogger()).Probe(context.Background(), "172.17.17.12")
	require.NoError(t, err)
	assert.False(t, res.Alive)
}

func TestReachabilityProber_SocketError(t *testing.T) {
	ctrl := gomock.NewController(t)
	pinger := NewMockPinger(ctrl)

	pinger.EXPECT().Ping(gomock.Any(), gomock.Any()).Return(time.Duration(0), errors.New("operation not permitted"))

	_, err := NewReachabilityProber(pinger, nil, logger.NewTestLogger()).Probe(context.Background(), "172.17.17.13")
	require.Error(t, err)
}

func TestReverseName(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := NewMockNameResolver(ctrl)

	resolver.EXPECT().LookupAddr(gomock.Any(), "172.17.17.10").Return([]string{"smartelia-mbp-04.lan."}, nil)
	resolver.EXPECT().LookupAddr(gomock.Any(), "172.17.17.11").Return(nil, errors.New("no PTR"))

	name, ok := ReverseName(context.Background(), resolver, "172.17.17.10")
	require.True(t, ok)
	assert.Equal(t, "smartelia-mbp-04", name)

	_, ok = ReverseName(context.Background(), resolver, "172.17.17.11")
	assert.False(t, ok)
}

func TestICMPPinger_RejectsNonIPv4(t *testing.T) {
	_, err := NewICMPPinger(0, false).Ping(context.Background(), "::1")
	require.ErrorIs(t, err, ErrNotIPv4)
}
