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

//go:generate mockgen -destination=mock_scan.go -package=scan github.com/carverauto/fleetradar/pkg/scan Reachability,Pinger,LinkResolver,NameResolver

package scan

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
)

// ReachabilityResult is the outcome of one liveness check. LinkAddress is
// nil when the host is down or its neighbor entry could not be read.
type ReachabilityResult struct {
	Alive       bool
	RTT         time.Duration
	LinkAddress *string
}

// Reachability decides whether an address is alive. An unreachable host is
// a result, not an error; errors mean the probe itself could not run.
type Reachability interface {
	Probe(ctx context.Context, addr string) (ReachabilityResult, error)
}

type Pinger interface {
	Ping(ctx context.Context, addr string) (time.Duration, error)
}

type LinkResolver interface {
	Resolve(ctx context.Context, addr string) (string, error)
}

// NameResolver maps an address back to a host name.
type NameResolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// ReachabilityProber pings an address and, when it answers, reads its
// link-layer address.
type ReachabilityProber struct {
	pinger Pinger
	links  LinkResolver
	logger logger.Logger
}

var _ Reachability = (*ReachabilityProber)(nil)

func NewReachabilityProber(pinger Pinger, links LinkResolver, log logger.Logger) *ReachabilityProber {
	return &ReachabilityProber{pinger: pinger, links: links, logger: log}
}

func (r *ReachabilityProber) Probe(ctx context.Context, addr string) (ReachabilityResult, error) {
	rtt, err := r.pinger.Ping(ctx, addr)
	if errors.Is(err, ErrNoReply) {
		return ReachabilityResult{}, nil
	}

	if err != nil {
		return ReachabilityResult{}, err
	}

	result := ReachabilityResult{Alive: true, RTT: rtt}

	if r.links == nil {
		return result, nil
	}

	mac, err := r.links.Resolve(ctx, addr)
	if err != nil {
		r.logger.Debug().Err(err).Str("address", addr).Msg("Link address unavailable")
		return result, nil
	}

	result.LinkAddress = &mac

	return result, nil
}

// ReverseName returns the first PTR name for addr without its trailing dot
// and, to match self-reported host names, without its domain.
func ReverseName(ctx context.Context, resolver NameResolver, addr string) (string, bool) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	names, err := resolver.LookupAddr(ctx, addr)
	if err != nil || len(names) == 0 {
		return "", false
	}

	name := strings.TrimSuffix(names[0], ".")
	if host, _, found := strings.Cut(name, "."); found {
		name = host
	}

	return name, name != ""
}
