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

// Package sweeper probes the fleet's address space and records the hosts
// it finds as a snapshot.
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/probe"
	"github.com/carverauto/fleetradar/pkg/scan"
	"github.com/carverauto/fleetradar/pkg/snapshot"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/carverauto/fleetradar/pkg/sweeper"

// FleetSweeper runs fleet scans with a fixed pool of workers.
type FleetSweeper struct {
	config *models.FleetConfig
	reach  scan.Reachability
	prober probe.Prober
	names  scan.NameResolver
	store  snapshot.Store
	logger logger.Logger
	tracer trace.Tracer
	now    func() time.Time

	mu          sync.Mutex
	lastSummary *ScanSummary
	done        chan struct{}
	stopOnce    sync.Once
}

// NewFleetSweeper wires a sweeper. prober may be nil, in which case host
// identities come from reverse DNS only; names may be nil to use the
// system resolver.
func NewFleetSweeper(
	config *models.FleetConfig,
	reach scan.Reachability,
	prober probe.Prober,
	names scan.NameResolver,
	store snapshot.Store,
	log logger.Logger,
) *FleetSweeper {
	return &FleetSweeper{
		config: config,
		reach:  reach,
		prober: prober,
		names:  names,
		store:  store,
		logger: log,
		tracer: logger.GetTracer(tracerName),
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// Start runs a scan immediately and then every ScanInterval until ctx ends
// or Stop is called. Failed scans are logged and retried on the next tick.
func (s *FleetSweeper) Start(ctx context.Context) error {
	interval := time.Duration(s.config.ScanInterval)
	if interval <= 0 {
		return s.Run(ctx)
	}

	s.logger.Info().Dur("interval", interval).Msg("Starting fleet sweeper")

	if err := s.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Initial scan failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Context canceled, stopping sweeper")

			return ctx.Err()
		case <-s.done:
			s.logger.Info().Msg("Received done signal, stopping sweeper")

			return nil
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Periodic scan failed")
			}
		}
	}
}

// Stop ends a running Start loop after its current scan.
func (s *FleetSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// LastSummary returns the summary of the most recent scan, or nil.
func (s *FleetSweeper) LastSummary() *ScanSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSummary
}

// Run scans, writes the snapshot and applies retention. Only address space
// errors and a failed write are returned.
func (s *FleetSweeper) Run(ctx context.Context) error {
	snap, _, err := s.Scan(ctx)
	if err != nil {
		return err
	}

	if err := s.store.Write(ctx, snap); err != nil {
		return fmt.Errorf("%w %s: %w", ErrSnapshotWrite, snap.ID, err)
	}

	s.logger.Info().Str("snapshot_id", snap.ID).Str("scan_id", snap.ScanID).Int("hosts", len(snap.Hosts)).Msg("Snapshot stored")

	if _, err := snapshot.ApplyRetention(ctx, s.store, s.config.Store.MaxSnapshots, s.logger); err != nil {
		s.logger.Warn().Err(err).Msg("Snapshot retention failed")
	}

	return nil
}

// Scan probes every address until done or until the scan deadline, and
// returns the accepted hosts as an unsaved snapshot. Work still running at
// the deadline is abandoned; only completed hosts are included.
func (s *FleetSweeper) Scan(ctx context.Context) (*models.Snapshot, *ScanSummary, error) {
	addrs, err := scan.Addresses(s.config.Networks, s.config.Ranges, s.config.Addresses)
	if err != nil {
		return nil, nil, err
	}

	if len(addrs) == 0 {
		return nil, nil, ErrNoAddresses
	}

	summary := &ScanSummary{
		ScanID:    uuid.NewString(),
		Addresses: len(addrs),
		Dropped:   make(map[string]int),
	}

	ctx, span := s.tracer.Start(ctx, "fleet.scan", trace.WithAttributes(
		attribute.String("scan_id", summary.ScanID),
		attribute.Int("addresses", len(addrs)),
	))
	defer span.End()

	log := s.logger.With().Str("scan_id", summary.ScanID).Logger()
	log.Info().Int("addresses", len(addrs)).Int("concurrency", s.config.Concurrency).Msg("Starting fleet scan")

	start := s.now()

	scanCtx := ctx

	if deadline := time.Duration(s.config.ScanDeadline); deadline > 0 {
		var cancel context.CancelFunc

		scanCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	hosts := s.collect(scanCtx, addrs, summary)

	summary.Duration = s.now().Sub(start)

	capturedAt := s.now().UTC()
	snap := &models.Snapshot{
		ID:         snapshot.NewID(s.config.Store.Prefix, capturedAt),
		ScanID:     summary.ScanID,
		CapturedAt: capturedAt,
		Hosts:      hosts,
	}

	recordScan(ctx, summary)

	span.SetAttributes(
		attribute.Int("alive", summary.Alive),
		attribute.Int("accepted", summary.Accepted),
		attribute.Bool("deadline_hit", summary.DeadlineHit),
	)

	if summary.DeadlineHit {
		span.SetStatus(codes.Error, "scan deadline reached")
	}

	log.Info().
		Int("addresses", summary.Addresses).
		Int("completed", summary.Completed).
		Int("alive", summary.Alive).
		Int("accepted", summary.Accepted).
		Interface("dropped", summary.Dropped).
		Bool("deadline_hit", summary.DeadlineHit).
		Dur("duration", summary.Duration).
		Msg("Fleet scan complete")

	s.mu.Lock()
	s.lastSummary = summary
	s.mu.Unlock()

	return snap, summary, nil
}

// collect feeds addrs to the worker pool and gathers results until every
// address is done or ctx ends. It is the only writer of the host slice.
func (s *FleetSweeper) collect(ctx context.Context, addrs []string, summary *ScanSummary) []models.HostRecord {
	workers := s.config.Concurrency
	if workers <= 0 {
		workers = models.DefaultConcurrency
	}

	workers = min(workers, len(addrs))

	work := make(chan string)
	results := make(chan hostOutcome, workers)

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for addr := range work {
				out := s.probeHost(ctx, addr)

				if ctx.Err() != nil {
					continue
				}

				select {
				case results <- out:
				case <-ctx.Done():
				}
			}
		}()
	}

	go func() {
		defer close(work)

		for _, addr := range addrs {
			select {
			case work <- addr:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	hosts := make([]models.HostRecord, 0)

	for {
		select {
		case out, ok := <-results:
			if !ok {
				return hosts
			}

			summary.Completed++

			if out.alive {
				summary.Alive++
			}

			if out.record == nil {
				summary.Dropped[out.reason]++
				continue
			}

			summary.Accepted++
			hosts = append(hosts, *out.record)
		case <-ctx.Done():
			summary.DeadlineHit = true

			s.logger.Warn().
				Str("scan_id", summary.ScanID).
				Int("completed", summary.Completed).
				Int("addresses", summary.Addresses).
				Msg("Scan deadline reached, abandoning outstanding probes")

			return hosts
		}
	}
}

// probeHost turns one address into a record, or into a drop reason. A
// panic is contained to this address.
func (s *FleetSweeper) probeHost(ctx context.Context, addr string) (out hostOutcome) {
	out.addr = addr

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("address", addr).Msg("Recovered from panic while probing host")

			out = hostOutcome{addr: addr, reason: reasonPanic}
		}
	}()

	res, err := s.reach.Probe(ctx, addr)
	if err != nil {
		s.logger.Debug().Err(err).Str("address", addr).Msg("Reachability probe failed")

		out.reason = reasonProbeError

		return out
	}

	if !res.Alive {
		out.reason = reasonUnreachable
		return out
	}

	out.alive = true

	rec := &models.HostRecord{Address: addr, LinkAddress: res.LinkAddress}

	if s.prober != nil {
		status, err := s.prober.Probe(ctx, addr)
		if err != nil {
			s.logger.Debug().Err(err).Str("address", addr).Msg("Remote status unavailable")
		} else {
			status.Apply(rec)
		}
	}

	if rec.Identity == "" {
		if name, ok := scan.ReverseName(ctx, s.names, addr); ok {
			rec.Identity = name
		}
	}

	if rec.Identity == "" {
		out.reason = reasonNoIdentity
		return out
	}

	if !s.config.Membership.Accepts(rec.Identity) {
		s.logger.Debug().Str("address", addr).Str("identity", rec.Identity).Msg("Host outside fleet membership")

		out.reason = reasonMembership

		return out
	}

	rec.ObservedAt = s.now().UTC()
	out.record = rec

	return out
}
