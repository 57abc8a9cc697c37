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

package sweeper

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName           = "github.com/carverauto/fleetradar/pkg/sweeper"
	metricScanDuration  = "fleet.scan.duration"
	metricScanAddresses = "fleet.scan.addresses"
	metricScanAlive     = "fleet.scan.alive"
	metricScanAccepted  = "fleet.scan.accepted"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	durationHistogram metric.Float64Histogram
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	addressCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	aliveCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	acceptedCounter metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	hist, err := meter.Float64Histogram(
		metricScanDuration,
		metric.WithDescription("Wall time of one fleet scan"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	durationHistogram = hist

	addressCounter = newCounter(meter, metricScanAddresses, "Addresses probed")
	aliveCounter = newCounter(meter, metricScanAlive, "Addresses that answered the reachability probe")
	acceptedCounter = newCounter(meter, metricScanAccepted, "Hosts written to a snapshot")
}

func newCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)
	}

	return counter
}

// recordScan publishes the totals of a finished scan.
func recordScan(ctx context.Context, summary *ScanSummary) {
	meterOnce.Do(initMeter)

	attrs := metric.WithAttributes(attribute.Bool("deadline_hit", summary.DeadlineHit))

	if durationHistogram != nil {
		durationHistogram.Record(ctx, summary.Duration.Seconds(), attrs)
	}

	for _, c := range []struct {
		counter metric.Int64Counter
		value   int
	}{
		{addressCounter, summary.Addresses},
		{aliveCounter, summary.Alive},
		{acceptedCounter, summary.Accepted},
	} {
		if c.counter != nil {
			c.counter.Add(ctx, int64(c.value), attrs)
		}
	}
}
