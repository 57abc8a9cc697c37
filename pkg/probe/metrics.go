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

package probe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName           = "github.com/carverauto/fleetradar/pkg/probe"
	metricFieldFailures = "fleet.probe.field_failures"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	fieldFailureCounter metric.Int64Counter
)

func initMeter() {
	counter, err := otel.Meter(meterName).Int64Counter(
		metricFieldFailures,
		metric.WithDescription("Remote status fields that degraded to unknown"),
	)
	if err != nil {
		otel.Handle(err)
	}

	fieldFailureCounter = counter
}

// RecordFieldFailure counts one field that could not be obtained.
func RecordFieldFailure(ctx context.Context, field, reason string) {
	meterOnce.Do(initMeter)

	if fieldFailureCounter == nil {
		return
	}

	fieldFailureCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("field", field),
		attribute.String("reason", reason),
	))
}
