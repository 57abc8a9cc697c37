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

// Package lifecycle builds the injected loggers and owns process-wide
// telemetry setup and teardown for the fleetradar binaries.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/rs/zerolog"
)

// LoggerImpl implements the logger.Logger interface without using global state
type LoggerImpl struct {
	logger zerolog.Logger
}

// NewLoggerImpl builds a zerolog logger from config. When OTel export is
// enabled the JSON lines are tee'd to the OTLP log pipeline.
func NewLoggerImpl(ctx context.Context, config *logger.Config) (*LoggerImpl, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	level, err := config.ZerologLevel()
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	var output io.Writer = config.Writer()

	if config.OTel.Enabled && config.OTel.Endpoint != "" {
		otelWriter, err := logger.NewOTELWriter(ctx, config.OTel)
		if err != nil {
			return nil, err
		}

		output = logger.NewMultiWriter(output, otelWriter)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	return &LoggerImpl{
		logger: zerolog.New(output).Level(level).With().Timestamp().Logger(),
	}, nil
}

func (l *LoggerImpl) Trace() *zerolog.Event { return l.logger.Trace() }
func (l *LoggerImpl) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *LoggerImpl) Info() *zerolog.Event  { return l.logger.Info() }
func (l *LoggerImpl) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *LoggerImpl) Error() *zerolog.Event { return l.logger.Error() }
func (l *LoggerImpl) Fatal() *zerolog.Event { return l.logger.Fatal() }
func (l *LoggerImpl) Panic() *zerolog.Event { return l.logger.Panic() }
func (l *LoggerImpl) With() zerolog.Context { return l.logger.With() }

func (l *LoggerImpl) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

func (l *LoggerImpl) WithFields(fields map[string]interface{}) zerolog.Logger {
	return l.logger.With().Fields(fields).Logger()
}

func (l *LoggerImpl) SetLevel(level zerolog.Level) {
	l.logger = l.logger.Level(level)
}

func (l *LoggerImpl) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)
	} else {
		l.SetLevel(zerolog.InfoLevel)
	}
}

// CreateComponentLogger creates a logger whose every line carries component.
func CreateComponentLogger(ctx context.Context, component string, config *logger.Config) (logger.Logger, error) {
	impl, err := NewLoggerImpl(ctx, config)
	if err != nil {
		return nil, err
	}

	return &LoggerImpl{logger: impl.logger.With().Str("component", component).Logger()}, nil
}

// Telemetry holds the process-wide tracing and metrics setup for one binary.
type Telemetry struct {
	ctx      context.Context
	shutdown []func(context.Context) error
}

// Context carries the root span started by StartTelemetry.
func (t *Telemetry) Context() context.Context {
	return t.ctx
}

// StartTelemetry initializes tracing and, when an OTLP endpoint is
// configured, metric export. Metrics being disabled is not an error.
func StartTelemetry(ctx context.Context, service string, config *logger.Config, log logger.Logger) (*Telemetry, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	tp, tctx, root, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName: service,
		Logger:      log,
		OTel:        &config.OTel,
	})
	if err != nil {
		return nil, err
	}

	t := &Telemetry{ctx: tctx}
	t.shutdown = append(t.shutdown, func(context.Context) error {
		root.End()
		return nil
	}, tp.Shutdown)

	_, err = logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    service,
		OTel:           &config.OTel,
		ExportInterval: 5 * time.Second,
	})

	switch {
	case errors.Is(err, logger.ErrOTelMetricsDisabled):
		log.Debug().Msg("OTel metrics export disabled")
	case err != nil:
		log.Warn().Err(err).Msg("Failed to initialize OTel metrics, continuing without export")
	}

	return t, nil
}

// Shutdown ends the root span and flushes traces, metrics and logs.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	for _, fn := range t.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := logger.Shutdown(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
