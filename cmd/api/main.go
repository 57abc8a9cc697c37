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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/fleetradar/pkg/aggregator"
	"github.com/carverauto/fleetradar/pkg/api"
	"github.com/carverauto/fleetradar/pkg/config"
	"github.com/carverauto/fleetradar/pkg/lifecycle"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/snapshot"
	"github.com/carverauto/fleetradar/pkg/version"
)

const shutdownTimeout = 10 * time.Second

var errFailedToLoadConfig = errors.New("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/fleetradar/fleet.json", "Path to fleet config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg models.FleetConfig

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	apiLogger, err := lifecycle.CreateComponentLogger(ctx, "fleet-api", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	apiLogger.Info().Str("version", version.GetFullVersion()).Msg("Starting")

	telemetry, err := lifecycle.StartTelemetry(ctx, "fleetradar-api", cfg.Logging, apiLogger)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			apiLogger.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	store, err := snapshot.NewStore(ctx, &cfg.Store, apiLogger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := api.NewAPIServer(
		aggregator.NewAggregator(store, apiLogger),
		apiLogger,
		api.WithSnapshotLister(store),
		api.WithCORS(cfg.API.AllowedOrigins),
		api.WithAPIKey(cfg.API.APIKey),
	)

	return server.Start(ctx, cfg.API.ListenAddr)
}
