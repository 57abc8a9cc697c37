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
	"time"

	"github.com/carverauto/fleetradar/pkg/aggregator"
	"github.com/carverauto/fleetradar/pkg/cli"
	"github.com/carverauto/fleetradar/pkg/config"
	"github.com/carverauto/fleetradar/pkg/lifecycle"
	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/snapshot"
	"github.com/carverauto/fleetradar/pkg/version"
)

const defaultTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cmdCfg, err := cli.ParseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}

	if err != nil {
		return err
	}

	if cmdCfg.Help {
		cli.PrintUsage(os.Stdout)
		return nil
	}

	if cmdCfg.Version {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var cfg models.FleetConfig

	if err := config.NewConfig(nil).LoadAndValidate(ctx, cmdCfg.ConfigFile, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// stdout carries the table or JSON
	logCfg := *cfg.Logging
	logCfg.Output = "stderr"
	logCfg.OTel = logger.OTelConfig{}

	cliLogger, err := lifecycle.CreateComponentLogger(ctx, "fleet-cli", &logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := snapshot.NewStore(ctx, &cfg.Store, cliLogger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return cli.Run(ctx, cmdCfg, aggregator.NewAggregator(store, cliLogger), os.Stdout)
}
