/*
 * Copyright 2025 Harborcam Authors.
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
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/harborcam/dahua/pkg/bus"
	"github.com/harborcam/dahua/pkg/config"
	"github.com/harborcam/dahua/pkg/coordinator"
	"github.com/harborcam/dahua/pkg/dahua"
	"github.com/harborcam/dahua/pkg/logger"
)

const apiTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/harborcam/dahuad.json", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logr, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pub, err := newPublisher(cfg, logr)
	if err != nil {
		return err
	}

	client := dahua.NewHTTPClient(cfg.Address, cfg.Port, cfg.Username, cfg.Password,
		&http.Client{Timeout: apiTimeout})

	coord := coordinator.New(coordinator.Config{
		Name:         cfg.Name,
		Channel:      cfg.Channel,
		Events:       cfg.Events,
		PollInterval: time.Duration(cfg.PollInterval),
	}, client, pub, nil, logr)

	coord.SetReaders(
		dahua.NewStreamReader(client, cfg.Channel, cfg.Events, coord.HandleStreamData, logr),
		dahua.NewVTOReader(cfg.Address, dahua.DefaultVTOPort, coord.HandleVTOEvent, logr),
	)

	if err := coord.Start(ctx); err != nil {
		return fmt.Errorf("failed to start coordinator: %w", err)
	}

	<-ctx.Done()

	coord.Stop()

	return nil
}

// newPublisher dials NATS when configured, otherwise falls back to the
// in-process bus so the daemon still runs standalone.
func newPublisher(cfg *config.Config, logr logger.Logger) (bus.Publisher, error) {
	if cfg.Bus.NATSURL == "" {
		logr.Info().Msg("No NATS URL configured, using in-process event bus")
		return bus.NewInProcessBus(), nil
	}

	nc, err := nats.Connect(cfg.Bus.NATSURL, nats.Name("dahuad"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	pub, err := bus.NewNATSPublisher(nc, cfg.Bus.Subject)
	if err != nil {
		return nil, err
	}

	logr.Info().Str("url", cfg.Bus.NATSURL).Msg("Publishing device events to NATS")

	return pub, nil
}
