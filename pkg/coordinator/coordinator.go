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

// Package coordinator maintains a live view of one Dahua device channel:
// it discovers device capabilities on first contact, refreshes a merged
// state snapshot on a fixed interval, and consumes the device's event
// stream, dispatching normalized events to registered listeners and the
// host event bus.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harborcam/dahua/pkg/bus"
	"github.com/harborcam/dahua/pkg/dahua"
	"github.com/harborcam/dahua/pkg/logger"
	"github.com/harborcam/dahua/pkg/models"
)

const (
	defaultPollInterval = 30 * time.Second
	eventQueueSize      = 64
)

// Config carries the per-device settings the host supplies at setup time.
type Config struct {
	// Name is the user-facing device name. Empty falls back to the
	// machine name discovered from the device.
	Name string

	// Channel is the 0-based channel index this coordinator watches.
	// Cameras use 0; NVR channels use their index.
	Channel int

	// Events narrows which event codes the camera stream subscribes to.
	// Empty subscribes to all.
	Events []string

	// PollInterval is the refresh cadence. Zero means 30 seconds.
	PollInterval time.Duration
}

// Coordinator owns the device state snapshot, the event timestamp table and
// the listener registry for one device channel.
type Coordinator struct {
	client   dahua.Client
	pub      bus.Publisher
	log      logger.Logger
	clock    Clock
	name     string
	channel  int
	events   []string
	interval time.Duration

	camReader dahua.EventReader
	vtoReader dahua.EventReader

	// mu guards the snapshot and everything discovery/refresh writes.
	mu                       sync.RWMutex
	snap                     models.DeviceInfo
	initialized              bool
	channelNumber            int
	profileMode              string
	supportsCoaxialControl   bool
	supportsDisarmingLinkage bool
	supportsProfileMode      bool

	// listeners and timestamps race between dispatch and host entity
	// setup/teardown, so they get their own lock.
	listenersMu sync.RWMutex
	listeners   map[string]func()

	timestampsMu sync.RWMutex
	timestamps   map[string]int64

	queue    chan models.Event
	done     chan struct{}
	cancel   context.CancelFunc
	runCtx   context.Context
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a coordinator. A nil clock uses real time. Event stream
// readers are wired afterwards with SetReaders; discovery decides which one
// to start.
func New(cfg Config, client dahua.Client, pub bus.Publisher, clock Clock, log logger.Logger) *Coordinator {
	if clock == nil {
		clock = realClock{}
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Coordinator{
		client:        client,
		pub:           pub,
		log:           log,
		clock:         clock,
		name:          cfg.Name,
		channel:       cfg.Channel,
		events:        cfg.Events,
		interval:      interval,
		channelNumber: cfg.Channel + 1,
		profileMode:   profileModeDay,
		snap:          models.NewDeviceInfo(),
		listeners:     make(map[string]func()),
		timestamps:    make(map[string]int64),
		queue:         make(chan models.Event, eventQueueSize),
		done:          make(chan struct{}),
	}
}

// SetReaders attaches the event stream readers. Exactly one of them is
// started by discovery: the camera reader for IP cameras and NVRs, the VTO
// reader for doorbells. Either may be nil when the host does not want that
// stream.
func (c *Coordinator) SetReaders(camera, vto dahua.EventReader) {
	c.camReader = camera
	c.vtoReader = vto
}

// Start runs the first refresh cycle synchronously, then begins the
// periodic refresh loop and event dispatch. A first-cycle failure aborts
// with ErrNotReady and leaves nothing running.
func (c *Coordinator) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	c.runCtx = ctx

	c.wg.Add(1)

	go c.dispatchLoop()

	if err := c.refresh(ctx); err != nil {
		c.Stop()
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}

	c.wg.Add(1)

	go c.runLoop(ctx)

	c.log.Info().
		Str("model", c.Model()).
		Str("serial", c.SerialNumber()).
		Int("channel", c.channel).
		Msg("Coordinator started")

	return nil
}

// Stop terminates whichever event reader was started, stops the refresh
// loop and waits for all coordinator goroutines to exit. An in-flight
// refresh cycle runs to completion. Stop is idempotent.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		if c.camReader != nil {
			c.camReader.Stop()
		}

		if c.vtoReader != nil {
			c.vtoReader.Stop()
		}

		close(c.done)

		if c.cancel != nil {
			c.cancel()
		}

		c.wg.Wait()

		c.log.Info().Int("channel", c.channel).Msg("Coordinator stopped")
	})
}

// runLoop drives refresh cycles strictly one at a time off the ticker.
func (c *Coordinator) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := c.clock.Ticker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.Chan():
			if err := c.refresh(ctx); err != nil {
				c.log.Warn().Err(err).Msg("Failed to sync device state")
			}
		}
	}
}

func eventKey(eventName string, channel int) string {
	return fmt.Sprintf("%s-%d", eventName, channel)
}
