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

package coordinator

import (
	"context"
	"strings"

	"github.com/harborcam/dahua/pkg/bus"
	"github.com/harborcam/dahua/pkg/models"
)

const (
	codeCrossLineDetection   = "CrossLineDetection"
	codeCrossRegionDetection = "CrossRegionDetection"
	codeSmartMotionHuman     = "SmartMotionHuman"
	codeDoorStatus           = "DoorStatus"

	objectTypeHuman = "human"
	doorStatusOpen  = "Open"
)

// enqueue hands an event from a reader callback to the dispatch goroutine.
// The queue is bounded; delivery is best effort, so a full queue drops the
// event with a warning rather than blocking the reader.
func (c *Coordinator) enqueue(ev models.Event) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.queue <- ev:
	default:
		c.log.Warn().Str("code", ev.Code).Msg("Event queue full, dropping event")
	}
}

func (c *Coordinator) dispatchLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.queue:
			c.processEvent(ev)
		}
	}
}

// processEvent publishes the event to the host bus, resolves event code
// aliasing, runs the Active/Inactive transition and invokes the registered
// listener, if any. Events with no listener still update the timestamp
// table.
func (c *Coordinator) processEvent(ev models.Event) {
	ev.DeviceName = c.DeviceName()

	if c.pub != nil {
		ctx := c.runCtx
		if ctx == nil {
			ctx = context.Background()
		}

		if err := c.pub.Publish(ctx, bus.NewDeviceEvent(&ev, c.clock.Now())); err != nil {
			c.log.Debug().Err(err).Str("code", ev.Code).Msg("Event bus publish failed")
		}
	}

	code := c.translateCode(&ev)
	key := eventKey(code, c.channel)

	active, ok := transition(code, ev.Action, ev.Data)
	if !ok {
		return
	}

	var ts int64
	if active {
		ts = c.clock.Now().Unix()
	}

	c.timestampsMu.Lock()
	c.timestamps[key] = ts
	c.timestampsMu.Unlock()

	if listener := c.listener(key); listener != nil {
		listener()
	}
}

// translateCode maps a generic detection event to SmartMotionHuman when the
// payload says a human was detected and a listener opted into the specific
// code at this channel. The wire protocol never changes; only dispatch does.
func (c *Coordinator) translateCode(ev *models.Event) string {
	code := ev.Code
	if code != codeCrossLineDetection && code != codeCrossRegionDetection {
		return code
	}

	if !strings.EqualFold(ev.ObjectType(), objectTypeHuman) {
		return code
	}

	if c.listener(eventKey(codeSmartMotionHuman, c.channel)) == nil {
		return code
	}

	return codeSmartMotionHuman
}

// transition is the Inactive/Active state machine per (code, action). It
// returns the new state and whether the action causes a transition at all.
// DoorStatus pulses key off the payload's Status field; every other pulse
// reads the numeric State field (1 means active, e.g. a pressed button).
func transition(code string, action models.Action, data map[string]any) (active, ok bool) {
	switch action {
	case models.ActionStart:
		return true, true
	case models.ActionStop:
		return false, true
	case models.ActionPulse:
		if code == codeDoorStatus {
			status, _ := data["Status"].(string)
			return status == doorStatusOpen, true
		}

		return numericState(data) == 1, true
	default:
		return false, false
	}
}

// numericState reads Data.State, which arrives as a JSON number but shows
// up as an int in hand-built payloads.
func numericState(data map[string]any) int {
	switch v := data["State"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// AddEventListener registers a callback for the given event code at this
// coordinator's channel. At most one listener per event; a later
// registration replaces the earlier one. The listener is invoked with no
// arguments and reads state back through the accessor surface.
func (c *Coordinator) AddEventListener(eventName string, listener func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	c.listeners[eventKey(eventName, c.channel)] = listener
}

func (c *Coordinator) listener(key string) func() {
	c.listenersMu.RLock()
	defer c.listenersMu.RUnlock()

	return c.listeners[key]
}

// EventTimestamp returns the epoch seconds of the event's last Start (or
// active pulse), or 0 when the event is inactive or has never fired.
func (c *Coordinator) EventTimestamp(eventName string) int64 {
	c.timestampsMu.RLock()
	defer c.timestampsMu.RUnlock()

	return c.timestamps[eventKey(eventName, c.channel)]
}
