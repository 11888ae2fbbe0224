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

// Package bus publishes accepted device events to the host application:
// over NATS JetStream for out-of-process hosts, or in-process channels for
// embedded ones. Delivery is fire and forget.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborcam/dahua/pkg/models"
)

const (
	// EventName is the well-known name hosts listen for.
	EventName = "dahua_event_received"

	// DefaultSubject is the NATS subject device events are published on.
	DefaultSubject = "events.dahua.received"

	eventSource = "harborcam/dahua"

	subscriberBuffer = 16
)

// Publisher delivers one bus event to the host. Implementations must be
// safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event *models.BusEvent) error
}

// NewDeviceEvent wraps a normalized device event in the CloudEvents-shaped
// envelope hosts receive.
func NewDeviceEvent(ev *models.Event, t time.Time) *models.BusEvent {
	return &models.BusEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            EventName,
		DataContentType: "application/json",
		Subject:         DefaultSubject,
		Time:            &t,
		Data:            ev,
	}
}

// InProcessBus fans events out to subscribed channels. A slow subscriber
// does not block publishing; events it can't keep up with are dropped.
type InProcessBus struct {
	mu   sync.RWMutex
	subs map[int]chan *models.BusEvent
	next int
}

var _ Publisher = (*InProcessBus)(nil)

func NewInProcessBus() *InProcessBus {
	return &InProcessBus{subs: make(map[int]chan *models.BusEvent)}
}

// Subscribe returns a receive channel and a cancel func that removes the
// subscription and closes the channel.
func (b *InProcessBus) Subscribe() (<-chan *models.BusEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++

	ch := make(chan *models.BusEvent, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

func (b *InProcessBus) Publish(_ context.Context, event *models.BusEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}

	return nil
}
