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

package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/harborcam/dahua/pkg/models"
)

// NATSPublisher publishes device events to a NATS JetStream subject.
type NATSPublisher struct {
	js      jetstream.JetStream
	subject string
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher wraps an established NATS connection. An empty subject
// uses DefaultSubject.
func NewNATSPublisher(nc *nats.Conn, subject string) (*NATSPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if subject == "" {
		subject = DefaultSubject
	}

	return &NATSPublisher{js: js, subject: subject}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event *models.BusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal bus event: %w", err)
	}

	if _, err := p.js.Publish(ctx, p.subject, payload); err != nil {
		return fmt.Errorf("failed to publish bus event: %w", err)
	}

	return nil
}
