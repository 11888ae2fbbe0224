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

package models

import "time"

// Action is the lifecycle verb a device attaches to an event.
type Action string

const (
	ActionStart Action = "Start"
	ActionStop  Action = "Stop"
	ActionPulse Action = "Pulse"
)

// Event is a normalized device event, produced by the stream parsers and
// consumed immediately by dispatch. Data holds the decoded JSON payload of
// the event's data field when one was present and decodable; Raw keeps the
// original key/value pairs from the wire, including a data field that failed
// to decode.
type Event struct {
	Code       string         `json:"code"`
	Action     Action         `json:"action"`
	Index      int            `json:"index"`
	Data       map[string]any `json:"data,omitempty"`
	DeviceName string         `json:"device_name,omitempty"`
	Raw        map[string]string `json:"raw,omitempty"`
}

// ObjectType digs the detected object type out of the event payload, for
// smart-motion events like CrossLineDetection. Empty when absent.
func (e *Event) ObjectType() string {
	obj, ok := e.Data["Object"].(map[string]any)
	if !ok {
		return ""
	}

	t, _ := obj["ObjectType"].(string)

	return t
}

// BusEvent is the CloudEvents-shaped envelope published to the host event
// bus for every accepted device event.
type BusEvent struct {
	SpecVersion     string     `json:"specversion"`
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	Type            string     `json:"type"`
	DataContentType string     `json:"datacontenttype"`
	Subject         string     `json:"subject,omitempty"`
	Time            *time.Time `json:"time,omitempty"`
	Data            *Event     `json:"data,omitempty"`
}
