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
	"encoding/json"
	"strconv"
	"strings"

	"github.com/harborcam/dahua/pkg/models"
)

// HandleStreamData ingests one raw chunk from the camera event stream.
// Example input:
//
//	Code=VideoMotion;action=Start;index=0;data={"Id":[0],"RegionName":["Region1"]}\r\n
//
// The channel argument is the channel the reader was started for; events
// are filtered against the coordinator's configured channel via the line's
// own index field, since NVRs echo every channel's events on every
// attached stream.
func (c *Coordinator) HandleStreamData(data []byte, channel int) {
	events := parseEventStream(data, c.channel)
	if len(events) > 0 {
		c.log.Debug().Int("channel", channel).Int("events", len(events)).Msg("Camera events received")
	}

	for _, ev := range events {
		c.enqueue(ev)
	}
}

// HandleVTOEvent ingests one structured event payload from the doorbell
// stream. Payload fields are Code, Action, Data and Index.
func (c *Coordinator) HandleVTOEvent(payload map[string]any) {
	c.log.Debug().Interface("payload", payload).Msg("VTO event received")
	c.enqueue(parseVTOEvent(payload))
}

// parseEventStream turns a raw stream chunk into normalized events. The
// chunk is decoded as UTF-8 with invalid bytes dropped, split on CRLF, and
// only lines starting with Code= are events. Events whose index does not
// match wantIndex are discarded. Malformed fragments are skipped, never
// fatal.
func parseEventStream(data []byte, wantIndex int) []models.Event {
	text := strings.ToValidUTF8(string(data), "")

	var events []models.Event

	for _, line := range strings.Split(text, "\r\n") {
		if !strings.HasPrefix(line, "Code=") {
			continue
		}

		raw := make(map[string]string)

		for _, pair := range strings.Split(line, ";") {
			key, value, found := strings.Cut(pair, "=")
			if !found {
				continue
			}

			raw[key] = value
		}

		index := 0
		if v, ok := raw["index"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				index = n
			}
		}

		if index != wantIndex {
			continue
		}

		ev := models.Event{
			Code:   raw["Code"],
			Action: models.Action(raw["action"]),
			Index:  index,
			Raw:    raw,
		}

		// The data field is itself JSON. If it doesn't decode, the raw
		// string stays available in Raw.
		if payload, ok := raw["data"]; ok {
			var decoded map[string]any
			if err := json.Unmarshal([]byte(payload), &decoded); err == nil {
				ev.Data = decoded
			}
		}

		events = append(events, ev)
	}

	return events
}

func parseVTOEvent(payload map[string]any) models.Event {
	code, _ := payload["Code"].(string)
	action, _ := payload["Action"].(string)
	data, _ := payload["Data"].(map[string]any)

	index := 0
	if f, ok := payload["Index"].(float64); ok {
		index = int(f)
	}

	return models.Event{
		Code:   code,
		Action: models.Action(action),
		Index:  index,
		Data:   data,
	}
}
